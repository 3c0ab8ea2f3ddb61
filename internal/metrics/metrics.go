// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "relaybot"

var (
	upstreamAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_attempts_total",
			Help:      "Outbound HTTP attempts, partitioned by service, outcome and status code.",
		},
		[]string{"service", "outcome", "code"},
	)

	upstreamAttemptSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_attempt_seconds",
			Help:      "Outbound HTTP attempt latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"service"},
	)

	circuitTripsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_trips_total",
			Help:      "Circuit breaker trips per service.",
		},
		[]string{"service"},
	)

	circuitResetsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_resets_total",
			Help:      "Circuit breaker resets per service and reason.",
		},
		[]string{"service", "reason"},
	)

	circuitOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_open",
			Help:      "1 while the circuit for a service is open.",
		},
		[]string{"service"},
	)

	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Handled commands, partitioned by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	commandSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_seconds",
			Help:      "Command handling latency in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 30},
		},
		[]string{"command"},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Commands rejected by the per-user rate limiter.",
		},
	)

	replyFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_failures_total",
			Help:      "Failed reply deliveries, partitioned by stage (formatted, fallback).",
		},
		[]string{"stage"},
	)
)

// Register attaches RelayBot collectors to reg.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		upstreamAttemptsTotal,
		upstreamAttemptSeconds,
		circuitTripsTotal,
		circuitResetsTotal,
		circuitOpen,
		commandsTotal,
		commandSeconds,
		rateLimitedTotal,
		replyFailuresTotal,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCommand records a finished command invocation.
func ObserveCommand(command, outcome string, duration time.Duration) {
	commandsTotal.WithLabelValues(command, outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	commandSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RateLimited counts a rejected command.
func RateLimited() {
	rateLimitedTotal.Inc()
}

// ReplyFailed counts a failed delivery at stage.
func ReplyFailed(stage string) {
	replyFailuresTotal.WithLabelValues(stage).Inc()
}

// HTTPObserver feeds outbound client and circuit events into the collectors.
type HTTPObserver struct{}

// NewHTTPObserver returns an HTTPObserver.
func NewHTTPObserver() HTTPObserver {
	return HTTPObserver{}
}

func (HTTPObserver) AttemptFinished(service, outcome string, status int, elapsed time.Duration) {
	code := "none"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	upstreamAttemptsTotal.WithLabelValues(service, outcome, code).Inc()
	upstreamAttemptSeconds.WithLabelValues(service).Observe(elapsed.Seconds())
}

func (HTTPObserver) CircuitTripped(service string, _ time.Time) {
	circuitTripsTotal.WithLabelValues(service).Inc()
	circuitOpen.WithLabelValues(service).Set(1)
}

func (HTTPObserver) CircuitReset(service, reason string) {
	circuitResetsTotal.WithLabelValues(service, reason).Inc()
	circuitOpen.WithLabelValues(service).Set(0)
}
