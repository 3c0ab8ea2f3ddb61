package httpclient

import "time"

// Reasons passed to Observer.CircuitReset.
const (
	ResetSuccess  = "success"
	ResetCooldown = "cooldown"
)

// Attempt outcomes passed to Observer.AttemptFinished besides status codes.
const (
	OutcomeOK        = "ok"
	OutcomeTimeout   = "timeout"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "status"
)

// Observer receives client and breaker events. Implementations must be safe
// for concurrent use and must not block.
type Observer interface {
	AttemptFinished(service, outcome string, status int, elapsed time.Duration)
	CircuitTripped(service string, at time.Time)
	CircuitReset(service, reason string)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) AttemptFinished(string, string, int, time.Duration) {}
func (NopObserver) CircuitTripped(string, time.Time)                   {}
func (NopObserver) CircuitReset(string, string)                        {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) AttemptFinished(service, outcome string, status int, elapsed time.Duration) {
	for _, ob := range o {
		ob.AttemptFinished(service, outcome, status, elapsed)
	}
}

func (o Observers) CircuitTripped(service string, at time.Time) {
	for _, ob := range o {
		ob.CircuitTripped(service, at)
	}
}

func (o Observers) CircuitReset(service, reason string) {
	for _, ob := range o {
		ob.CircuitReset(service, reason)
	}
}
