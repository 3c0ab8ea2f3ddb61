package data

import (
	"sync"
	"time"

	"RelayBot/internal/model"
	pkglog "RelayBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

// CircuitEventLogger turns breaker notifications into circuit events and
// logs them. It implements httpclient.Observer; attempt events are ignored.
type CircuitEventLogger struct {
	logger *pkglog.LogHelper
	now    func() time.Time

	mu      sync.Mutex
	tripped map[string]time.Time
}

// NewCircuitEventLogger creates a circuit event logger.
func NewCircuitEventLogger(logger log.Logger) *CircuitEventLogger {
	return &CircuitEventLogger{
		logger:  pkglog.NewLogHelper(log.With(logger, "module", "data/circuit_events")),
		now:     time.Now,
		tripped: make(map[string]time.Time),
	}
}

func (l *CircuitEventLogger) AttemptFinished(string, string, int, time.Duration) {}

func (l *CircuitEventLogger) CircuitTripped(service string, at time.Time) {
	event := &model.CircuitTrippedEvent{Service: service, TrippedAt: at}

	l.mu.Lock()
	l.tripped[service] = at
	l.mu.Unlock()

	l.logger.Circuit("circuit opened",
		"service", event.Service,
		"tripped_at", event.TrippedAt.UTC().Format(time.RFC3339))
}

func (l *CircuitEventLogger) CircuitReset(service, reason string) {
	event := &model.CircuitRecoveredEvent{Service: service, Reason: reason}

	l.mu.Lock()
	if at, ok := l.tripped[service]; ok {
		event.OpenFor = l.now().Sub(at)
		delete(l.tripped, service)
	}
	l.mu.Unlock()

	l.logger.Circuit("circuit closed",
		"service", event.Service,
		"reason", event.Reason,
		"open_for", event.OpenFor.String())
}
