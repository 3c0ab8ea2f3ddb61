package httpclient

import (
	"context"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

// DefaultCooldown is how long a tripped circuit stays open.
const DefaultCooldown = 60 * time.Second

// CircuitState is the recorded trip of one service. A service without an
// entry in the store is closed.
type CircuitState struct {
	Tripped   bool      `json:"tripped"`
	TrippedAt time.Time `json:"tripped_at"`
}

// CircuitStore holds circuit state keyed by service name. Every method must
// be atomic per key.
type CircuitStore interface {
	Load(ctx context.Context, service string) (CircuitState, bool, error)
	Save(ctx context.Context, service string, state CircuitState) error
	// Delete removes the entry and reports whether one existed.
	Delete(ctx context.Context, service string) (bool, error)
	// DeleteIf removes the entry only if it still records trippedAt.
	DeleteIf(ctx context.Context, service string, trippedAt time.Time) (bool, error)
	Snapshot(ctx context.Context) (map[string]CircuitState, error)
}

// MemoryCircuitStore keeps circuit state in process memory.
type MemoryCircuitStore struct {
	mu     sync.Mutex
	states map[string]CircuitState
}

// NewMemoryCircuitStore returns an empty store.
func NewMemoryCircuitStore() *MemoryCircuitStore {
	return &MemoryCircuitStore{states: make(map[string]CircuitState)}
}

func (s *MemoryCircuitStore) Load(_ context.Context, service string) (CircuitState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[service]
	return st, ok, nil
}

func (s *MemoryCircuitStore) Save(_ context.Context, service string, state CircuitState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[service] = state
	return nil
}

func (s *MemoryCircuitStore) Delete(_ context.Context, service string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.states[service]
	delete(s.states, service)
	return ok, nil
}

func (s *MemoryCircuitStore) DeleteIf(_ context.Context, service string, trippedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[service]
	if !ok || !st.TrippedAt.Equal(trippedAt) {
		return false, nil
	}
	delete(s.states, service)
	return true, nil
}

func (s *MemoryCircuitStore) Snapshot(_ context.Context) (map[string]CircuitState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]CircuitState, len(s.states))
	for k, v := range s.states {
		out[k] = v
	}
	return out, nil
}

// CircuitBreaker gates calls per service. A trip keeps the circuit open for
// the cooldown; the first check after that clears the entry.
//
// Store failures are logged and treated as closed.
type CircuitBreaker struct {
	store    CircuitStore
	cooldown time.Duration
	observer Observer
	now      func() time.Time
	log      *log.Helper
}

// NewCircuitBreaker creates a breaker over store. A non-positive cooldown
// selects DefaultCooldown; a nil observer disables notifications.
func NewCircuitBreaker(store CircuitStore, cooldown time.Duration, observer Observer, logger log.Logger) *CircuitBreaker {
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &CircuitBreaker{
		store:    store,
		cooldown: cooldown,
		observer: observer,
		now:      time.Now,
		log:      log.NewHelper(log.With(logger, "module", "httpclient/breaker")),
	}
}

// Cooldown returns the open duration after a trip.
func (b *CircuitBreaker) Cooldown() time.Duration {
	return b.cooldown
}

// IsOpen reports whether calls to service are currently blocked.
func (b *CircuitBreaker) IsOpen(ctx context.Context, service string) bool {
	st, ok, err := b.store.Load(ctx, service)
	if err != nil {
		b.log.Warnw("msg", "circuit state unavailable, assuming closed", "service", service, "error", err)
		return false
	}
	if !ok || !st.Tripped {
		return false
	}
	if b.now().Sub(st.TrippedAt) < b.cooldown {
		return true
	}

	deleted, err := b.store.DeleteIf(ctx, service, st.TrippedAt)
	if err != nil {
		b.log.Warnw("msg", "failed to clear expired circuit", "service", service, "error", err)
		return false
	}
	if deleted {
		b.observer.CircuitReset(service, ResetCooldown)
		return false
	}

	// Someone else cleared or re-tripped the entry in between.
	st, ok, err = b.store.Load(ctx, service)
	if err != nil || !ok || !st.Tripped {
		return false
	}
	return b.now().Sub(st.TrippedAt) < b.cooldown
}

// Trip opens the circuit for service, overwriting any earlier trip.
func (b *CircuitBreaker) Trip(ctx context.Context, service string) {
	at := b.now()
	if err := b.store.Save(ctx, service, CircuitState{Tripped: true, TrippedAt: at}); err != nil {
		b.log.Warnw("msg", "failed to record circuit trip", "service", service, "error", err)
		return
	}
	b.observer.CircuitTripped(service, at)
}

// Reset closes the circuit for service. Resetting a closed circuit is a no-op.
func (b *CircuitBreaker) Reset(ctx context.Context, service string) {
	deleted, err := b.store.Delete(ctx, service)
	if err != nil {
		b.log.Warnw("msg", "failed to reset circuit", "service", service, "error", err)
		return
	}
	if deleted {
		b.observer.CircuitReset(service, ResetSuccess)
	}
}

// OpenCircuits lists services whose circuit is open right now. Expired
// entries are cleared on the way.
func (b *CircuitBreaker) OpenCircuits(ctx context.Context) ([]string, error) {
	snap, err := b.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]string, 0, len(snap))
	for service := range snap {
		if b.IsOpen(ctx, service) {
			open = append(open, service)
		}
	}
	return open, nil
}
