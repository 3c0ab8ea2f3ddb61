// Package model holds plain event types shared between layers.
package model

import "time"

// CircuitTrippedEvent is emitted when a service circuit opens.
type CircuitTrippedEvent struct {
	Service   string
	TrippedAt time.Time
}

// CircuitRecoveredEvent is emitted when an open circuit is cleared, either by
// a successful call or by the cooldown check.
type CircuitRecoveredEvent struct {
	Service string
	Reason  string
	// OpenFor is zero when the trip happened in another process.
	OpenFor time.Duration
}
