// Package breaker provides a consecutive-failure circuit breaker.
package breaker

import (
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// Closed means the circuit is healthy; requests flow normally.
	Closed State = iota
	// Open means too many failures have occurred; requests are rejected.
	Open
	// HalfOpen means a single probe is in flight to test recovery.
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker halts requests after threshold consecutive failures and lets a
// single probe through once resetTimeout has elapsed.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	now          func() time.Time
}

// New creates a breaker that opens after threshold consecutive failures and
// moves to HalfOpen after resetTimeout. A threshold below 1 is treated as 1.
func New(threshold int, resetTimeout time.Duration) *Breaker {
	if threshold < 1 {
		threshold = 1
	}
	return &Breaker{
		threshold:    threshold,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// Allow reports whether a request is permitted. In Open state it admits one
// probe after the reset timeout, switching to HalfOpen; further requests are
// rejected until that probe is recorded.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true
	case Open:
		if b.now().Sub(b.openedAt) >= b.resetTimeout {
			b.state = HalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the breaker to Closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = Closed
}

// RecordFailure counts a failure. A failed probe, or reaching the threshold,
// opens the circuit.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold {
		b.state = Open
		b.openedAt = b.now()
	}
}

// Release returns an admitted request without an outcome. A HalfOpen probe
// goes back to Open so the next Allow admits a new probe; in other states it
// is a no-op.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == HalfOpen {
		b.state = Open
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
