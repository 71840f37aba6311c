package transcribe

import (
	"sync"
	"time"
)

// CircuitState is the breaker's position in its Closed/Open/HalfOpen cycle.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

const (
	defaultBreakerThreshold = 5
	defaultBreakerCooldown  = 60 * time.Second
)

// Breaker is a three-state circuit breaker guarding the cloud endpoint.
// Transitions: Closed->Open after threshold consecutive qualifying failures,
// Open->HalfOpen after the cooldown, HalfOpen->Closed on probe success,
// HalfOpen->Open on probe failure. All state lives under one mutex.
type Breaker struct {
	mu        sync.Mutex
	state     CircuitState
	failures  int
	openUntil time.Time
	probing   bool

	threshold int
	cooldown  time.Duration
	now       func() time.Time
}

// NewBreaker builds a breaker; non-positive arguments select the defaults
// (5 failures, 60s cooldown).
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = defaultBreakerThreshold
	}
	if cooldown <= 0 {
		cooldown = defaultBreakerCooldown
	}
	return &Breaker{
		state:     CircuitClosed,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// Allow reports whether a call may proceed. While open it fails fast with
// ErrServiceUnavailable; after the cooldown it admits a single half-open probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		return nil
	case CircuitOpen:
		if b.now().Before(b.openUntil) {
			return ErrServiceUnavailable
		}
		b.state = CircuitHalfOpen
		b.probing = true
		return nil
	case CircuitHalfOpen:
		if b.probing {
			return ErrServiceUnavailable
		}
		b.probing = true
		return nil
	default:
		return ErrServiceUnavailable
	}
}

// RecordSuccess resets the failure streak; a successful half-open probe
// closes the circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.probing = false
	b.state = CircuitClosed
}

// RecordFailure counts one qualifying failure; at the threshold (or on a
// failed half-open probe) the circuit opens for the cooldown window.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitHalfOpen {
		b.trip()
		return
	}

	b.failures++
	if b.failures >= b.threshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.state = CircuitOpen
	b.failures = 0
	b.probing = false
	b.openUntil = b.now().Add(b.cooldown)
}

// State returns the current circuit position.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
