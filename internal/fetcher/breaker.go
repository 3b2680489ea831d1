// Package fetcher is the Data Fetcher Pool (C3): uniform access to
// historical candles, realtime quotes, and name resolution across
// heterogeneous sources, with priority routing, a circuit breaker, and
// TTL caches.
package fetcher

import (
	"sync"
	"time"
)

// breakerState is one source's closed/open/half-open state machine.
// No reference file in the corpus implements this literally (grepped
// both the teacher and other_examples); authored fresh, following the
// corpus's general "mutex-guarded, short critical section" discipline
// (e.g. the key-pool cooldown in internal/keypool, the tradernet worker's
// rate-limit gate).
type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

// CircuitBreaker trips a source after K consecutive failures and
// holds it open for a cooldown window; a single success while
// half-open closes it again.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            breakerState
	consecutiveFails int
	openedAt         time.Time

	failureThreshold int
	cooldown         time.Duration
}

// NewCircuitBreaker builds a breaker with the given threshold and
// cooldown window.
func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 3
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Minute
	}
	return &CircuitBreaker{failureThreshold: failureThreshold, cooldown: cooldown}
}

// Allow reports whether a call may proceed. While open, it
// transitions to half-open once the cooldown has elapsed and allows
// exactly the probing call through.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case closed:
		return true
	case open:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = halfOpen
			return true
		}
		return false
	case halfOpen:
		// Only one probe at a time would require a separate token; for
		// this pool's call volume, allowing concurrent probes during
		// half-open is an acceptable simplification since a single
		// success closes the breaker and a failure reopens it either way.
		return true
	}
	return true
}

// RecordSuccess closes the breaker and resets the failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = closed
	b.consecutiveFails = 0
}

// RecordFailure increments the failure counter and opens the breaker
// once the threshold is reached (or immediately, if a half-open probe
// failed).
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == halfOpen {
		b.state = open
		b.openedAt = time.Now()
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.failureThreshold {
		b.state = open
		b.openedAt = time.Now()
	}
}

// IsOpen reports the breaker's current open/closed state without
// mutating it (used for metrics/reporting).
func (b *CircuitBreaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == open
}
