// Package breaker implements the three-state circuit breaker from
// spec.md §4.3: CLOSED -> OPEN after N consecutive failures, OPEN ->
// HALF_OPEN after a reset timeout, HALF_OPEN -> CLOSED after M
// consecutive successes (any failure sends it back to OPEN and resets
// the reset timer).
package breaker

import (
	"sync"
	"time"

	"github.com/heymumford/skidbladnir/apierrors"
)

// State is one of the three circuit-breaker states.
type State string

const (
	Closed   State = "CLOSED"
	Open     State = "OPEN"
	HalfOpen State = "HALF_OPEN"
)

// Options configures a Breaker.
type Options struct {
	FailureThreshold         int
	ResetTimeoutMs           int
	HalfOpenSuccessThreshold int
}

// Breaker is a per-provider circuit breaker. All state transitions are
// serialized under a single mutex — a short critical section, never a
// long-held lock, per spec.md §5.
type Breaker struct {
	provider string
	opts     Options

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	consecutiveSuccess  int
	openedAt            time.Time
	halfOpenAdmitted    bool // only one call admitted per half-open window at a time
}

// New builds a Breaker for provider in the CLOSED state.
func New(provider string, opts Options) *Breaker {
	return &Breaker{provider: provider, opts: opts, state: Closed}
}

// State returns the current state, first resolving an OPEN breaker whose
// reset timeout has elapsed into HALF_OPEN (lazily, the way the token
// bucket lazily refills — no background timer goroutine needed).
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()
	return b.state
}

func (b *Breaker) maybeTransitionToHalfOpenLocked() {
	if b.state == Open && time.Since(b.openedAt) >= time.Duration(b.opts.ResetTimeoutMs)*time.Millisecond {
		b.state = HalfOpen
		b.halfOpenAdmitted = false
	}
}

// Admit reports whether a call may proceed. OPEN rejects synchronously
// with a circuit_open APIError (spec.md §4.3: "the breaker does not time
// out calls itself"). HALF_OPEN admits exactly one in-flight probe at a
// time; CLOSED always admits.
func (b *Breaker) Admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeTransitionToHalfOpenLocked()

	switch b.state {
	case Closed:
		return nil
	case HalfOpen:
		if b.halfOpenAdmitted {
			return apierrors.New(b.provider, apierrors.CircuitOpen, "circuit_open: half-open probe already in flight")
		}
		b.halfOpenAdmitted = true
		return nil
	default: // Open
		return apierrors.New(b.provider, apierrors.CircuitOpen, "circuit_open")
	}
}

// RecordSuccess resets CLOSED's consecutive-failure count, or advances
// HALF_OPEN towards CLOSED once HalfOpenSuccessThreshold consecutive
// successes land.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.consecutiveSuccess++
		b.halfOpenAdmitted = false
		if b.consecutiveSuccess >= b.threshold() {
			b.state = Closed
			b.consecutiveFailures = 0
			b.consecutiveSuccess = 0
		}
	case Closed:
		b.consecutiveFailures = 0
	}
}

// RecordFailure advances CLOSED towards OPEN, or immediately reopens a
// HALF_OPEN breaker and resets its timer.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.open()
	case Closed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.failureThreshold() {
			b.open()
		}
	}
}

func (b *Breaker) open() {
	b.state = Open
	b.openedAt = time.Now()
	b.consecutiveFailures = 0
	b.consecutiveSuccess = 0
	b.halfOpenAdmitted = false
}

func (b *Breaker) failureThreshold() int {
	if b.opts.FailureThreshold <= 0 {
		return 1
	}
	return b.opts.FailureThreshold
}

func (b *Breaker) threshold() int {
	if b.opts.HalfOpenSuccessThreshold <= 0 {
		return 1
	}
	return b.opts.HalfOpenSuccessThreshold
}
