package router

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // healthy, attempts flow
	StateOpen                         // unhealthy, attempts skipped
	StateHalfOpen                     // probing, one attempt allowed
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks consecutive retryable failures of one model tier.
type CircuitBreaker struct {
	mu sync.Mutex

	state         CircuitState
	failures      int
	openedAt      time.Time
	probeInFlight bool
	probeStarted  time.Time

	failureThreshold      int
	recoveryProbeInterval time.Duration
	now                   func() time.Time
}

// NewCircuitBreaker creates a circuit breaker with the given thresholds.
func NewCircuitBreaker(failureThreshold int, recoveryProbeInterval time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:                 StateClosed,
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
		now:                   time.Now,
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState moves OPEN to HALF_OPEN once the probe interval has elapsed.
// Must be called with mu held.
func (cb *CircuitBreaker) currentState() CircuitState {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.recoveryProbeInterval {
		cb.state = StateHalfOpen
		cb.probeInFlight = false
	}
	return cb.state
}

// Allow reports whether an attempt may go through. In HALF_OPEN only the first caller
// gets through until that probe reports back or a full probe interval passes without
// an outcome (the probe was cancelled or failed terminally).
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probeInFlight && cb.now().Sub(cb.probeStarted) < cb.recoveryProbeInterval {
			return false
		}
		cb.probeInFlight = true
		cb.probeStarted = cb.now()
		return true
	default:
		return false
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failures = 0
	cb.probeInFlight = false
}

// RecordFailure counts a retryable failure, opening the circuit at the threshold.
// A failed probe reopens it immediately.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++

	switch cb.currentState() {
	case StateClosed:
		if cb.failures >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.now()
		cb.probeInFlight = false
	}
}

// Reset returns the breaker to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probeInFlight = false
}
