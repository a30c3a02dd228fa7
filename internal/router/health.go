package router

import (
	"sync"
	"time"

	"github.com/af-corp/genroute/internal/models"
)

// HealthTracker holds one circuit breaker per model tier.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[models.Tier]*CircuitBreaker

	failureThreshold      int
	recoveryProbeInterval time.Duration
}

// NewHealthTracker creates a health tracker with the given circuit breaker config.
func NewHealthTracker(failureThreshold int, recoveryProbeInterval time.Duration) *HealthTracker {
	return &HealthTracker{
		breakers:              make(map[models.Tier]*CircuitBreaker),
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
	}
}

// Breaker returns (or lazily creates) the circuit breaker for a tier.
func (ht *HealthTracker) Breaker(tier models.Tier) *CircuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[tier]
	ht.mu.RUnlock()
	if ok {
		return cb
	}

	ht.mu.Lock()
	defer ht.mu.Unlock()
	if cb, ok := ht.breakers[tier]; ok {
		return cb
	}
	cb = NewCircuitBreaker(ht.failureThreshold, ht.recoveryProbeInterval)
	ht.breakers[tier] = cb
	return cb
}

// IsAvailable reports whether the tier's breaker lets an attempt through.
func (ht *HealthTracker) IsAvailable(tier models.Tier) bool {
	return ht.Breaker(tier).Allow()
}

func (ht *HealthTracker) RecordSuccess(tier models.Tier) {
	ht.Breaker(tier).RecordSuccess()
}

func (ht *HealthTracker) RecordFailure(tier models.Tier) {
	ht.Breaker(tier).RecordFailure()
}

// States returns a snapshot of every tier seen so far.
func (ht *HealthTracker) States() map[models.Tier]CircuitState {
	ht.mu.RLock()
	defer ht.mu.RUnlock()

	out := make(map[models.Tier]CircuitState, len(ht.breakers))
	for tier, cb := range ht.breakers {
		out[tier] = cb.State()
	}
	return out
}
