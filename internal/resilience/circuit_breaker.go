package resilience

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
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

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // Number of failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`  // Time to wait before attempting recovery
	SuccessThreshold int           `json:"success_threshold"` // Number of successes needed to close circuit
}

// CircuitBreaker protects calls to a model backend
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       int32
	failures    int32
	successes   int32
	nextAttempt atomic.Int64 // unix nanos
	now         func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker, filling zero config values with defaults
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}

	return &CircuitBreaker{
		config: config,
		state:  int32(StateClosed),
		now:    time.Now,
	}
}

// Call executes fn unless the circuit is open. Errors for which countable
// returns false pass through without counting as backend failures.
func (cb *CircuitBreaker) Call(fn func() error, countable func(error) bool) error {
	state := CircuitBreakerState(atomic.LoadInt32(&cb.state))

	if state == StateOpen {
		if cb.now().UnixNano() < cb.nextAttempt.Load() {
			return &CircuitBreakerError{Message: ErrCircuitOpen.Error(), State: state}
		}
		// Only one caller moves the breaker to half-open
		if atomic.CompareAndSwapInt32(&cb.state, int32(StateOpen), int32(StateHalfOpen)) {
			atomic.StoreInt32(&cb.successes, 0)
		}
	}

	err := fn()
	if err != nil {
		if countable == nil || countable(err) {
			cb.onFailure()
		}
		return err
	}

	cb.onSuccess()
	return nil
}

func (cb *CircuitBreaker) onFailure() {
	atomic.StoreInt32(&cb.successes, 0)

	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) == StateHalfOpen {
		cb.trip()
		return
	}

	if atomic.AddInt32(&cb.failures, 1) >= int32(cb.config.FailureThreshold) {
		cb.trip()
	}
}

func (cb *CircuitBreaker) trip() {
	cb.nextAttempt.Store(cb.now().Add(cb.config.RecoveryTimeout).UnixNano())
	atomic.StoreInt32(&cb.state, int32(StateOpen))
}

func (cb *CircuitBreaker) onSuccess() {
	atomic.StoreInt32(&cb.failures, 0)

	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) == StateHalfOpen {
		successes := atomic.AddInt32(&cb.successes, 1)
		if successes >= int32(cb.config.SuccessThreshold) {
			atomic.StoreInt32(&cb.state, int32(StateClosed))
		}
	}
}

// State returns the current state of the circuit breaker
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// Failures returns the current failure count
func (cb *CircuitBreaker) Failures() int {
	return int(atomic.LoadInt32(&cb.failures))
}

// Reset resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.failures, 0)
	atomic.StoreInt32(&cb.successes, 0)
	cb.nextAttempt.Store(0)
}

// CircuitBreakerError represents an error from the circuit breaker
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

// Is lets errors.Is match ErrCircuitOpen.
func (e *CircuitBreakerError) Is(target error) bool {
	return target == ErrCircuitOpen
}

// BreakerStats is the externally visible state of one breaker
type BreakerStats struct {
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

// CircuitBreakerRegistry manages one breaker per backend
type CircuitBreakerRegistry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakerRegistry creates a new registry
func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (r *CircuitBreakerRegistry) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.RLock()
	breaker, exists := r.breakers[name]
	r.mu.RUnlock()
	if exists {
		return breaker
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if breaker, exists = r.breakers[name]; exists {
		return breaker
	}
	breaker = NewCircuitBreaker(config)
	r.breakers[name] = breaker
	return breaker
}

// Names lists registered breakers in sorted order
func (r *CircuitBreakerRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetStats returns statistics for all circuit breakers
func (r *CircuitBreakerRegistry) GetStats() map[string]BreakerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]BreakerStats, len(r.breakers))
	for name, breaker := range r.breakers {
		stats[name] = BreakerStats{
			State:    breaker.State().String(),
			Failures: breaker.Failures(),
		}
	}
	return stats
}
