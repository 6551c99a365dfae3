package safety

import (
	"sync"
	"time"

	boterrors "github.com/ducminhle1904/equity-signal-bot/internal/errors"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

// String returns the string representation of the circuit breaker state
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold uint32        // consecutive failures before opening
	SuccessThreshold uint32        // successes in half-open before closing
	Timeout          time.Duration // how long to stay open
	// ShouldTrip decides whether an error counts as a failure. Nil counts every error.
	ShouldTrip func(error) bool
}

// CircuitBreaker stops calling a failing dependency for a cool-down period
type CircuitBreaker struct {
	name          string
	config        CircuitBreakerConfig
	now           func() time.Time
	onStateChange func(name string, from, to CircuitBreakerState)

	mutex       sync.Mutex
	state       CircuitBreakerState
	failures    uint32
	successes   uint32
	lastFailure time.Time
	nextAttempt time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(name string, config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 1
	}
	if config.Timeout == 0 {
		config.Timeout = time.Minute
	}

	return &CircuitBreaker{
		name:   name,
		config: config,
		state:  StateClosed,
		now:    time.Now,
	}
}

// SetStateChangeCallback registers fn to run on every transition. fn runs
// synchronously after the breaker lock is released.
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(name string, from, to CircuitBreakerState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// Call runs fn unless the circuit is open
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.canExecute() {
		return boterrors.New(boterrors.ErrorCategoryCircuitOpen, cb.name, "Call", "circuit breaker is open")
	}

	err := fn()
	if err != nil && (cb.config.ShouldTrip == nil || cb.config.ShouldTrip(err)) {
		cb.recordFailure()
		return err
	}

	cb.recordSuccess()
	return err
}

func (cb *CircuitBreaker) canExecute() bool {
	cb.mutex.Lock()
	switch cb.state {
	case StateOpen:
		if cb.now().Before(cb.nextAttempt) {
			cb.mutex.Unlock()
			return false
		}
		transition := cb.setState(StateHalfOpen)
		cb.successes = 0
		cb.mutex.Unlock()
		transition()
		return true
	default:
		cb.mutex.Unlock()
		return true
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	cb.failures = 0
	transition := func() {}
	if cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			transition = cb.setState(StateClosed)
			cb.successes = 0
		}
	}
	cb.mutex.Unlock()
	transition()
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	cb.failures++
	cb.lastFailure = cb.now()

	transition := func() {}
	if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
		transition = cb.setState(StateOpen)
		cb.nextAttempt = cb.now().Add(cb.config.Timeout)
		cb.successes = 0
	}
	cb.mutex.Unlock()
	transition()
}

// setState changes state under the lock and returns the callback to run after unlocking
func (cb *CircuitBreaker) setState(newState CircuitBreakerState) func() {
	oldState := cb.state
	cb.state = newState
	if cb.onStateChange == nil || oldState == newState {
		return func() {}
	}
	fn, name := cb.onStateChange, cb.name
	return func() { fn(name, oldState, newState) }
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// Reset closes the circuit and clears counters
func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	transition := cb.setState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.mutex.Unlock()
	transition()
}

// CircuitBreakerManager hands out one breaker per name
type CircuitBreakerManager struct {
	config   CircuitBreakerConfig
	onChange func(name string, from, to CircuitBreakerState)
	breakers map[string]*CircuitBreaker
	mutex    sync.Mutex
}

// NewCircuitBreakerManager creates breakers sharing config and state-change callback
func NewCircuitBreakerManager(config CircuitBreakerConfig, onChange func(name string, from, to CircuitBreakerState)) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		config:   config,
		onChange: onChange,
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate gets an existing circuit breaker or creates a new one
func (cbm *CircuitBreakerManager) GetOrCreate(name string) *CircuitBreaker {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	if cb, exists := cbm.breakers[name]; exists {
		return cb
	}
	cb := NewCircuitBreaker(name, cbm.config)
	if cbm.onChange != nil {
		cb.SetStateChangeCallback(cbm.onChange)
	}
	cbm.breakers[name] = cb
	return cb
}

// OpenCircuits returns the names of breakers currently open
func (cbm *CircuitBreakerManager) OpenCircuits() []string {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	var open []string
	for name, cb := range cbm.breakers {
		if cb.GetState() == StateOpen {
			open = append(open, name)
		}
	}
	return open
}
