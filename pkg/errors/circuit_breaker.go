package errors

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"
)

// CircuitBreakerState represents the state of a circuit breaker
type CircuitBreakerState int

const (
	// CircuitBreakerClosed lets calls through
	CircuitBreakerClosed CircuitBreakerState = iota
	// CircuitBreakerOpen rejects calls until ResetTimeout has passed
	CircuitBreakerOpen
	// CircuitBreakerHalfOpen lets trial calls through
	CircuitBreakerHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case CircuitBreakerClosed:
		return "CLOSED"
	case CircuitBreakerOpen:
		return "OPEN"
	case CircuitBreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the state by name in metrics
func (s CircuitBreakerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreakerConfig holds configuration for a circuit breaker
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit
	MaxFailures int `json:"maxFailures"`
	// ResetTimeout is how long the circuit stays open before a trial call
	ResetTimeout time.Duration `json:"resetTimeout"`
	// SuccessThreshold is the number of trial successes that close the circuit
	SuccessThreshold int    `json:"successThreshold"`
	Name             string `json:"name"`
}

// DefaultCircuitBreakerConfig returns the settings used for external services
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		MaxFailures:      5,
		ResetTimeout:     30 * time.Second,
		SuccessThreshold: 1,
		Name:             name,
	}
}

// CircuitBreaker stops calling an external service after repeated failures.
// Only external service errors count as failures: a missing secret or a bad
// argument says nothing about the health of the service.
type CircuitBreaker struct {
	config          CircuitBreakerConfig
	state           CircuitBreakerState
	failureCount    int
	successCount    int
	rejectedCount   int64
	lastFailureTime time.Time
	now             func() time.Time
	mutex           sync.Mutex
	onStateChange   func(name string, from, to CircuitBreakerState)
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 1
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	return &CircuitBreaker{
		config: config,
		state:  CircuitBreakerClosed,
		now:    time.Now,
	}
}

// SetStateChangeCallback registers fn to run on every state transition
func (cb *CircuitBreaker) SetStateChangeCallback(fn func(name string, from, to CircuitBreakerState)) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn unless the circuit is open
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return NewExternalServiceError(ErrCodeCircuitOpen,
			fmt.Sprintf("%s is unavailable after repeated failures", cb.config.Name), nil).
			WithContext("circuit_breaker", cb.config.Name).
			WithContext("retry_after", cb.config.ResetTimeout.String())
	}

	err := fn()
	cb.recordResult(err)
	return err
}

func (cb *CircuitBreaker) allowRequest() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == CircuitBreakerOpen {
		if cb.now().Sub(cb.lastFailureTime) < cb.config.ResetTimeout {
			cb.rejectedCount++
			return false
		}
		cb.setState(CircuitBreakerHalfOpen)
		cb.successCount = 0
	}
	return true
}

func (cb *CircuitBreaker) recordResult(err error) {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch {
	case err == nil:
		cb.recordSuccess()
	case countsAsFailure(err):
		cb.recordFailure()
	}
}

// countsAsFailure reports whether err was raised by the remote service
func countsAsFailure(err error) bool {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se.Category == ErrorCategoryExternalService
	}
	return true
}

func (cb *CircuitBreaker) recordFailure() {
	cb.failureCount++
	cb.successCount = 0
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitBreakerClosed:
		if cb.failureCount >= cb.config.MaxFailures {
			cb.setState(CircuitBreakerOpen)
		}
	case CircuitBreakerHalfOpen:
		cb.setState(CircuitBreakerOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	switch cb.state {
	case CircuitBreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.config.SuccessThreshold {
			cb.setState(CircuitBreakerClosed)
			cb.failureCount = 0
			cb.successCount = 0
		}
	case CircuitBreakerClosed:
		cb.failureCount = 0
	}
}

// setState must be called with the mutex held; the callback runs on its own
// goroutine so it may call back into the breaker
func (cb *CircuitBreaker) setState(next CircuitBreakerState) {
	prev := cb.state
	cb.state = next
	if cb.onStateChange != nil && prev != next {
		go cb.onStateChange(cb.config.Name, prev, next)
	}
}

// GetState returns the current state
func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

// CircuitBreakerStats is a snapshot of a breaker for metrics
type CircuitBreakerStats struct {
	Name            string               `json:"name"`
	State           CircuitBreakerState  `json:"state"`
	FailureCount    int                  `json:"failureCount"`
	RejectedCount   int64                `json:"rejectedCount"`
	LastFailureTime time.Time            `json:"lastFailureTime"`
	Config          CircuitBreakerConfig `json:"config"`
}

// GetStats returns a snapshot of the breaker
func (cb *CircuitBreaker) GetStats() CircuitBreakerStats {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	return CircuitBreakerStats{
		Name:            cb.config.Name,
		State:           cb.state,
		FailureCount:    cb.failureCount,
		RejectedCount:   cb.rejectedCount,
		LastFailureTime: cb.lastFailureTime,
		Config:          cb.config,
	}
}

// CircuitBreakerManager owns one breaker per external service
type CircuitBreakerManager struct {
	breakers      map[string]*CircuitBreaker
	onStateChange func(name string, from, to CircuitBreakerState)
	mutex         sync.Mutex
}

// NewCircuitBreakerManager creates a manager. onStateChange, if not nil, is
// attached to every breaker it creates.
func NewCircuitBreakerManager(onStateChange func(name string, from, to CircuitBreakerState)) *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers:      make(map[string]*CircuitBreaker),
		onStateChange: onStateChange,
	}
}

// GetOrCreate returns the breaker called name, creating it with config
func (cbm *CircuitBreakerManager) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	if breaker, ok := cbm.breakers[name]; ok {
		return breaker
	}

	config.Name = name
	breaker := NewCircuitBreaker(config)
	if cbm.onStateChange != nil {
		breaker.SetStateChangeCallback(cbm.onStateChange)
	}
	cbm.breakers[name] = breaker
	return breaker
}

// GetAllStats returns a snapshot of every breaker keyed by name
func (cbm *CircuitBreakerManager) GetAllStats() map[string]CircuitBreakerStats {
	cbm.mutex.Lock()
	defer cbm.mutex.Unlock()

	stats := make(map[string]CircuitBreakerStats, len(cbm.breakers))
	for name, breaker := range cbm.breakers {
		stats[name] = breaker.GetStats()
	}
	return stats
}
