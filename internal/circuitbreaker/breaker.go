// Package circuitbreaker implements a per-ticker circuit breaker guarding
// market data provider calls and the optional Timescale mirror's writes: an
// upstream that fails repeatedly for a given ticker trips open and
// short-circuits further calls until its timeout elapses, instead of
// burning through retries against a dead endpoint.
package circuitbreaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State is one of the three circuit breaker states.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// StateChangeFunc is invoked whenever a breaker transitions, named by
// breaker name and its new state — the hook marketcache.Service uses to
// publish a Prometheus gauge per ticker breaker.
type StateChangeFunc func(name string, state State)

// Config holds circuit breaker configuration.
type Config struct {
	Name string

	// MaxFailures is the number of consecutive failures before opening.
	MaxFailures int

	// Timeout is how long to wait in the open state before probing again.
	Timeout time.Duration

	// MaxRequests is the max number of requests allowed in half-open state.
	MaxRequests int

	Logger zerolog.Logger

	// OnStateChange, if set, is called after every state transition.
	OnStateChange StateChangeFunc
}

// DefaultProviderConfig returns a forgiving config for market data
// provider calls, which are expected to be occasionally flaky.
func DefaultProviderConfig() Config {
	return Config{MaxFailures: 5, Timeout: 30 * time.Second, MaxRequests: 3}
}

// DefaultTimescaleMirrorConfig returns a fail-fast config for the optional
// Timescale mirror's Upsert calls: a struggling database should stop
// absorbing writes quickly rather than let every tick's upsert queue up
// behind a slow or down connection.
func DefaultTimescaleMirrorConfig() Config {
	return Config{MaxFailures: 3, Timeout: 10 * time.Second, MaxRequests: 2}
}

// CircuitBreaker implements the standard closed/open/half-open pattern
// around an arbitrary fallible call.
type CircuitBreaker struct {
	config Config

	mu              sync.RWMutex
	state           State
	failures        int
	consecutiveSucc int
	lastStateChange time.Time
	halfOpenReqs    int
}

// New creates a circuit breaker from config, filling in defaults for any
// zero-valued field.
func New(config Config) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = 3
	}
	return &CircuitBreaker{config: config, state: StateClosed, lastStateChange: time.Now()}
}

// Execute runs fn through the breaker: rejected outright while open, then
// folded into the breaker's failure/success bookkeeping.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.beforeRequest(); err != nil {
		return err
	}
	err := fn()
	cb.afterRequest(err)
	return err
}

func (cb *CircuitBreaker) beforeRequest() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastStateChange) > cb.config.Timeout {
			cb.setState(StateHalfOpen)
			cb.halfOpenReqs = 0
			cb.config.Logger.Info().Str("breaker", cb.config.Name).Msg("circuit breaker entering half-open state")
			return nil
		}
		return fmt.Errorf("circuitbreaker: %q is open", cb.config.Name)

	case StateHalfOpen:
		if cb.halfOpenReqs >= cb.config.MaxRequests {
			return fmt.Errorf("circuitbreaker: %q half-open probe limit reached", cb.config.Name)
		}
		cb.halfOpenReqs++
		return nil

	default:
		return fmt.Errorf("circuitbreaker: unknown state")
	}
}

func (cb *CircuitBreaker) afterRequest(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.consecutiveSucc = 0

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
			cb.config.Logger.Warn().Str("breaker", cb.config.Name).Int("failures", cb.failures).Msg("circuit breaker opened")
		}
	case StateHalfOpen:
		cb.setState(StateOpen)
		cb.config.Logger.Warn().Str("breaker", cb.config.Name).Msg("circuit breaker re-opened after half-open failure")
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.consecutiveSucc++

	switch cb.state {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		if cb.consecutiveSucc >= cb.config.MaxRequests {
			cb.setState(StateClosed)
			cb.failures = 0
			cb.config.Logger.Info().Str("breaker", cb.config.Name).Msg("circuit breaker closed after half-open recovery")
		}
	}
}

// setState transitions the breaker and fires OnStateChange, if set. Must
// be called with cb.mu held.
func (cb *CircuitBreaker) setState(state State) {
	cb.state = state
	cb.lastStateChange = time.Now()
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, state)
	}
}

// State returns the breaker's current state, for monitoring.
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}
