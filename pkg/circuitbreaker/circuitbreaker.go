// Package circuitbreaker implements the Circuit Breaker pattern.
// It shields the engine from a failing course-catalog service: once the
// catalog starts timing out, events fail fast instead of piling up on a
// dead upstream.
// No external dependencies - uses only standard library.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the current mode of the breaker.
type State int

const (
	// StateClosed - normal operation, requests pass through.
	StateClosed State = iota
	// StateOpen - requests are rejected immediately.
	StateOpen
	// StateHalfOpen - a probe request is allowed to test recovery.
	StateHalfOpen
)

// String returns the state name.
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

var (
	// ErrCircuitOpen is returned while the breaker rejects requests.
	ErrCircuitOpen = errors.New("circuit breaker is open")
)

// Config holds breaker tuning.
type Config struct {
	// Name identifies the breaker in logs.
	Name string

	// FailureThreshold - consecutive failures before opening. Default: 5.
	FailureThreshold int

	// SuccessThreshold - consecutive half-open successes before closing. Default: 2.
	SuccessThreshold int

	// Cooldown - time in open state before allowing a probe. Default: 30s.
	Cooldown time.Duration

	// OnStateChange is invoked on transitions.
	OnStateChange func(name string, from, to State)

	// IsFailure classifies errors; nil counts every non-nil error.
	IsFailure func(error) bool
}

// Option configures the breaker.
type Option func(*Config)

// WithFailureThreshold sets the consecutive-failure limit.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the half-open success requirement.
func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

// WithCooldown sets the open-state cooldown.
func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Cooldown = d
		}
	}
}

// WithOnStateChange sets the transition callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

// WithIsFailure sets the error classifier.
func WithIsFailure(fn func(error) bool) Option {
	return func(c *Config) { c.IsFailure = fn }
}

// CircuitBreaker tracks failures across calls to one dependency.
type CircuitBreaker struct {
	config Config

	mu              sync.Mutex
	state           State
	consecFailures  int
	consecSuccesses int
	lastFailureAt   time.Time
	probeInFlight   bool
}

// New creates a breaker in the closed state.
func New(name string, opts ...Option) *CircuitBreaker {
	cfg := Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &CircuitBreaker{config: cfg, state: StateClosed}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs fn if the breaker allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	cb.record(err)
	return err
}

// allow decides whether a request may proceed.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailureAt) >= cb.config.Cooldown {
			cb.transition(StateHalfOpen)
			cb.probeInFlight = true
			return nil
		}
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.probeInFlight {
			return ErrCircuitOpen
		}
		cb.probeInFlight = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

// record updates counters and transitions after a request.
func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probeInFlight = false

	failed := err != nil
	if err != nil && cb.config.IsFailure != nil {
		failed = cb.config.IsFailure(err)
	}

	if failed {
		cb.consecFailures++
		cb.consecSuccesses = 0
		cb.lastFailureAt = time.Now()

		switch cb.state {
		case StateClosed:
			if cb.consecFailures >= cb.config.FailureThreshold {
				cb.transition(StateOpen)
			}
		case StateHalfOpen:
			// Probe failed, back to open.
			cb.transition(StateOpen)
		}
		return
	}

	cb.consecSuccesses++
	cb.consecFailures = 0

	if cb.state == StateHalfOpen && cb.consecSuccesses >= cb.config.SuccessThreshold {
		cb.transition(StateClosed)
	}
}

// transition switches state and fires the callback. Caller holds cb.mu.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.consecFailures = 0
	cb.consecSuccesses = 0

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
