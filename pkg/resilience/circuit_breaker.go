package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

// CircuitState is the breaker position. The numeric values are exported as
// the llm_breaker_state gauge.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	Name string
	// MaxRequests is both the number of trial calls let through while half-open
	// and the consecutive successes needed to close again. Zero means one.
	MaxRequests uint32
	// Interval clears the counts periodically while closed. Zero never clears.
	Interval time.Duration
	// Timeout is how long the breaker stays open before trying again.
	Timeout time.Duration
	// ReadyToTrip decides, after each failure while closed, whether to open.
	// Defaults to at least 5 calls with 60% of them failed.
	ReadyToTrip   func(counts Counts) bool
	OnStateChange func(name string, from, to CircuitState)
	Logger        *logging.Logger
	Now           func() time.Time
}

// Counts are the call outcomes seen in the current window. A window ends on
// every state change and, while closed, every Interval.
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

func (c *Counts) success() {
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
}

func (c *Counts) failure() {
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
}

// CircuitBreaker stops calls to a dependency that keeps failing, so a batch
// run does not spend a full timeout on every remaining item.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu     sync.Mutex
	state  CircuitState
	window uint64
	counts Counts
	// deadline ends the current window; zero means it never ends.
	deadline time.Time
}

// NewCircuitBreaker creates a closed breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = func(c Counts) bool {
			return c.Requests >= 5 && float64(c.TotalFailures) >= 0.6*float64(c.Requests)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cb := &CircuitBreaker{cfg: cfg}
	cb.reset(cfg.Now())
	return cb
}

// Name returns the name of the circuit breaker
func (cb *CircuitBreaker) Name() string { return cb.cfg.Name }

// State returns the current state, moving an expired open breaker to half-open.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.settle(cb.cfg.Now())
	return cb.state
}

// Counts returns a copy of the current window's counts.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Execute runs fn unless the breaker rejects the call with a
// *CircuitBreakerError. A panic in fn counts as a failure and is re-raised.
// A call that ends with context.Canceled is not counted either way.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	window, err := cb.admit()
	if err != nil {
		return nil, err
	}

	ok := false
	defer func() {
		if !ok {
			cb.record(window, false)
		}
	}()

	result, err := fn(ctx)
	ok = true
	if errors.Is(err, context.Canceled) {
		cb.release(window)
		return result, err
	}
	cb.record(window, err == nil)
	return result, err
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.settle(cb.cfg.Now())
	switch {
	case cb.state == StateOpen:
		return 0, &CircuitBreakerError{Name: cb.cfg.Name, State: cb.state}
	case cb.state == StateHalfOpen && cb.counts.Requests >= cb.cfg.MaxRequests:
		return 0, &CircuitBreakerError{Name: cb.cfg.Name, State: cb.state, TooManyRequests: true}
	}
	cb.counts.Requests++
	return cb.window, nil
}

// release gives back an admitted request without booking an outcome, so a
// cancelled half-open trial does not hold the only slot.
func (cb *CircuitBreaker) release(window uint64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.settle(cb.cfg.Now())
	if window == cb.window && cb.counts.Requests > 0 {
		cb.counts.Requests--
	}
}

// record books an outcome. Outcomes from an earlier window are dropped.
func (cb *CircuitBreaker) record(window uint64, success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.cfg.Now()
	cb.settle(now)
	if window != cb.window {
		return
	}

	if success {
		cb.counts.success()
		if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.cfg.MaxRequests {
			cb.transition(StateClosed, now)
		}
		return
	}

	cb.counts.failure()
	switch cb.state {
	case StateHalfOpen:
		cb.transition(StateOpen, now)
	case StateClosed:
		if cb.cfg.ReadyToTrip(cb.counts) {
			cb.transition(StateOpen, now)
		}
	}
}

// settle applies time-based changes: a closed window rolls over after
// Interval and an open breaker turns half-open after Timeout.
func (cb *CircuitBreaker) settle(now time.Time) {
	if cb.deadline.IsZero() || !now.After(cb.deadline) {
		return
	}
	switch cb.state {
	case StateClosed:
		cb.reset(now)
	case StateOpen:
		cb.transition(StateHalfOpen, now)
	}
}

func (cb *CircuitBreaker) transition(to CircuitState, now time.Time) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.reset(now)

	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
	cb.cfg.Logger.Info("Circuit breaker state changed", "name", cb.cfg.Name, "from", from.String(), "to", to.String())
}

// reset starts a new window for the current state.
func (cb *CircuitBreaker) reset(now time.Time) {
	cb.window++
	cb.counts = Counts{}
	cb.deadline = time.Time{}

	switch cb.state {
	case StateClosed:
		if cb.cfg.Interval > 0 {
			cb.deadline = now.Add(cb.cfg.Interval)
		}
	case StateOpen:
		cb.deadline = now.Add(cb.cfg.Timeout)
	}
}

// CircuitBreakerError is returned when the breaker rejects a call.
type CircuitBreakerError struct {
	Name            string
	State           CircuitState
	TooManyRequests bool
}

func (e *CircuitBreakerError) Error() string {
	if e.TooManyRequests {
		return fmt.Sprintf("circuit breaker %q is %s and its trial calls are in flight", e.Name, e.State)
	}
	return fmt.Sprintf("circuit breaker %q is %s", e.Name, e.State)
}

// IsCircuitBreakerError reports whether err is a breaker rejection.
func IsCircuitBreakerError(err error) bool {
	var cbErr *CircuitBreakerError
	return errors.As(err, &cbErr)
}
