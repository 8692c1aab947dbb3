package llm

import (
	"context"
	"errors"
	"time"

	"github.com/NikhilSetiya/dexanalyzer/internal/prompts"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

// Recorder receives LLM measurements. *metrics.Metrics implements it.
type Recorder interface {
	RecordLLMRequest(provider, status string, duration time.Duration)
	UpdateBreakerState(name string, state int)
}

type nopRecorder struct{}

func (nopRecorder) RecordLLMRequest(string, string, time.Duration) {}
func (nopRecorder) UpdateBreakerState(string, int)                 {}

// GuardConfig configures a GuardedAnalyst.
type GuardConfig struct {
	// MaxFailures consecutive failures open the breaker.
	MaxFailures uint32
	// Cooldown is how long the breaker stays open before probing again.
	Cooldown time.Duration
	Logger   *logging.Logger
	Recorder Recorder
	Now      func() time.Time
}

// GuardedAnalyst stops calling an analyst that keeps failing, so one dead
// endpoint does not cost a timeout per token for the rest of a batch.
type GuardedAnalyst struct {
	inner    Analyst
	breaker  *resilience.CircuitBreaker
	recorder Recorder
}

// NewGuardedAnalyst wraps inner in a circuit breaker.
func NewGuardedAnalyst(inner Analyst, cfg GuardConfig) *GuardedAnalyst {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = time.Minute
	}
	if cfg.Recorder == nil {
		cfg.Recorder = nopRecorder{}
	}
	recorder := cfg.Recorder

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        inner.Provider(),
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, _, to resilience.CircuitState) {
			recorder.UpdateBreakerState(name, int(to))
		},
		Logger: cfg.Logger,
		Now:    cfg.Now,
	})
	recorder.UpdateBreakerState(breaker.Name(), int(resilience.StateClosed))

	return &GuardedAnalyst{inner: inner, breaker: breaker, recorder: recorder}
}

// Provider implements Analyst.
func (g *GuardedAnalyst) Provider() string { return g.inner.Provider() }

// Breaker exposes the circuit breaker for health reporting.
func (g *GuardedAnalyst) Breaker() *resilience.CircuitBreaker { return g.breaker }

// Analyze runs the inner analyst unless the breaker is open, in which case it
// fails fast with a *resilience.CircuitBreakerError.
func (g *GuardedAnalyst) Analyze(ctx context.Context, prompt prompts.Prompt, data any) (*Analysis, error) {
	start := time.Now()
	result, err := g.breaker.Execute(ctx, func(ctx context.Context) (interface{}, error) {
		return g.inner.Analyze(ctx, prompt, data)
	})

	status := "success"
	switch {
	case resilience.IsCircuitBreakerError(err):
		status = "rejected"
	case errors.Is(err, context.Canceled):
		status = "canceled"
	case err != nil:
		status = "error"
	}
	g.recorder.RecordLLMRequest(g.inner.Provider(), status, time.Since(start))

	if err != nil {
		return nil, err
	}
	return result.(*Analysis), nil
}
