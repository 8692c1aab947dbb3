package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func failing(ctx context.Context) (interface{}, error)    { return nil, errors.New("llm unavailable") }
func succeeding(ctx context.Context) (interface{}, error) { return "analysis", nil }
func cancelled(ctx context.Context) (interface{}, error) {
	return nil, fmt.Errorf("chat completion: %w", context.Canceled)
}

func TestCircuitBreaker_DefaultBehavior(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "llm",
		MaxRequests: 3,
		Interval:    time.Second,
		Timeout:     time.Second,
	})

	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "llm", cb.Name())

	for i := 0; i < 5; i++ {
		result, err := cb.Execute(context.Background(), succeeding)
		require.NoError(t, err)
		assert.Equal(t, "analysis", result)
		assert.Equal(t, StateClosed, cb.State())
	}
}

func TestCircuitBreaker_TripsOnFailures(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "llm",
		MaxRequests: 3,
		Timeout:     time.Minute,
		Now:         clock.Now,
	})

	for i := 0; i < 5; i++ {
		_, err := cb.Execute(context.Background(), failing)
		require.Error(t, err)
		assert.False(t, IsCircuitBreakerError(err))
	}
	assert.Equal(t, StateOpen, cb.State())

	called := false
	_, err := cb.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		called = true
		return nil, nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.True(t, IsCircuitBreakerError(err))
	assert.Contains(t, err.Error(), "circuit breaker \"llm\" is open")
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "llm",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		Now:         clock.Now,
	})

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(context.Background(), failing)
	}
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(31 * time.Second)
	assert.Equal(t, StateHalfOpen, cb.State())

	_, err := cb.Execute(context.Background(), succeeding)
	require.NoError(t, err)
	assert.Equal(t, StateHalfOpen, cb.State())

	_, err = cb.Execute(context.Background(), succeeding)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "llm",
		MaxRequests: 2,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:         clock.Now,
	})

	_, _ = cb.Execute(context.Background(), failing)
	require.Equal(t, StateOpen, cb.State())

	clock.Advance(time.Minute)
	_, err := cb.Execute(context.Background(), failing)
	require.Error(t, err)
	assert.False(t, IsCircuitBreakerError(err))
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 2 },
		OnStateChange: func(name string, from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	_, _ = cb.Execute(context.Background(), failing)
	assert.Equal(t, StateClosed, cb.State())
	assert.Empty(t, transitions)

	_, _ = cb.Execute(context.Background(), failing)
	assert.Equal(t, StateOpen, cb.State())
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestCircuitBreaker_Counts(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "llm", MaxRequests: 3})

	_, _ = cb.Execute(context.Background(), succeeding)
	_, _ = cb.Execute(context.Background(), failing)
	_, _ = cb.Execute(context.Background(), succeeding)

	counts := cb.Counts()
	assert.Equal(t, uint32(3), counts.Requests)
	assert.Equal(t, uint32(2), counts.TotalSuccesses)
	assert.Equal(t, uint32(1), counts.TotalFailures)
	assert.Equal(t, uint32(1), counts.ConsecutiveSuccesses)
	assert.Equal(t, uint32(0), counts.ConsecutiveFailures)
}

func TestCircuitBreaker_IntervalResetsCounts(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:     "llm",
		Interval: 10 * time.Second,
		Now:      clock.Now,
	})

	_, _ = cb.Execute(context.Background(), failing)
	assert.Equal(t, uint32(1), cb.Counts().TotalFailures)

	clock.Advance(11 * time.Second)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
}

func TestCircuitBreaker_Panic(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "llm", MaxRequests: 3})

	assert.Panics(t, func() {
		_, _ = cb.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
			panic("test panic")
		})
	})

	counts := cb.Counts()
	assert.Equal(t, uint32(1), counts.Requests)
	assert.Equal(t, uint32(1), counts.TotalFailures)
}

func TestCircuitBreaker_CancellationNotCounted(t *testing.T) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		Name:        "llm",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:         clock.Now,
	})

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(context.Background(), cancelled)
		require.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())

	_, _ = cb.Execute(context.Background(), failing)
	require.Equal(t, StateOpen, cb.State())
	clock.Advance(31 * time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	// A cancelled trial leaves the half-open slot free for the next call.
	_, err := cb.Execute(context.Background(), cancelled)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHalfOpen, cb.State())

	_, err = cb.Execute(context.Background(), succeeding)
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}
