package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// TimerSleeper waits on a real timer.
type TimerSleeper struct{}

// Sleep blocks for d unless ctx finishes first, in which case it returns ctx.Err().
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RandomSource supplies the executor's randomness. Implementations must be
// safe for concurrent use.
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRandom uses the runtime's goroutine-safe generator.
func DefaultRandom() RandomSource { return globalRand{} }

// LockedRand is a seeded, mutex-guarded source for reproducible runs.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLockedRand returns a deterministic source seeded with seed.
func NewLockedRand(seed uint64) *LockedRand {
	return &LockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *LockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// backoffDelay returns min(base*2^(attempt-1), max) + jitter for the wait
// after the given 1-based attempt. Jitter is uniform in [0, maxJitter).
func backoffDelay(attempt int, base, ceiling, maxJitter time.Duration, rnd RandomSource) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if ceiling > 0 && delay > float64(ceiling) {
		delay = float64(ceiling)
	}
	if maxJitter > 0 {
		delay += rnd.Float64() * float64(maxJitter)
	}
	return time.Duration(delay)
}

// uniformDelay draws from [lo, hi]. A degenerate window returns lo.
func uniformDelay(lo, hi time.Duration, rnd RandomSource) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rnd.Float64()*float64(hi-lo))
}
