// Package health reports whether a running analyzer can do useful work: the
// report directory is writable, keys are configured and the LLM breaker is
// closed.
package health

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
	StatusUnknown   Status = "unknown"
)

// severity orders statuses for aggregation. Unknown does not affect the
// overall result.
func (s Status) severity() int {
	switch s {
	case StatusUnhealthy:
		return 2
	case StatusDegraded:
		return 1
	}
	return 0
}

// Check is the result of one checker.
type Check struct {
	Name      string            `json:"name"`
	Status    Status            `json:"status"`
	Message   string            `json:"message,omitempty"`
	Error     string            `json:"error,omitempty"`
	Duration  time.Duration     `json:"duration"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// HealthResponse is the body served on /health.
type HealthResponse struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Duration  time.Duration     `json:"duration"`
	Checks    map[string]*Check `json:"checks"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Checker interface for health checks
type Checker interface {
	Check(ctx context.Context) *Check
}

// timed runs fn and stamps the check with its start and duration.
func timed(name string, fn func(c *Check)) *Check {
	start := time.Now()
	c := &Check{Name: name, Timestamp: start}
	fn(c)
	c.Duration = time.Since(start)
	return c
}

// Config holds health check configuration
type Config struct {
	Timeout  time.Duration     `json:"timeout"`
	Metadata map[string]string `json:"metadata"`
}

// DefaultConfig returns default health check configuration
func DefaultConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

// Service runs the registered checkers.
type Service struct {
	mu       sync.RWMutex
	checkers map[string]Checker

	logger   *logging.Logger
	metadata map[string]string
	timeout  time.Duration
}

// NewService creates a new health check service
func NewService(logger *logging.Logger, config *Config) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		checkers: map[string]Checker{},
		logger:   logger,
		metadata: config.Metadata,
		timeout:  config.Timeout,
	}
}

// RegisterChecker adds or replaces the checker under name.
func (s *Service) RegisterChecker(name string, checker Checker) {
	s.mu.Lock()
	s.checkers[name] = checker
	s.mu.Unlock()
}

// CheckHealth runs every checker concurrently. The overall status is the
// worst individual status.
func (s *Service) CheckHealth(ctx context.Context) *HealthResponse {
	start := time.Now()

	s.mu.RLock()
	names := make([]string, 0, len(s.checkers))
	checkers := make([]Checker, 0, len(s.checkers))
	for name, c := range s.checkers {
		names = append(names, name)
		checkers = append(checkers, c)
	}
	s.mu.RUnlock()

	results := make([]*Check, len(checkers))
	var g errgroup.Group
	for i, c := range checkers {
		g.Go(func() error {
			results[i] = c.Check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp := &HealthResponse{
		Status:   StatusHealthy,
		Checks:   make(map[string]*Check, len(results)),
		Metadata: s.metadata,
	}
	for i, check := range results {
		resp.Checks[names[i]] = check
		if check.Status.severity() > resp.Status.severity() {
			resp.Status = check.Status
		}
	}
	resp.Timestamp = time.Now()
	resp.Duration = time.Since(start)

	if resp.Status != StatusHealthy {
		s.logger.WithContext(ctx).WithField("status", resp.Status).Warn("Health check not healthy")
	}
	return resp
}

// Handler serves the aggregate health. Only unhealthy maps to 503; degraded
// still serves 200 so a run with an open LLM breaker is not restarted.
func (s *Service) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.timeout)
		defer cancel()

		resp := s.CheckHealth(ctx)
		code := http.StatusOK
		if resp.Status == StatusUnhealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, resp)
	}
}

// LivenessHandler answers as long as the process is serving.
func (s *Service) LivenessHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "alive", "timestamp": time.Now()})
	}
}

// BreakerChecker reports a circuit breaker's state. Open is degraded, not
// unhealthy: the run keeps producing data-only output while it is open.
type BreakerChecker struct {
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for breaker
func NewBreakerChecker(breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{breaker: breaker}
}

// Check implements Checker.
func (bc *BreakerChecker) Check(ctx context.Context) *Check {
	if bc.breaker == nil {
		return timed("breaker", func(c *Check) {
			c.Status = StatusUnknown
			c.Message = "no circuit breaker configured"
		})
	}

	return timed(bc.breaker.Name(), func(c *Check) {
		state := bc.breaker.State()
		counts := bc.breaker.Counts()
		c.Metadata = map[string]string{
			"state":                state.String(),
			"requests":             strconv.FormatUint(uint64(counts.Requests), 10),
			"consecutive_failures": strconv.FormatUint(uint64(counts.ConsecutiveFailures), 10),
		}

		c.Status, c.Message = StatusDegraded, "circuit is "+state.String()
		if state == resilience.StateClosed {
			c.Status = StatusHealthy
		}
	})
}

// OutputDirChecker verifies the report directory can be written to
type OutputDirChecker struct {
	path string
}

// NewOutputDirChecker creates a new output directory checker
func NewOutputDirChecker(path string) *OutputDirChecker {
	return &OutputDirChecker{path: path}
}

// Check creates the directory if needed, then writes and removes a probe file.
func (oc *OutputDirChecker) Check(ctx context.Context) *Check {
	return timed("output_dir", func(c *Check) {
		c.Metadata = map[string]string{"path": oc.path}
		c.Status = StatusUnhealthy

		if err := os.MkdirAll(oc.path, 0o755); err != nil {
			c.Error = err.Error()
			return
		}
		f, err := os.CreateTemp(oc.path, ".health-*")
		if err != nil {
			c.Error = "directory is not writable: " + err.Error()
			return
		}
		_ = f.Close()
		_ = os.Remove(f.Name())

		c.Status = StatusHealthy
		c.Message = "output directory is writable"
	})
}

// CustomChecker adapts a function into a Checker.
type CustomChecker struct {
	name     string
	checkFn  func(ctx context.Context) (Status, string, error)
	metadata map[string]string
}

// NewCustomChecker creates a new custom health checker
func NewCustomChecker(name string, checkFn func(ctx context.Context) (Status, string, error)) *CustomChecker {
	return &CustomChecker{name: name, checkFn: checkFn}
}

// WithMetadata attaches static metadata to every check.
func (cc *CustomChecker) WithMetadata(metadata map[string]string) *CustomChecker {
	cc.metadata = metadata
	return cc
}

// Check implements Checker. A returned error makes a healthy status unhealthy.
func (cc *CustomChecker) Check(ctx context.Context) *Check {
	return timed(cc.name, func(c *Check) {
		c.Metadata = cc.metadata
		var err error
		c.Status, c.Message, err = cc.checkFn(ctx)
		if err != nil {
			c.Error = err.Error()
			if c.Status == StatusHealthy {
				c.Status = StatusUnhealthy
			}
		}
	})
}
