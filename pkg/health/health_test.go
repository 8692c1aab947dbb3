package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

func TestService_CheckHealth(t *testing.T) {
	tests := []struct {
		name     string
		statuses []Status
		expected Status
	}{
		{name: "no checkers", expected: StatusHealthy},
		{name: "all healthy", statuses: []Status{StatusHealthy, StatusHealthy}, expected: StatusHealthy},
		{name: "one degraded", statuses: []Status{StatusHealthy, StatusDegraded}, expected: StatusDegraded},
		{name: "unhealthy wins", statuses: []Status{StatusDegraded, StatusUnhealthy, StatusHealthy}, expected: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, nil)
			for i, status := range tt.statuses {
				status := status
				svc.RegisterChecker(string(rune('a'+i)), NewCustomChecker("c", func(ctx context.Context) (Status, string, error) {
					return status, "", nil
				}))
			}

			resp := svc.CheckHealth(context.Background())
			assert.Equal(t, tt.expected, resp.Status)
			assert.Len(t, resp.Checks, len(tt.statuses))
		})
	}
}

func TestCustomChecker_ErrorForcesUnhealthy(t *testing.T) {
	check := NewCustomChecker("config", func(ctx context.Context) (Status, string, error) {
		return StatusHealthy, "keys", errors.New("DEXTOOLS_API_KEY is not set")
	}).WithMetadata(map[string]string{"plan": "trial"}).Check(context.Background())

	assert.Equal(t, StatusUnhealthy, check.Status)
	assert.Equal(t, "DEXTOOLS_API_KEY is not set", check.Error)
	assert.Equal(t, "trial", check.Metadata["plan"])
}

func TestBreakerChecker(t *testing.T) {
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "openai",
		Timeout:     time.Minute,
		ReadyToTrip: func(c resilience.Counts) bool { return c.ConsecutiveFailures >= 1 },
		Now:         func() time.Time { return now },
	})
	checker := NewBreakerChecker(cb)

	check := checker.Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.Equal(t, "openai", check.Name)

	_, _ = cb.Execute(context.Background(), func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("down")
	})

	check = checker.Check(context.Background())
	assert.Equal(t, StatusDegraded, check.Status)
	assert.Equal(t, "open", check.Metadata["state"])

	assert.Equal(t, StatusUnknown, NewBreakerChecker(nil).Check(context.Background()).Status)
}

func TestOutputDirChecker(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "outputs")
	check := NewOutputDirChecker(dir).Check(context.Background())
	assert.Equal(t, StatusHealthy, check.Status)
	assert.DirExists(t, dir)

	entries, err := filepath.Glob(filepath.Join(dir, "*"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := NewService(nil, &Config{Timeout: time.Second, Metadata: map[string]string{"version": "test"}})
	svc.RegisterChecker("config", NewCustomChecker("config", func(ctx context.Context) (Status, string, error) {
		return StatusUnhealthy, "missing key", nil
	}))

	router := gin.New()
	router.GET("/health", svc.Handler())
	router.GET("/health/live", svc.LivenessHandler())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, StatusUnhealthy, body.Status)
	assert.Equal(t, "test", body.Metadata["version"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
