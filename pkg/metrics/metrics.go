package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// Market-data API metrics
	APIAttemptsTotal   *prometheus.CounterVec
	APIOperationsTotal *prometheus.CounterVec
	APIBackoffSeconds  *prometheus.HistogramVec
	APIAttemptDuration *prometheus.HistogramVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec
	LLMBreakerState    *prometheus.GaugeVec

	// Output metrics
	ReportsWrittenTotal *prometheus.CounterVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec

	// Telemetry server metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "dexanalyzer",
		Subsystem: "",
		Enabled:   true,
	}
}

// NewMetrics creates all metrics and registers them on a private registry.
// A disabled config yields a Metrics whose Record methods are no-ops.
func NewMetrics(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Metrics{}
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		APIAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "api_attempts_total",
				Help:      "Total number of market-data API attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		APIOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "api_operations_total",
				Help:      "Total number of market-data API operations by final status",
			},
			[]string{"operation", "status"},
		),
		APIBackoffSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "api_backoff_seconds",
				Help:      "Backoff waited between market-data API attempts",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32},
			},
			[]string{"operation"},
		),
		APIAttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "api_attempt_duration_seconds",
				Help:      "Duration of a single market-data API attempt",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		LLMRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM analysis requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM analysis request duration in seconds",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60},
			},
			[]string{"provider"},
		),
		LLMBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "llm_breaker_state",
				Help:      "LLM circuit breaker state (0 closed, 1 open, 2 half-open)",
			},
			[]string{"name"},
		),

		ReportsWrittenTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "reports_written_total",
				Help:      "Total number of report files written",
			},
			[]string{"kind", "format"},
		),

		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "errors_total",
				Help:      "Total number of errors by component and type",
			},
			[]string{"component", "type"},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of telemetry HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Telemetry HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.APIAttemptsTotal,
		m.APIOperationsTotal,
		m.APIBackoffSeconds,
		m.APIAttemptDuration,
		m.LLMRequestsTotal,
		m.LLMRequestDuration,
		m.LLMBreakerState,
		m.ReportsWrittenTotal,
		m.ErrorsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordAPIAttempt records one executor attempt
func (m *Metrics) RecordAPIAttempt(operation, outcome string, duration time.Duration) {
	if m.APIAttemptsTotal == nil {
		return
	}

	m.APIAttemptsTotal.WithLabelValues(operation, outcome).Inc()
	m.APIAttemptDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIBackoff records a backoff wait
func (m *Metrics) RecordAPIBackoff(operation string, delay time.Duration) {
	if m.APIBackoffSeconds == nil {
		return
	}

	m.APIBackoffSeconds.WithLabelValues(operation).Observe(delay.Seconds())
}

// RecordAPIOperation records the final status of an executor call
func (m *Metrics) RecordAPIOperation(operation, status string) {
	if m.APIOperationsTotal == nil {
		return
	}

	m.APIOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordLLMRequest records an LLM analysis request
func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	if m.LLMRequestsTotal == nil {
		return
	}

	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

// UpdateBreakerState records the numeric state of a circuit breaker
func (m *Metrics) UpdateBreakerState(name string, state int) {
	if m.LLMBreakerState == nil {
		return
	}

	m.LLMBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordReport records a written report file
func (m *Metrics) RecordReport(kind, format string) {
	if m.ReportsWrittenTotal == nil {
		return
	}

	m.ReportsWrittenTotal.WithLabelValues(kind, format).Inc()
}

// RecordError records error metrics
func (m *Metrics) RecordError(component, errorType string) {
	if m.ErrorsTotal == nil {
		return
	}

	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records telemetry HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m.HTTPRequestsTotal == nil {
		return
	}

	statusStr := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
}

// PrometheusMiddleware creates a middleware for Prometheus metrics collection
func (m *Metrics) PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Handler returns the Prometheus metrics HTTP handler for the private registry
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
