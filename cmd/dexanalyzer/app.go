package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/NikhilSetiya/dexanalyzer/internal/analyzer"
	"github.com/NikhilSetiya/dexanalyzer/internal/dextools"
	"github.com/NikhilSetiya/dexanalyzer/internal/llm"
	"github.com/NikhilSetiya/dexanalyzer/internal/middleware"
	"github.com/NikhilSetiya/dexanalyzer/internal/report"
	"github.com/NikhilSetiya/dexanalyzer/pkg/config"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/health"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/metrics"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
	"github.com/NikhilSetiya/dexanalyzer/pkg/tracing"
)

// app holds everything a command needs, built once per invocation.
type app struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *metrics.Metrics
	tracing *tracing.TracingService
	health  *health.Service
	exec    *resilience.Executor
	// transport is shared by every executor the commands build.
	transport resilience.Transport
	server    *http.Server
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.LoggerConfig(version))
	if err != nil {
		return nil, err
	}

	ts, err := tracing.NewTracingService(&tracing.Config{
		ServiceName:    "dexanalyzer",
		ServiceVersion: version,
		Environment:    cfg.Tracing.Environment,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, err
	}

	m := metrics.NewMetrics(&metrics.Config{Namespace: cfg.Metrics.Namespace, Enabled: true})

	hs := health.NewService(logger, &health.Config{
		Timeout:  5 * time.Second,
		Metadata: map[string]string{"version": version, "chain": cfg.DexTools.Chain, "plan": cfg.DexTools.Plan},
	})
	hs.RegisterChecker("output_dir", health.NewOutputDirChecker(cfg.Output.Dir))
	hs.RegisterChecker("dextools_key", health.NewCustomChecker("dextools_key", func(ctx context.Context) (health.Status, string, error) {
		if err := cfg.RequireDexToolsKey(); err != nil {
			return health.StatusDegraded, "DexTools API key is not configured", nil
		}
		return health.StatusHealthy, "DexTools API key is configured", nil
	}))

	httpClient := ts.InstrumentHTTPClient(&http.Client{Timeout: cfg.DexTools.HTTPTimeout})
	transport := resilience.NewRestyTransport(resty.NewWithClient(httpClient))
	exec := resilience.NewExecutor(executorConfig(cfg),
		resilience.WithTransport(transport),
		resilience.WithLogger(logger),
		resilience.WithRecorder(m),
		resilience.WithTracer(ts.Tracer()),
	)

	a := &app{cfg: cfg, logger: logger, metrics: m, tracing: ts, health: hs, exec: exec, transport: transport}

	ctx := logging.WithRunID(cmd.Context(), logging.NewCorrelationID())
	cmd.SetContext(ctx)

	if cfg.Metrics.Addr != "" {
		a.serveTelemetry(cfg.Metrics.Addr)
	}

	logger.WithContext(ctx).WithField("command", cmd.CommandPath()).Debug("Runtime ready")
	return a, nil
}

// applyFlags overrides the environment with flags given on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	set := func(name string, dst *string, value string) {
		if flags.Changed(name) {
			*dst = value
		}
	}
	set("api-key", &cfg.DexTools.APIKey, apiKey)
	set("plan", &cfg.DexTools.Plan, plan)
	set("chain", &cfg.DexTools.Chain, chain)
	set("output-dir", &cfg.Output.Dir, outputDir)
	set("format", &cfg.Output.Format, format)
	set("log-level", &cfg.Logging.Level, logLevel)
	set("log-format", &cfg.Logging.Format, logFormat)
	set("metrics-addr", &cfg.Metrics.Addr, metricsAddr)

	if flags.Changed("profile") {
		cfg.DexTools.ProfilePath = profilePath
		profile, err := config.LoadProfile(profilePath)
		if err != nil {
			return err
		}
		cfg.SetProfile(profile)
	}
	return cfg.Validate()
}

func executorConfig(cfg *config.Config) resilience.Config {
	r := cfg.Retry
	return resilience.Config{
		MaxRetries:       r.MaxRetries,
		BaseDelay:        r.BaseDelay,
		MaxDelay:         r.MaxDelay,
		MaxJitter:        r.MaxJitter,
		PreDelayMin:      r.PreDelayMin,
		PreDelayMax:      r.PreDelayMax,
		AttemptTimeout:   r.AttemptTimeout,
		OperationTimeout: r.OperationTimeout,
	}
}

// dexClient returns the market-data client, failing before any network
// activity when no key is configured.
func (a *app) dexClient() (*dextools.Client, error) {
	if err := a.cfg.RequireDexToolsKey(); err != nil {
		return nil, err
	}
	return dextools.NewClientFromConfig(a.exec, a.cfg, a.logger), nil
}

// analyst returns the mock analyst, or the OpenAI analyst behind a circuit
// breaker whose state is reported on /health.
func (a *app) analyst(mock bool) (llm.Analyst, error) {
	if mock {
		return llm.NewMockAnalyst(), nil
	}
	if err := a.cfg.RequireLLMKey(); err != nil {
		return nil, err
	}

	c := a.cfg.LLM
	openai, err := llm.NewOpenAIAnalyst(llm.OpenAIConfig{
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		Timeout:    c.Timeout,
		HTTPClient: a.tracing.InstrumentHTTPClient(&http.Client{}),
		Logger:     a.logger,
	})
	if err != nil {
		return nil, err
	}

	guarded := llm.NewGuardedAnalyst(openai, llm.GuardConfig{
		MaxFailures: c.BreakerFailures,
		Cooldown:    c.BreakerCooldown,
		Logger:      a.logger,
		Recorder:    a.metrics,
	})
	a.health.RegisterChecker("llm_breaker", health.NewBreakerChecker(guarded.Breaker()))
	return guarded, nil
}

func (a *app) reportWriter() (*report.Writer, error) {
	formats, err := report.ParseFormats(a.cfg.Output.Format)
	if err != nil {
		return nil, err
	}
	return report.NewWriter(report.Options{
		Dir:      a.cfg.Output.Dir,
		Formats:  formats,
		Recorder: a.metrics,
		Logger:   a.logger,
	}), nil
}

func (a *app) analyzer(mock bool) (*analyzer.Service, error) {
	client, err := a.dexClient()
	if err != nil {
		return nil, err
	}
	analyst, err := a.analyst(mock)
	if err != nil {
		return nil, err
	}
	writer, err := a.reportWriter()
	if err != nil {
		return nil, err
	}

	return analyzer.NewService(client, analyst, writer, &analyzer.Config{
		Concurrency:    a.cfg.Analysis.Concurrency,
		LLMInterval:    a.cfg.LLM.MinInterval,
		RecentPageSize: analyzer.DefaultConfig().RecentPageSize,
	}, analyzer.WithLogger(a.logger), analyzer.WithTracing(a.tracing)), nil
}

// recordError logs a failed command and counts it by error type.
func (a *app) recordError(ctx context.Context, component string, err error) {
	if err == nil {
		return
	}
	kind := string(apperrors.GetType(err))
	if resilience.IsCircuitBreakerError(err) {
		kind = "circuit_open"
	}
	a.metrics.RecordError(component, kind)
	a.logger.LogError(ctx, err, "Command failed", logrus.Fields{"component": component, "kind": kind})
}

// serveTelemetry exposes metrics and health on addr until Close.
func (a *app) serveTelemetry(addr string) {
	a.server = &http.Server{
		Addr:              addr,
		Handler:           telemetryRouter(a.logger, a.metrics, a.health, a.tracing),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("Telemetry server failed", "addr", addr, "error", err)
		}
	}()
	a.logger.Info("Telemetry server listening", "addr", addr)
}

// telemetryRouter serves /metrics, /health and /livez.
func telemetryRouter(logger *logging.Logger, m *metrics.Metrics, hs *health.Service, ts *tracing.TracingService) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(logger), middleware.Logging(logger), ts.TracingMiddleware(), m.PrometheusMiddleware())

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/health", hs.Handler())
	router.GET("/livez", hs.LivenessHandler())
	return router
}

// Close stops the telemetry server and flushes spans.
func (a *app) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	if a.server != nil {
		errs = append(errs, a.server.Shutdown(ctx))
	}
	errs = append(errs, a.tracing.Shutdown(ctx))
	return errors.Join(errs...)
}
