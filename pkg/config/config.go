package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
)

// Plans lists the DexTools subscription plans, in the order the probe tries them.
var Plans = []string{"free", "trial", "standard", "advanced", "pro", "partner"}

// Config holds the application configuration
type Config struct {
	DexTools DexToolsConfig
	Retry    RetryConfig
	LLM      LLMConfig
	Output   OutputConfig
	Analysis AnalysisConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
	Tracing  TracingConfig

	profile *EndpointProfile
}

// DexToolsConfig contains market-data API configuration
type DexToolsConfig struct {
	APIKey      string        `env:"DEXTOOLS_API_KEY"`
	Plan        string        `env:"DEXTOOLS_PLAN" envDefault:"trial"`
	BaseURLs    []string      `env:"DEXTOOLS_BASE_URLS" envSeparator:","`
	Chain       string        `env:"DEXTOOLS_CHAIN" envDefault:"solana"`
	ProbeChain  string        `env:"DEXTOOLS_PROBE_CHAIN" envDefault:"ether"`
	ProfilePath string        `env:"DEXTOOLS_PROFILE"`
	HTTPTimeout time.Duration `env:"DEXTOOLS_HTTP_TIMEOUT" envDefault:"30s"`
}

// RetryConfig contains the request executor tuning
type RetryConfig struct {
	MaxRetries       int           `env:"RETRY_MAX_RETRIES" envDefault:"3"`
	BaseDelay        time.Duration `env:"RETRY_BASE_DELAY" envDefault:"2s"`
	MaxDelay         time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`
	MaxJitter        time.Duration `env:"RETRY_MAX_JITTER" envDefault:"1s"`
	PreDelayMin      time.Duration `env:"RETRY_PRE_DELAY_MIN" envDefault:"500ms"`
	PreDelayMax      time.Duration `env:"RETRY_PRE_DELAY_MAX" envDefault:"1500ms"`
	AttemptTimeout   time.Duration `env:"RETRY_ATTEMPT_TIMEOUT" envDefault:"30s"`
	OperationTimeout time.Duration `env:"RETRY_OPERATION_TIMEOUT" envDefault:"0s"`
}

// LLMConfig contains completion API configuration
type LLMConfig struct {
	APIKey          string        `env:"OPENAI_API_KEY"`
	BaseURL         string        `env:"OPENAI_BASE_URL"`
	Model           string        `env:"OPENAI_MODEL" envDefault:"gpt-4o"`
	Timeout         time.Duration `env:"OPENAI_TIMEOUT" envDefault:"60s"`
	MinInterval     time.Duration `env:"LLM_MIN_INTERVAL" envDefault:"1s"`
	BreakerFailures uint32        `env:"LLM_BREAKER_MAX_FAILURES" envDefault:"3"`
	BreakerCooldown time.Duration `env:"LLM_BREAKER_COOLDOWN" envDefault:"60s"`
}

// OutputConfig contains report output configuration
type OutputConfig struct {
	Dir    string `env:"OUTPUT_DIR" envDefault:"outputs"`
	Format string `env:"OUTPUT_FORMAT" envDefault:"markdown"`
}

// AnalysisConfig contains batch flow configuration
type AnalysisConfig struct {
	Concurrency int `env:"ANALYSIS_CONCURRENCY" envDefault:"4"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"text"`
	Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
}

// MetricsConfig contains Prometheus configuration
type MetricsConfig struct {
	Addr      string `env:"METRICS_ADDR"`
	Namespace string `env:"METRICS_NAMESPACE" envDefault:"dexanalyzer"`
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled        bool    `env:"TRACING_ENABLED" envDefault:"false"`
	JaegerEndpoint string  `env:"JAEGER_ENDPOINT" envDefault:"http://localhost:14268/api/traces"`
	SamplingRate   float64 `env:"TRACING_SAMPLING_RATE" envDefault:"1.0"`
	Environment    string  `env:"ENVIRONMENT" envDefault:"development"`
}

// Load seeds the environment from envFile (a missing file is not an error),
// parses it into a Config, loads the endpoint profile and validates the result.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewConfigurationError("env_file", "failed to load env file").WithCause(err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, apperrors.NewConfigurationError("environment", "failed to parse environment").WithCause(err)
	}

	if cfg.DexTools.ProfilePath != "" {
		profile, err := LoadProfile(cfg.DexTools.ProfilePath)
		if err != nil {
			return nil, err
		}
		cfg.profile = profile
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if !IsKnownPlan(c.DexTools.Plan) {
		return apperrors.NewConfigurationError("DEXTOOLS_PLAN",
			fmt.Sprintf("unknown plan %q (expected one of %s)", c.DexTools.Plan, strings.Join(Plans, ", ")))
	}
	if c.DexTools.Chain == "" {
		return apperrors.NewConfigurationError("DEXTOOLS_CHAIN", "chain must not be empty")
	}

	r := c.Retry
	if r.MaxRetries < 0 {
		return apperrors.NewConfigurationError("RETRY_MAX_RETRIES", "max retries must be >= 0")
	}
	if r.BaseDelay < 0 || r.MaxDelay < 0 || r.MaxJitter < 0 {
		return apperrors.NewConfigurationError("RETRY_BASE_DELAY", "retry delays must be >= 0")
	}
	if r.PreDelayMin < 0 || r.PreDelayMax < r.PreDelayMin {
		return apperrors.NewConfigurationError("RETRY_PRE_DELAY_MAX", "pre-request delay window must satisfy 0 <= min <= max")
	}
	if r.AttemptTimeout <= 0 {
		return apperrors.NewConfigurationError("RETRY_ATTEMPT_TIMEOUT", "attempt timeout must be positive")
	}
	if r.OperationTimeout < 0 {
		return apperrors.NewConfigurationError("RETRY_OPERATION_TIMEOUT", "operation timeout must be >= 0")
	}

	switch c.Output.Format {
	case "markdown", "pdf", "both":
	default:
		return apperrors.NewConfigurationError("OUTPUT_FORMAT",
			fmt.Sprintf("unsupported output format %q (expected markdown, pdf or both)", c.Output.Format))
	}

	if c.Analysis.Concurrency <= 0 {
		return apperrors.NewConfigurationError("ANALYSIS_CONCURRENCY", "concurrency must be positive")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return apperrors.NewConfigurationError("TRACING_SAMPLING_RATE", "sampling rate must be within [0, 1]")
	}

	return nil
}

// RequireDexToolsKey fails before any network activity when the market-data key is missing.
func (c *Config) RequireDexToolsKey() error {
	if strings.TrimSpace(c.DexTools.APIKey) == "" {
		return apperrors.NewConfigurationError("DEXTOOLS_API_KEY",
			"DexTools API key is required (set DEXTOOLS_API_KEY or pass --api-key)")
	}
	return nil
}

// RequireLLMKey fails before any network activity when the completion API key is missing.
func (c *Config) RequireLLMKey() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return apperrors.NewConfigurationError("OPENAI_API_KEY",
			"OpenAI API key is required for analysis (set OPENAI_API_KEY or use --mock)")
	}
	return nil
}

// Profile returns the endpoint profile loaded from DexTools.ProfilePath, or nil.
func (c *Config) Profile() *EndpointProfile {
	return c.profile
}

// SetProfile replaces the endpoint profile.
func (c *Config) SetProfile(p *EndpointProfile) {
	c.profile = p
}

// LoggerConfig converts the logging section for logging.NewLogger.
func (c *Config) LoggerConfig(version string) *logging.Config {
	return &logging.Config{
		Level:       c.Logging.Level,
		Format:      c.Logging.Format,
		Output:      c.Logging.Output,
		ServiceName: "dexanalyzer",
		Version:     version,
	}
}

// IsKnownPlan reports whether plan names a DexTools subscription plan.
func IsKnownPlan(plan string) bool {
	for _, p := range Plans {
		if p == plan {
			return true
		}
	}
	return false
}
