// Package probe checks which DexTools subscription plans accept an API key.
package probe

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/NikhilSetiya/dexanalyzer/internal/dextools"
	"github.com/NikhilSetiya/dexanalyzer/pkg/config"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

// Endpoints are called for every plan.
var Endpoints = []dextools.Endpoint{
	dextools.EndpointBlockchains,
	dextools.EndpointHotPools,
	dextools.EndpointGainers,
	dextools.EndpointLosers,
}

// Config contains probe configuration
type Config struct {
	APIKey string
	// Chain is the chain the ranking endpoints are called on.
	Chain string
	Plans []string
	// Pause is the wait between plans.
	Pause time.Duration
	// BaseURL maps a plan to its API base URL. Defaults to dextools.BaseURL.
	BaseURL func(plan string) string
}

// DefaultConfig returns default probe configuration
func DefaultConfig() *Config {
	return &Config{
		Chain:   "ether",
		Plans:   config.Plans,
		Pause:   time.Second,
		BaseURL: dextools.BaseURL,
	}
}

// EndpointResult is the outcome of one call.
type EndpointResult struct {
	Endpoint string        `json:"endpoint"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// PlanResult collects the outcomes for one plan.
type PlanResult struct {
	Plan      string           `json:"plan"`
	BaseURL   string           `json:"base_url"`
	Endpoints []EndpointResult `json:"endpoints"`
}

// Succeeded lists the endpoints that returned data.
func (p PlanResult) Succeeded() []string {
	var names []string
	for _, e := range p.Endpoints {
		if e.OK {
			names = append(names, e.Endpoint)
		}
	}
	return names
}

// Failed lists the endpoints that did not.
func (p PlanResult) Failed() []string {
	var names []string
	for _, e := range p.Endpoints {
		if !e.OK {
			names = append(names, e.Endpoint)
		}
	}
	return names
}

// Works reports whether every probed endpoint succeeded.
func (p PlanResult) Works() bool {
	return len(p.Endpoints) > 0 && len(p.Failed()) == 0
}

// Report is the result of a probe run.
type Report struct {
	Chain string       `json:"chain"`
	Plans []PlanResult `json:"plans"`
}

// WorkingPlans lists the plans on which every endpoint succeeded.
func (r *Report) WorkingPlans() []string {
	var plans []string
	for _, p := range r.Plans {
		if p.Works() {
			plans = append(plans, p.Plan)
		}
	}
	return plans
}

// Prober runs the plan probe. The executor should make a single attempt per
// candidate so a rejected plan fails fast.
type Prober struct {
	exec   *resilience.Executor
	config *Config
	logger *logging.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewProber creates a new prober
func NewProber(exec *resilience.Executor, cfg *Config, logger *logging.Logger) *Prober {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if len(cfg.Plans) == 0 {
		cfg.Plans = config.Plans
	}
	if cfg.BaseURL == nil {
		cfg.BaseURL = dextools.BaseURL
	}
	if cfg.Chain == "" {
		cfg.Chain = DefaultConfig().Chain
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Prober{
		exec:   exec,
		config: cfg,
		logger: logger,
		sleep:  resilience.TimerSleeper{}.Sleep,
	}
}

// Run probes every plan in order.
func (p *Prober) Run(ctx context.Context) (*Report, error) {
	if p.config.APIKey == "" {
		return nil, apperrors.NewConfigurationError("DEXTOOLS_API_KEY", "DexTools API key is required")
	}

	report := &Report{Chain: p.config.Chain}
	for i, plan := range p.config.Plans {
		if i > 0 && p.config.Pause > 0 {
			if err := p.sleep(ctx, p.config.Pause); err != nil {
				return report, err
			}
		}

		result, err := p.probePlan(ctx, plan)
		if err != nil {
			return report, err
		}
		report.Plans = append(report.Plans, result)

		p.logger.WithContext(ctx).WithFields(logrus.Fields{
			"plan":      plan,
			"succeeded": len(result.Succeeded()),
			"failed":    len(result.Failed()),
		}).Info("Plan probed")
	}
	return report, nil
}

func (p *Prober) probePlan(ctx context.Context, plan string) (PlanResult, error) {
	baseURL := p.config.BaseURL(plan)
	client := dextools.NewClient(p.exec, dextools.Options{
		APIKey:   p.config.APIKey,
		Plan:     plan,
		BaseURLs: []string{baseURL},
		Chain:    p.config.Chain,
	})

	result := PlanResult{Plan: plan, BaseURL: baseURL}
	for _, ep := range Endpoints {
		start := time.Now()
		env, err := client.Fetch(ctx, ep, dextools.Params{})
		if err != nil && ctx.Err() != nil {
			return result, ctx.Err()
		}

		er := EndpointResult{Endpoint: ep.Name, Duration: time.Since(start)}
		switch {
		case err != nil:
			er.Error = err.Error()
		case env.Empty():
			er.Error = "empty response"
		default:
			er.OK = true
		}
		result.Endpoints = append(result.Endpoints, er)
	}
	return result, nil
}
