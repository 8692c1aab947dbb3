// Package analyzer implements the end-to-end analysis flows: fetch market data
// through the resilient client, ask the analyst for a narrative, write reports.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/NikhilSetiya/dexanalyzer/internal/dextools"
	"github.com/NikhilSetiya/dexanalyzer/internal/llm"
	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/internal/prompts"
	"github.com/NikhilSetiya/dexanalyzer/internal/report"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
	"github.com/NikhilSetiya/dexanalyzer/pkg/tracing"
)

const (
	defaultRecentHours = 48
	defaultRecentLimit = 10
	defaultHotLimit    = 5
)

// Service runs the analysis flows
type Service struct {
	market  Market
	analyst llm.Analyst
	writer  *report.Writer
	config  *Config

	tracing *tracing.TracingService
	logger  *logging.Logger
	limiter *rate.Limiter
	now     func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithTracing starts a span per flow and per completion request.
func WithTracing(ts *tracing.TracingService) Option {
	return func(s *Service) { s.tracing = ts }
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for query windows and report timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new analysis service
func NewService(m Market, analyst llm.Analyst, writer *report.Writer, config *Config, opts ...Option) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.RecentPageSize <= 0 {
		config.RecentPageSize = DefaultConfig().RecentPageSize
	}

	s := &Service{
		market:  m,
		analyst: analyst,
		writer:  writer,
		config:  config,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracing == nil {
		s.tracing = tracing.NewNoopTracingService()
	}
	if s.logger == nil {
		s.logger = logging.NewNopLogger()
	}

	limit := rate.Inf
	if config.LLMInterval > 0 {
		limit = rate.Every(config.LLMInterval)
	}
	s.limiter = rate.NewLimiter(limit, 1)
	return s
}

// AnalyzeRanking analyzes one ranking (gainers, losers or hot pools) as a
// whole and writes a single aggregate report.
func (s *Service) AnalyzeRanking(ctx context.Context, kind dextools.Ranking, limit int) (*RankingResult, error) {
	ctx, span := s.tracing.StartAnalysisSpan(ctx, "ranking_"+string(kind), s.market.Chain())
	defer span.End()

	pairs, err := s.market.Ranking(ctx, kind, limit)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, apperrors.NewNotFoundError(string(kind) + " data")
	}

	snap := market.NewSnapshot(s.market.Chain(), string(kind), s.now().UTC(), pairs)
	prompt := prompts.Ranking(string(kind), s.market.Chain(), len(pairs), prompts.RankingOptions{Technical: true, Risk: true})

	res, err := s.summarize(ctx, string(kind), prompt, snap)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}
	return res, nil
}

// AnalyzeRecent analyzes pools created within the last opts.Hours, newest
// first, after enriching them with liquidity and price.
func (s *Service) AnalyzeRecent(ctx context.Context, opts RecentOptions) (*BatchResult, error) {
	if opts.Hours <= 0 {
		opts.Hours = defaultRecentHours
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultRecentLimit
	}

	chain := s.market.Chain()
	ctx, span := s.tracing.StartAnalysisSpan(ctx, "recent", chain)
	defer span.End()

	now := s.now().UTC()
	page, err := s.market.Pools(ctx, dextools.PoolQuery{
		From:     now.Add(-time.Duration(opts.Hours) * time.Hour),
		To:       now,
		Sort:     "creationTime",
		Order:    "desc",
		PageSize: s.config.RecentPageSize,
	})
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}

	tokens, err := s.enrich(ctx, page.Pairs)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}

	selected := make([]market.TokenData, 0, opts.Limit)
	for _, t := range tokens {
		if len(selected) == opts.Limit {
			break
		}
		if opts.MinLiquidity > 0 && (t.Liquidity == nil || *t.Liquidity < opts.MinLiquidity) {
			continue
		}
		selected = append(selected, t)
	}

	logger := s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"hours":         opts.Hours,
		"min_liquidity": opts.MinLiquidity,
		"listed":        len(page.Pairs),
		"selected":      len(selected),
	})
	if len(selected) == 0 {
		logger.Warn("No recent tokens matched the filters")
		return &BatchResult{}, nil
	}
	logger.Info("Analyzing recent tokens")

	result, err := s.analyzeTokens(ctx, selected)
	if err != nil {
		s.tracing.RecordError(span, err)
		return result, err
	}

	if opts.Summary {
		snap := market.Snapshot{Chain: chain, Endpoint: "new_tokens", Timestamp: now, Tokens: selected}
		minLiquidity := opts.MinLiquidity
		prompt := prompts.NewTokens(chain, opts.Hours, opts.Limit, &minLiquidity)
		result.Summary, err = s.summarize(ctx, "new_tokens", prompt, snap)
		if err != nil {
			s.tracing.RecordError(span, err)
			return result, err
		}
	}
	return result, nil
}

// AnalyzeHotPairs analyzes the tokens of the hottest pools one by one.
func (s *Service) AnalyzeHotPairs(ctx context.Context, opts HotPairsOptions) (*BatchResult, error) {
	if opts.Limit <= 0 {
		opts.Limit = defaultHotLimit
	}

	chain := s.market.Chain()
	ctx, span := s.tracing.StartAnalysisSpan(ctx, "hot_pairs", chain)
	defer span.End()

	pairs, err := s.market.HotPools(ctx, opts.Limit)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}

	tokens := make([]market.TokenData, 0, len(pairs))
	for _, p := range pairs {
		t := p.TokenData()
		if opts.MinVolume != nil && (t.Volume24h == nil || *t.Volume24h < *opts.MinVolume) {
			continue
		}
		tokens = append(tokens, t)
	}
	if len(tokens) == 0 {
		s.logger.WithContext(ctx).WithField("listed", len(pairs)).Warn("No hot pairs matched the filters")
		return &BatchResult{}, nil
	}

	result, err := s.analyzeTokens(ctx, tokens)
	if err != nil {
		s.tracing.RecordError(span, err)
		return result, err
	}

	if opts.Summary {
		snap := market.Snapshot{Chain: chain, Endpoint: "hot_pairs", Timestamp: s.now().UTC(), Tokens: tokens}
		prompt := prompts.HotPairs(chain, opts.Limit, true, opts.MinVolume)
		result.Summary, err = s.summarize(ctx, "hot_pairs", prompt, snap)
		if err != nil {
			s.tracing.RecordError(span, err)
			return result, err
		}
	}
	return result, nil
}

// AnalyzeToken analyzes one token by address. The token record is required;
// supply and price details are added when available.
func (s *Service) AnalyzeToken(ctx context.Context, address string) (*TokenResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.NewValidationError("token address is required")
	}

	ctx, span := s.tracing.StartAnalysisSpan(ctx, "token", s.market.Chain())
	defer span.End()

	tok, err := s.market.Token(ctx, address)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}

	info, err := s.market.TokenInfo(ctx, address)
	if err != nil {
		if !s.skippable(ctx, "token_info", address, err) {
			return nil, err
		}
		info = nil
	}
	price, err := s.market.TokenPrice(ctx, address)
	if err != nil {
		if !s.skippable(ctx, "token_price", address, err) {
			return nil, err
		}
		price = nil
	}

	raw := map[string]any{"token": tok, "info": info, "price": price}
	res, err := s.analyzeToken(ctx, tok.TokenData(info, price), raw)
	if err != nil {
		s.tracing.RecordError(span, err)
		return nil, err
	}
	return &res, nil
}

// enrich converts pairs to token records and fills liquidity and price from
// the per-pool endpoints, in parallel. Missing data is skipped.
func (s *Service) enrich(ctx context.Context, pairs []market.Pair) ([]market.TokenData, error) {
	tokens := make([]market.TokenData, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for i, p := range pairs {
		g.Go(func() error {
			t := p.TokenData()
			defer func() { tokens[i] = t }()
			if p.Address == "" {
				return nil
			}

			liq, err := s.market.PoolLiquidity(gctx, p.Address)
			switch {
			case err == nil:
				if liq.Liquidity != nil {
					t.Liquidity = liq.Liquidity
				}
			case !s.skippable(gctx, "pool_liquidity", p.Address, err):
				return err
			}

			price, err := s.market.PoolPrice(gctx, p.Address)
			switch {
			case err == nil:
				applyPrice(&t, price)
			case !s.skippable(gctx, "pool_price", p.Address, err):
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tokens, nil
}

func applyPrice(t *market.TokenData, p *dextools.Price) {
	if p.Price != nil {
		t.Price = p.Price
	}
	if p.Variation24h != nil {
		t.PriceChange24h = p.Variation24h
	}
	if p.Volume24h != nil {
		t.Volume24h = p.Volume24h
	}
}

// skippable reports whether a failed lookup only means "no data": every
// candidate was exhausted or the payload did not decode. The failure is logged.
func (s *Service) skippable(ctx context.Context, step, address string, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if !resilience.IsExhausted(err) && !apperrors.IsType(err, apperrors.ErrorTypeDecoding) {
		return false
	}
	s.logger.WithContext(ctx).WithFields(logrus.Fields{
		"step":    step,
		"address": address,
		"error":   err.Error(),
	}).Warn("No data available, skipping")
	return true
}

func (s *Service) analyzeTokens(ctx context.Context, tokens []market.TokenData) (*BatchResult, error) {
	result := &BatchResult{Tokens: make([]TokenResult, 0, len(tokens))}
	for _, t := range tokens {
		res, err := s.analyzeToken(ctx, t, t)
		if err != nil {
			return result, err
		}
		result.Tokens = append(result.Tokens, res)
	}
	return result, nil
}

func (s *Service) analyzeToken(ctx context.Context, t market.TokenData, raw any) (TokenResult, error) {
	res := TokenResult{Token: t, Provider: s.analyst.Provider()}

	prompt := prompts.TokenAnalysis(t, prompts.TokenAnalysisOptions{Technical: true})
	a, err := s.complete(ctx, prompt, t)
	switch {
	case err == nil:
		res.Analysis, res.Model = a.Text, a.Model
	case ctx.Err() != nil:
		return res, ctx.Err()
	default:
		res.Err = err
	}

	res.Reports, err = s.writer.WriteToken(report.TokenReport{
		Token:    t,
		Analysis: res.Analysis,
		Provider: res.Provider,
		Model:    res.Model,
		Raw:      raw,
	})
	return res, err
}

func (s *Service) summarize(ctx context.Context, kind string, prompt prompts.Prompt, snap market.Snapshot) (*RankingResult, error) {
	res := &RankingResult{Snapshot: snap, Provider: s.analyst.Provider()}

	a, err := s.complete(ctx, prompt, snap)
	switch {
	case err == nil:
		res.Analysis, res.Model = a.Text, a.Model
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		res.Err = err
	}

	res.Reports, err = s.writer.WriteRanking(report.RankingReport{
		Chain:    snap.Chain,
		Kind:     kind,
		Analysis: res.Analysis,
		Provider: res.Provider,
		Model:    res.Model,
		Raw:      snap,
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// complete paces and traces one analyst call. A failure is logged and
// returned; callers write the report without the narrative.
func (s *Service) complete(ctx context.Context, prompt prompts.Prompt, data any) (*llm.Analysis, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, span := s.tracing.StartLLMSpan(ctx, s.analyst.Provider(), prompt.Kind)
	defer span.End()

	a, err := s.analyst.Analyze(ctx, prompt, data)
	if err != nil {
		s.tracing.RecordError(span, err)
		s.logger.WithContext(ctx).WithFields(logrus.Fields{
			"provider":    s.analyst.Provider(),
			"prompt_kind": prompt.Kind,
			"error":       err.Error(),
		}).Warn("Analysis unavailable")
		return nil, err
	}
	return a, nil
}
