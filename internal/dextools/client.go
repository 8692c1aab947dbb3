// Package dextools is a typed client for the DexTools v2 market-data API.
// Every method is one resilient executor operation, so each call tries the
// configured base URLs, chain spellings and path templates in order.
package dextools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/pkg/config"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
	"github.com/NikhilSetiya/dexanalyzer/pkg/logging"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

const (
	// BaseURLFormat is the documented versioned API root; %s is the plan.
	BaseURLFormat = "https://public-api.dextools.io/%s/v2"

	headerAPIKey = "X-API-Key"
	headerAccept = "Accept"
)

// BaseURL returns the documented API root for a subscription plan.
func BaseURL(plan string) string {
	return fmt.Sprintf(BaseURLFormat, plan)
}

// Options configures a Client.
type Options struct {
	APIKey string
	Plan   string
	// BaseURLs override the plan's documented root and the profile's list.
	BaseURLs []string
	Chain    string
	Profile  *config.EndpointProfile
	Logger   *logging.Logger
}

// Client issues market-data API calls through a shared executor.
type Client struct {
	exec     *resilience.Executor
	apiKey   string
	plan     string
	chain    string
	baseURLs []string
	profile  *config.EndpointProfile
	logger   *logging.Logger
}

// NewClient creates a client. Base URLs come from opts.BaseURLs, then the
// profile, then the plan's documented root.
func NewClient(exec *resilience.Executor, opts Options) *Client {
	if opts.Plan == "" {
		opts.Plan = "trial"
	}
	if opts.Chain == "" {
		opts.Chain = "solana"
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNopLogger()
	}

	baseURLs := opts.BaseURLs
	if len(baseURLs) == 0 && opts.Profile != nil {
		baseURLs = opts.Profile.BaseURLs
	}
	if len(baseURLs) == 0 {
		baseURLs = []string{BaseURL(opts.Plan)}
	}

	return &Client{
		exec:     exec,
		apiKey:   opts.APIKey,
		plan:     opts.Plan,
		chain:    opts.Chain,
		baseURLs: baseURLs,
		profile:  opts.Profile,
		logger:   opts.Logger,
	}
}

// NewClientFromConfig creates a client from the application configuration.
func NewClientFromConfig(exec *resilience.Executor, cfg *config.Config, logger *logging.Logger) *Client {
	return NewClient(exec, Options{
		APIKey:   cfg.DexTools.APIKey,
		Plan:     cfg.DexTools.Plan,
		BaseURLs: cfg.DexTools.BaseURLs,
		Chain:    cfg.DexTools.Chain,
		Profile:  cfg.Profile(),
		Logger:   logger,
	})
}

// Chain returns the chain identifier the client queries.
func (c *Client) Chain() string { return c.chain }

// Plan returns the subscription plan.
func (c *Client) Plan() string { return c.plan }

// BaseURLs returns the API roots tried in order.
func (c *Client) BaseURLs() []string { return c.baseURLs }

// Params carries the per-call parts of a request.
type Params struct {
	Address string
	Query   map[string]string
}

// Operation builds the executor operation for an endpoint.
func (c *Client) Operation(ep Endpoint, p Params) resilience.Operation {
	dims := []resilience.Dimension{{Name: "chain", Values: c.profile.Aliases(c.chain)}}
	if ep.HasAddress() {
		dims = append(dims, resilience.Dimension{Name: "address", Values: []string{p.Address}})
	}

	return resilience.Operation{
		Name:          ep.Name,
		BaseURLs:      c.baseURLs,
		Templates:     c.profile.TemplatesFor(ep.Name, ep.Template),
		Substitutions: resilience.Combine(dims...),
		Query:         p.Query,
		Headers:       c.headers(),
		Classifier:    shapeClassifier(ep),
	}
}

// shapeClassifier extends DefaultClassifier so that a 2xx payload whose data
// does not have the endpoint's shape fails the candidate instead of the call.
func shapeClassifier(ep Endpoint) resilience.Classifier {
	return func(resp *resilience.Response, err error) resilience.Outcome {
		out := resilience.DefaultClassifier(resp, err)
		if out.Kind != resilience.OutcomeSuccess || ep.Shape == ShapeAny || len(bytes.TrimSpace(resp.Body)) == 0 {
			return out
		}

		env := &Envelope{Operation: ep.Name}
		if err := json.Unmarshal(resp.Body, env); err != nil {
			return resilience.Outcome{
				Kind: resilience.OutcomeCandidateFailure,
				Err:  apperrors.NewDecodingError("unexpected " + ep.Name + " envelope").WithCause(err),
			}
		}
		if err := env.Conform(ep.Shape); err != nil {
			return resilience.Outcome{Kind: resilience.OutcomeCandidateFailure, Err: err}
		}
		return out
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		headerAPIKey: c.apiKey,
		headerAccept: "application/json",
	}
}

// Fetch calls an endpoint and returns its envelope.
func (c *Client) Fetch(ctx context.Context, ep Endpoint, p Params) (*Envelope, error) {
	if ep.HasAddress() && p.Address == "" {
		return nil, apperrors.NewValidationError(fmt.Sprintf("%s requires an address", ep.Name))
	}
	res, err := c.exec.Execute(ctx, c.Operation(ep, p))
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(res)
}

// Raw runs an arbitrary operation with the client's base URLs and auth
// headers filled in where the operation leaves them empty.
func (c *Client) Raw(ctx context.Context, op resilience.Operation) (*Envelope, error) {
	if len(op.BaseURLs) == 0 {
		op.BaseURLs = c.baseURLs
	}
	headers := c.headers()
	for k, v := range op.Headers {
		headers[k] = v
	}
	op.Headers = headers
	if len(op.Substitutions) == 0 {
		op.Substitutions = resilience.Combine(resilience.Dimension{Name: "chain", Values: c.profile.Aliases(c.chain)})
	}

	res, err := c.exec.Execute(ctx, op)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope(res)
}

// Blockchains lists supported chains, one page at a time.
func (c *Client) Blockchains(ctx context.Context, page int) (*Page, error) {
	env, err := c.Fetch(ctx, EndpointBlockchains, Params{Query: pageQuery(page, 0)})
	if err != nil {
		return nil, err
	}
	return env.Page()
}

// Blockchain returns the client's chain record.
func (c *Client) Blockchain(ctx context.Context) (*Blockchain, error) {
	env, err := c.Fetch(ctx, EndpointBlockchain, Params{})
	if err != nil {
		return nil, err
	}
	var bc Blockchain
	if err := env.DecodeData(&bc); err != nil {
		return nil, err
	}
	return &bc, nil
}

// Dexes lists the exchanges on the client's chain.
func (c *Client) Dexes(ctx context.Context) (*Page, error) {
	env, err := c.Fetch(ctx, EndpointDexes, Params{})
	if err != nil {
		return nil, err
	}
	return env.Page()
}

// Ranking returns up to limit pairs of a ranking; limit <= 0 returns all.
func (c *Client) Ranking(ctx context.Context, r Ranking, limit int) ([]market.Pair, error) {
	env, err := c.Fetch(ctx, r.Endpoint(), Params{})
	if err != nil {
		return nil, err
	}
	return c.pairs(env, limit)
}

// HotPools returns the hottest pools.
func (c *Client) HotPools(ctx context.Context, limit int) ([]market.Pair, error) {
	return c.Ranking(ctx, RankingHotPools, limit)
}

// Gainers returns the top 24h gainers.
func (c *Client) Gainers(ctx context.Context, limit int) ([]market.Pair, error) {
	return c.Ranking(ctx, RankingGainers, limit)
}

// Losers returns the top 24h losers.
func (c *Client) Losers(ctx context.Context, limit int) ([]market.Pair, error) {
	return c.Ranking(ctx, RankingLosers, limit)
}

// PoolQuery selects pools by creation time.
type PoolQuery struct {
	From     time.Time
	To       time.Time
	Sort     string
	Order    string
	Page     int
	PageSize int
}

// Values renders the query parameters the API expects.
func (q PoolQuery) Values() map[string]string {
	v := pageQuery(q.Page, q.PageSize)
	if !q.From.IsZero() {
		v["from"] = q.From.UTC().Format(time.RFC3339)
	}
	if !q.To.IsZero() {
		v["to"] = q.To.UTC().Format(time.RFC3339)
	}
	if q.Sort != "" {
		v["sort"] = q.Sort
	}
	if q.Order != "" {
		v["order"] = q.Order
	}
	return v
}

// PoolPage is one page of pools.
type PoolPage struct {
	Page       int
	PageSize   int
	TotalPages int
	Pairs      []market.Pair
}

// Pools lists pools on the client's chain.
func (c *Client) Pools(ctx context.Context, q PoolQuery) (*PoolPage, error) {
	env, err := c.Fetch(ctx, EndpointPools, Params{Query: q.Values()})
	if err != nil {
		return nil, err
	}
	return c.poolPage(env)
}

// Pool returns one pool.
func (c *Client) Pool(ctx context.Context, address string) (*market.Pair, error) {
	env, err := c.Fetch(ctx, EndpointPool, Params{Address: address})
	if err != nil {
		return nil, err
	}
	var p market.Pair
	if err := env.DecodeData(&p); err != nil {
		return nil, err
	}
	if p.Address == "" {
		p.Address = address
	}
	return &p, nil
}

// PoolPrice returns a pool's current price and variations.
func (c *Client) PoolPrice(ctx context.Context, address string) (*Price, error) {
	env, err := c.Fetch(ctx, EndpointPoolPrice, Params{Address: address})
	if err != nil {
		return nil, err
	}
	var p Price
	if err := env.DecodeData(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// PoolLiquidity returns a pool's liquidity and reserves.
func (c *Client) PoolLiquidity(ctx context.Context, address string) (*Liquidity, error) {
	env, err := c.Fetch(ctx, EndpointPoolLiquidity, Params{Address: address})
	if err != nil {
		return nil, err
	}
	var l Liquidity
	if err := env.DecodeData(&l); err != nil {
		return nil, err
	}
	return &l, nil
}

// Token returns token metadata.
func (c *Client) Token(ctx context.Context, address string) (*Token, error) {
	env, err := c.Fetch(ctx, EndpointToken, Params{Address: address})
	if err != nil {
		return nil, err
	}
	var t Token
	if err := env.DecodeData(&t); err != nil {
		return nil, err
	}
	if t.Address == "" {
		t.Address = address
	}
	return &t, nil
}

// TokenInfo returns supply, market cap and holder figures.
func (c *Client) TokenInfo(ctx context.Context, address string) (*TokenInfo, error) {
	env, err := c.Fetch(ctx, EndpointTokenInfo, Params{Address: address})
	if err != nil {
		return nil, err
	}
	var ti TokenInfo
	if err := env.DecodeData(&ti); err != nil {
		return nil, err
	}
	return &ti, nil
}

// TokenPrice returns a token's current price and variations.
func (c *Client) TokenPrice(ctx context.Context, address string) (*Price, error) {
	env, err := c.Fetch(ctx, EndpointTokenPrice, Params{Address: address})
	if err != nil {
		return nil, err
	}
	var p Price
	if err := env.DecodeData(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// TokenPools lists the pools a token trades in.
func (c *Client) TokenPools(ctx context.Context, address string, q PoolQuery) (*PoolPage, error) {
	env, err := c.Fetch(ctx, EndpointTokenPools, Params{Address: address, Query: q.Values()})
	if err != nil {
		return nil, err
	}
	return c.poolPage(env)
}

func (c *Client) poolPage(env *Envelope) (*PoolPage, error) {
	page, err := env.Page()
	if err != nil {
		return nil, err
	}
	pairs, err := c.decodePairs(page.Results, 0)
	if err != nil {
		return nil, err
	}
	return &PoolPage{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Pairs:      pairs,
	}, nil
}

func (c *Client) pairs(env *Envelope, limit int) ([]market.Pair, error) {
	records, err := env.Records()
	if err != nil {
		return nil, err
	}
	return c.decodePairs(records, limit)
}

// decodePairs skips records that do not decode, as long as at least one does.
func (c *Client) decodePairs(records []json.RawMessage, limit int) ([]market.Pair, error) {
	pairs := make([]market.Pair, 0, len(records))
	var firstErr error
	for i, raw := range records {
		if limit > 0 && len(pairs) >= limit {
			break
		}
		var p market.Pair
		if err := json.Unmarshal(raw, &p); err != nil {
			c.logger.Warn("Skipping malformed pair record", "index", i, "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		pairs = append(pairs, p)
	}
	if len(pairs) == 0 && firstErr != nil {
		return nil, apperrors.NewDecodingError("no pair record could be decoded").WithCause(firstErr)
	}
	return pairs, nil
}

func pageQuery(page, pageSize int) map[string]string {
	v := map[string]string{}
	if page > 0 {
		v["page"] = strconv.Itoa(page)
	}
	if pageSize > 0 {
		v["pageSize"] = strconv.Itoa(pageSize)
	}
	return v
}
