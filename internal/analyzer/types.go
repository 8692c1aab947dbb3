package analyzer

import (
	"context"
	"time"

	"github.com/NikhilSetiya/dexanalyzer/internal/dextools"
	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/internal/report"
)

// Market is the subset of the market-data client used by the analysis flows.
// *dextools.Client implements it.
type Market interface {
	Chain() string
	Ranking(ctx context.Context, r dextools.Ranking, limit int) ([]market.Pair, error)
	HotPools(ctx context.Context, limit int) ([]market.Pair, error)
	Pools(ctx context.Context, q dextools.PoolQuery) (*dextools.PoolPage, error)
	PoolPrice(ctx context.Context, address string) (*dextools.Price, error)
	PoolLiquidity(ctx context.Context, address string) (*dextools.Liquidity, error)
	Token(ctx context.Context, address string) (*dextools.Token, error)
	TokenInfo(ctx context.Context, address string) (*dextools.TokenInfo, error)
	TokenPrice(ctx context.Context, address string) (*dextools.Price, error)
}

// Config contains analysis flow configuration
type Config struct {
	// Concurrency bounds parallel enrichment requests.
	Concurrency int `json:"concurrency"`
	// LLMInterval is the minimum spacing between completion requests.
	LLMInterval time.Duration `json:"llm_interval"`
	// RecentPageSize is how many pools are listed before filtering.
	RecentPageSize int `json:"recent_page_size"`
}

// DefaultConfig returns default analysis configuration
func DefaultConfig() *Config {
	return &Config{
		Concurrency:    4,
		LLMInterval:    time.Second,
		RecentPageSize: 50,
	}
}

// TokenResult is the outcome of analyzing one token.
type TokenResult struct {
	Token    market.TokenData `json:"token"`
	Analysis string           `json:"analysis"`
	Provider string           `json:"provider"`
	Model    string           `json:"model,omitempty"`
	Reports  []report.Result  `json:"reports"`
	// Err is set when the analysis was unavailable; the report is still written.
	Err error `json:"-"`
}

// RankingResult is the outcome of one aggregate analysis.
type RankingResult struct {
	Snapshot market.Snapshot `json:"snapshot"`
	Analysis string          `json:"analysis"`
	Provider string          `json:"provider"`
	Model    string          `json:"model,omitempty"`
	Reports  []report.Result `json:"reports"`
	Err      error           `json:"-"`
}

// RecentOptions selects recently created pools.
type RecentOptions struct {
	Hours        int
	Limit        int
	MinLiquidity float64
	// Summary adds one aggregate report over all selected tokens.
	Summary bool
}

// HotPairsOptions selects hot pools.
type HotPairsOptions struct {
	Limit     int
	MinVolume *float64
	Summary   bool
}

// BatchResult is the outcome of a per-token flow.
type BatchResult struct {
	Tokens  []TokenResult  `json:"tokens"`
	Summary *RankingResult `json:"summary,omitempty"`
}
