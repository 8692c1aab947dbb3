package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/internal/prompts"
)

const (
	providerMock = "mock"
	mockTokens   = 5
)

// MockAnalyst writes a heuristic report from the data alone, without any
// network call. Output depends only on its input.
type MockAnalyst struct{}

// NewMockAnalyst creates a mock analyst.
func NewMockAnalyst() *MockAnalyst { return &MockAnalyst{} }

// Provider implements Analyst.
func (m *MockAnalyst) Provider() string { return providerMock }

// Analyze accepts a market.Snapshot, a market.TokenData or a []market.TokenData.
func (m *MockAnalyst) Analyze(ctx context.Context, prompt prompts.Prompt, data any) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	var text string
	switch v := data.(type) {
	case market.Snapshot:
		text = mockRanking(v.Endpoint, v.Tokens)
	case *market.Snapshot:
		text = mockRanking(v.Endpoint, v.Tokens)
	case market.TokenData:
		text = mockToken(v)
	case *market.TokenData:
		text = mockToken(*v)
	case []market.TokenData:
		text = mockRanking(prompt.Kind, v)
	default:
		text = fmt.Sprintf("# Mock Analysis\n\nNo heuristic is available for %T data.\n", data)
	}

	return &Analysis{
		Text:     text,
		Provider: providerMock,
		Model:    providerMock,
		Duration: time.Since(start),
	}, nil
}

func mockRanking(endpoint string, tokens []market.TokenData) string {
	var b strings.Builder
	title := rankingTitle(endpoint)

	fmt.Fprintf(&b, "# %s Analysis\n\n", title)
	b.WriteString("## Executive Summary\n\n")
	fmt.Fprintf(&b, "This analysis covers %d tokens. Most of these tokens show extreme price movements "+
		"but have very low liquidity and trading volume, which raises significant concerns about the "+
		"sustainability of their price movements.\n\n", len(tokens))
	fmt.Fprintf(&b, "## %s\n\n", title)

	for i, t := range tokens {
		if i == mockTokens {
			break
		}
		change := 0.0
		if t.PriceChange24h != nil {
			change = *t.PriceChange24h
		}
		exchange := market.Unknown
		if t.Exchange != nil && t.Exchange.Name != "" {
			exchange = t.Exchange.Name
		}
		redFlag := "Price movement may not be sustainable."
		if change > 100 {
			redFlag = "High price increase without supporting volume or liquidity."
		}

		fmt.Fprintf(&b, "### %s\n", t.Label())
		fmt.Fprintf(&b, "- **Price**: %s\n", market.Price(orZero(t.Price)))
		fmt.Fprintf(&b, "- **Price Change (24h)**: %s\n", market.Percent(&change))
		fmt.Fprintf(&b, "- **Volume (24h)**: %s\n", market.USD(orZero(t.Volume24h)))
		fmt.Fprintf(&b, "- **Liquidity**: %s\n", market.USD(orZero(t.Liquidity)))
		fmt.Fprintf(&b, "- **Creation Date**: %s\n", market.CreatedDate(t.CreatedAt))
		fmt.Fprintf(&b, "- **Exchange**: %s\n", exchange)
		fmt.Fprintf(&b, "- **Potential Utility**: The name suggests a %s-related utility.\n", strings.ToLower(t.Name))
		b.WriteString("- **Risk Assessment**: **Very High**\n")
		fmt.Fprintf(&b, "  - **Red Flags**: %s\n\n", redFlag)
	}

	b.WriteString(`## Market Trends

The current market shows a pattern of newly created tokens with extreme price moves but minimal liquidity and trading volume. This suggests potential market manipulation or speculative behavior rather than genuine adoption or utility.

## Investment Opportunities

Given the high-risk nature of all analyzed tokens, no clear investment opportunities can be recommended without further research. Investors should exercise extreme caution.

## Risk Warnings

- Most tokens show extreme moves without supporting trading volume or liquidity
- Many tokens were recently created, increasing the risk of rug pulls or scams
- Lack of established history or utility for most tokens
- Potential for market manipulation due to low liquidity
`)
	return b.String()
}

func mockToken(t market.TokenData) string {
	risk := 5
	var flags []string
	if t.Liquidity == nil || *t.Liquidity < 10000 {
		risk += 2
		flags = append(flags, "Low or unknown liquidity")
	}
	if t.PriceChange24h != nil && *t.PriceChange24h > 100 {
		risk += 2
		flags = append(flags, "High price increase without supporting volume or liquidity")
	}
	if t.Volume24h == nil || *t.Volume24h < 1000 {
		risk++
		flags = append(flags, "Thin trading volume")
	}
	if risk > 10 {
		risk = 10
	}
	if len(flags) == 0 {
		flags = append(flags, "Price movement may not be sustainable")
	}

	recommendation := "Speculative"
	switch {
	case risk >= 9:
		recommendation = "Avoid"
	case risk >= 7:
		recommendation = "High Risk"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Token Overview\n\n%s trades at %s with a 24h change of %s.\n\n",
		t.Label(), market.Price(t.Price), market.Percent(t.PriceChange24h))
	fmt.Fprintf(&b, "## Metrics Analysis\n\n- Liquidity: %s\n- 24h Volume: %s\n- Market Cap: %s\n\n",
		market.USD(t.Liquidity), market.USD(t.Volume24h), market.USD(t.MarketCap))
	b.WriteString("## Conclusion\n\n")
	fmt.Fprintf(&b, "- **RISK SCORE**: %d/10\n", risk)
	fmt.Fprintf(&b, "- **POTENTIAL SCORE**: %d/10\n", 11-risk)
	fmt.Fprintf(&b, "- **RECOMMENDATION**: %s\n", recommendation)
	b.WriteString("- **RED FLAGS**:\n")
	for _, f := range flags {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	return b.String()
}

func rankingTitle(endpoint string) string {
	switch endpoint {
	case "losers", "ranking_losers":
		return "Top Losers"
	case "hotpools", "ranking_hotpools", "hot_pairs":
		return "Hot Pools"
	case "new_tokens", "recent":
		return "New Tokens"
	default:
		return "Top Gainers"
	}
}

func orZero(v *float64) *float64 {
	if v == nil {
		return market.Float(0)
	}
	return v
}
