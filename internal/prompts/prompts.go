// Package prompts builds the system and user messages sent to the LLM,
// together with the generation parameters for each analysis kind.
package prompts

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
)

// Parameters are the generation settings plus the inputs the prompt was built from.
type Parameters struct {
	Temperature float32        `json:"temperature"`
	MaxTokens   int            `json:"max_tokens"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// Prompt is a ready-to-send analysis request.
type Prompt struct {
	Kind       string           `json:"kind"`
	System     string           `json:"system_message"`
	User       string           `json:"user_message"`
	Examples   []map[string]any `json:"examples,omitempty"`
	Parameters Parameters       `json:"parameters"`
}

// TokenAnalysisOptions toggles optional sections of a token analysis.
type TokenAnalysisOptions struct {
	Technical bool
	Social    bool
}

// TokenAnalysis builds the prompt for a single token.
func TokenAnalysis(token market.TokenData, opts TokenAnalysisOptions) Prompt {
	var b strings.Builder
	b.WriteString("\nPlease analyze the following Solana token:\n\n")
	b.WriteString("TOKEN INFORMATION:\n")
	fmt.Fprintf(&b, "- Name: %s\n", token.Name)
	fmt.Fprintf(&b, "- Symbol: %s\n", token.Symbol)
	fmt.Fprintf(&b, "- Address: %s\n", token.Address)
	fmt.Fprintf(&b, "- Mint Address: %s\n", token.Mint)
	fmt.Fprintf(&b, "- Created: %s\n", market.Created(token.CreatedAt))
	b.WriteString("\nKEY METRICS:\n")
	fmt.Fprintf(&b, "- Current Price: %s\n", market.Price(token.Price))
	fmt.Fprintf(&b, "- 24h Price Change: %s\n", market.Percent(token.PriceChange24h))
	fmt.Fprintf(&b, "- Liquidity: %s\n", market.USD(token.Liquidity))
	fmt.Fprintf(&b, "- 24h Trading Volume: %s\n", market.USD(token.Volume24h))
	fmt.Fprintf(&b, "- Market Cap: %s\n", market.USD(token.MarketCap))
	if token.TotalSupply != nil {
		fmt.Fprintf(&b, "- Total Supply: %s\n", market.Grouped(*token.TotalSupply, 0))
	}
	if token.Decimals != nil {
		fmt.Fprintf(&b, "- Decimals: %d\n", *token.Decimals)
	}
	if token.HolderCount != nil {
		fmt.Fprintf(&b, "- Holder Count: %s\n", market.Grouped(decimal.NewFromInt(*token.HolderCount), 0))
	}
	b.WriteString(tokenAnalysisRequest)
	if opts.Technical {
		b.WriteString("\nPlease include technical analysis of the price action if sufficient data is available.\n")
	}
	if opts.Social {
		b.WriteString("\nPlease consider potential social media activity and community engagement in your assessment.\n")
	}

	return Prompt{
		Kind:   "token",
		System: tokenAnalysisSystem,
		User:   b.String(),
		Examples: []map[string]any{{
			"structure": map[string]any{
				"overview":             "Brief overview of the token",
				"metrics_analysis":     "Analysis of key metrics",
				"risk_assessment":      "Evaluation of risks",
				"potential_evaluation": "Assessment of growth potential",
				"conclusion": map[string]any{
					"risk_score":      7,
					"potential_score": 6,
					"recommendation":  "Speculative",
					"red_flags":       []string{"Low liquidity", "Recently created", "Unknown team"},
				},
			},
		}},
		Parameters: Parameters{
			Temperature: 0.5,
			MaxTokens:   2000,
			Extra: map[string]any{
				"token_address":              token.Address,
				"include_technical_analysis": opts.Technical,
				"include_social_metrics":     opts.Social,
			},
		},
	}
}

// HotPairs builds the prompt for the hottest pairs on a chain. A nil
// minVolume means no volume filter.
func HotPairs(chain string, limit int, details bool, minVolume *float64) Prompt {
	filter := ""
	if minVolume != nil && *minVolume > 0 {
		filter = " with minimum 24h volume of " + market.USD(minVolume)
	}
	detail := " Provide a summary overview rather than detailed analysis of each pair."
	if details {
		detail = " Please include detailed metrics and analysis for each pair."
	}

	user := fmt.Sprintf(`
Please analyze the top %d hot trading pairs on the %s blockchain%s.

For each pair, consider:
- Price and price movement
- Trading volume and liquidity
- Age of the token/pair
- Potential use case or category
- Risk factors

%s

Conclude with a summary of the current market trends based on these hot pairs, and identify any
tokens that might be particularly interesting for further research (with appropriate risk disclaimers).
`, limit, chainTitle(chain), filter, detail)

	return Prompt{
		Kind:   "hot_pairs",
		System: hotPairsSystem,
		User:   user,
		Examples: []map[string]any{{
			"structure": map[string]any{
				"market_overview": "General assessment of the market",
				"hot_pairs_analysis": []map[string]string{{
					"pair":      "TOKEN/SOL",
					"price":     "$0.12345",
					"volume":    "$123,456",
					"liquidity": "$234,567",
					"analysis":  "Brief analysis of this pair",
				}},
				"opportunity_assessment": "Analysis of potential opportunities",
				"conclusion":             "Summary and recommendations",
			},
		}},
		Parameters: Parameters{
			Temperature: 0.7,
			MaxTokens:   2000,
			Extra: map[string]any{
				"chain_id":         chain,
				"endpoint_type":    "hot_pairs",
				"limit":            limit,
				"include_details":  details,
				"filter_by_volume": minVolume,
			},
		},
	}
}

// NewTokens builds the prompt for tokens created in the last maxAgeHours.
func NewTokens(chain string, maxAgeHours, limit int, minLiquidity *float64) Prompt {
	filter := ""
	if minLiquidity != nil && *minLiquidity > 0 {
		filter = " with minimum liquidity of " + market.USD(minLiquidity)
	}

	user := fmt.Sprintf(`
Please analyze the top %d newly created tokens on %s from the past %d hours%s.

For each token, consider:
- Initial price and price movement
- Initial liquidity and volume
- Potential use case or category based on name and any available information
- Red flags or concerning patterns
- Comparative potential versus other new launches

Provide a detailed analysis of the most interesting tokens, and a briefer overview of the others.

Conclude with a summary of the current trends in new token launches, and identify any tokens
that might be worth adding to a watchlist for further research (with appropriate risk disclaimers).
`, limit, chainTitle(chain), maxAgeHours, filter)

	return Prompt{
		Kind:   "new_tokens",
		System: newTokensSystem,
		User:   user,
		Examples: []map[string]any{{
			"structure": map[string]any{
				"new_token_landscape": "Overview of recent token launches",
				"individual_token_analysis": []map[string]any{{
					"token":         "TOKEN (TKN)",
					"created":       "2023-06-15 14:30 UTC",
					"initial_price": "$0.00123",
					"current_price": "$0.00456",
					"liquidity":     "$12,345",
					"volume":        "$6,789",
					"analysis":      "Brief analysis of this token",
					"red_flags":     []string{"Flag 1", "Flag 2"},
					"potential":     "Assessment of potential",
				}},
				"risk_assessment":            "Analysis of risks across new tokens",
				"opportunity_identification": "Potential opportunities among new tokens",
				"conclusion":                 "Summary and recommendations",
			},
		}},
		Parameters: Parameters{
			Temperature: 0.7,
			MaxTokens:   2500,
			Extra: map[string]any{
				"chain_id":      chain,
				"endpoint_type": "new_tokens",
				"max_age_hours": maxAgeHours,
				"limit":         limit,
				"min_liquidity": minLiquidity,
			},
		},
	}
}

// RankingOptions toggles optional sections of a ranking analysis.
type RankingOptions struct {
	Technical bool
	Risk      bool
}

// Ranking builds the prompt for a gainers, losers or hot pools list. The
// user message ends with a lead-in for the data appended after it.
func Ranking(kind, chain string, limit int, opts RankingOptions) Prompt {
	noun := rankingNoun(kind)

	var extra []string
	if opts.Technical {
		extra = append(extra, "Include technical analysis for tokens showing interesting patterns.")
	}
	if opts.Risk {
		extra = append(extra, "Provide a detailed risk assessment for each token, highlighting potential red flags.")
	}

	user := fmt.Sprintf(`
Please analyze the following top %d %s on the %s blockchain.

For each token, provide:
1. A brief overview of what the token might be (based on its name and symbol)
2. An analysis of its price movement and whether it appears sustainable
3. An assessment of its trading volume and liquidity
4. Information about when it was created and which exchange it's trading on
5. A risk rating (Low, Medium, High, Very High) with explanation

%s

Conclude with an overall market trend analysis and any investment opportunities or warnings.

Here is the data:
`, limit, noun, chainTitle(chain), strings.Join(extra, "\n"))

	return Prompt{
		Kind:   kind,
		System: fmt.Sprintf(rankingSystem, noun, chainTitle(chain), sectionTitle(noun)),
		User:   user,
		Parameters: Parameters{
			Temperature: 0.7,
			MaxTokens:   4000,
			Extra: map[string]any{
				"limit":                      limit,
				"include_technical_analysis": opts.Technical,
				"include_risk_assessment":    opts.Risk,
			},
		},
	}
}

func rankingNoun(kind string) string {
	switch kind {
	case "losers":
		return "losing tokens"
	case "hotpools":
		return "hot pools"
	default:
		return "gaining tokens"
	}
}

func sectionTitle(noun string) string {
	switch noun {
	case "losing tokens":
		return "Top Losers"
	case "hot pools":
		return "Hot Pools"
	default:
		return "Top Gainers"
	}
}

func chainTitle(chain string) string {
	if chain == "" {
		return "Solana"
	}
	return strings.ToUpper(chain[:1]) + chain[1:]
}
