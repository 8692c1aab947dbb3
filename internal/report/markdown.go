package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

type section struct {
	heading string
	body    string
	code    string
}

// document is the format-neutral content of one report.
type document struct {
	title    string
	preamble string
	sections []section
	footer   string
}

func (d *document) markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", d.title)
	if d.preamble != "" {
		b.WriteString(d.preamble + "\n\n")
	}
	for _, s := range d.sections {
		fmt.Fprintf(&b, "## %s\n\n", s.heading)
		if s.body != "" {
			b.WriteString(strings.TrimRight(s.body, "\n") + "\n\n")
		}
		if s.code != "" {
			fmt.Fprintf(&b, "```json\n%s\n```\n\n", s.code)
		}
	}
	if d.footer != "" {
		b.WriteString(d.footer + "\n")
	}
	return b.String()
}

func rawJSON(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", apperrors.NewInternalError("failed to encode report data").WithCause(err)
	}
	return string(raw), nil
}

func tokenDocument(r TokenReport, now time.Time) (*document, error) {
	raw, err := rawJSON(r.Raw)
	if err != nil {
		return nil, err
	}
	t := r.Token

	info := []string{
		"- **Name:** " + orUnknown(t.Name),
		"- **Symbol:** " + orUnknown(t.Symbol),
		"- **Address:** " + orUnknown(t.Address),
		"- **Mint Address:** " + orUnknown(t.Mint),
	}
	if t.CreatedAt != "" {
		info = append(info, "- **Created:** "+market.Created(t.CreatedAt))
	}
	if t.Exchange != nil && t.Exchange.Name != "" {
		info = append(info, "- **Exchange:** "+t.Exchange.Name)
	}

	var metrics []string
	if t.Price != nil {
		metrics = append(metrics, "- **Price:** "+market.Price(t.Price))
	}
	if t.PriceChange24h != nil {
		metrics = append(metrics, "- **24h Price Change:** "+market.Percent(t.PriceChange24h))
	}
	if t.Liquidity != nil {
		metrics = append(metrics, "- **Liquidity:** "+market.USD(t.Liquidity))
	}
	if t.Volume24h != nil {
		metrics = append(metrics, "- **24h Volume:** "+market.USD(t.Volume24h))
	}
	if t.MarketCap != nil {
		metrics = append(metrics, "- **Market Cap:** "+market.USD(t.MarketCap))
	}
	if t.TotalSupply != nil {
		metrics = append(metrics, "- **Total Supply:** "+market.Grouped(*t.TotalSupply, 0))
	}
	if t.Decimals != nil {
		metrics = append(metrics, fmt.Sprintf("- **Decimals:** %d", *t.Decimals))
	}
	if t.HolderCount != nil {
		metrics = append(metrics, "- **Holder Count:** "+market.Grouped(decimal.NewFromInt(*t.HolderCount), 0))
	}
	if len(metrics) == 0 {
		metrics = append(metrics, "No market metrics available.")
	}

	footer := ""
	if r.Provider != "" {
		footer = fmt.Sprintf("*Generated on %s by %s*", now.Format(time.RFC3339), analyzedBy(r.Provider, r.Model))
	}

	return &document{
		title:    "Analysis of " + t.Label(),
		preamble: "**Analysis Date:** " + now.Format("2006-01-02 15:04:05 UTC"),
		sections: []section{
			{heading: "Token Information", body: strings.Join(info, "\n")},
			{heading: "Key Metrics", body: strings.Join(metrics, "\n")},
			{heading: "Analysis", body: analysisOrUnavailable(r.Analysis)},
			{heading: "Raw Data", code: raw},
		},
		footer: footer,
	}, nil
}

func rankingDocument(r RankingReport, now time.Time) (*document, error) {
	raw, err := rawJSON(r.Raw)
	if err != nil {
		return nil, err
	}
	by := analyzedBy(r.Provider, r.Model)
	return &document{
		title: fmt.Sprintf("%s %s Analysis - %s", titleCase(r.Chain), kindTitle(r.Kind), now.Format("2006-01-02 15:04:05")),
		sections: []section{
			{heading: "Analysis by " + by, body: analysisOrUnavailable(r.Analysis)},
			{heading: "Raw Data", code: raw},
		},
		footer: fmt.Sprintf("*Generated on %s using DexTools API and %s*", now.Format(time.RFC3339), by),
	}, nil
}

func analyzedBy(provider, model string) string {
	switch {
	case model != "" && model != provider:
		return model
	case provider != "":
		return provider
	default:
		return market.Unknown
	}
}

func analysisOrUnavailable(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Analysis unavailable."
	}
	return s
}

func kindTitle(kind string) string {
	switch kind {
	case "hotpools", "hot_pairs":
		return "Hot Pools"
	case "new_tokens":
		return "New Tokens"
	default:
		return titleCase(strings.ReplaceAll(kind, "_", " "))
	}
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func orUnknown(s string) string {
	if s == "" {
		return market.Unknown
	}
	return s
}
