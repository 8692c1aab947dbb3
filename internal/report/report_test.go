package report

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	apperrors "github.com/NikhilSetiya/dexanalyzer/pkg/errors"
)

var fixedNow = time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)

type reportCounter map[string]int

func (c reportCounter) RecordReport(kind, format string) { c[kind+"/"+format]++ }

func newTestWriter(t *testing.T, formats ...Format) (*Writer, reportCounter) {
	t.Helper()
	counter := reportCounter{}
	w := NewWriter(Options{
		Dir:      filepath.Join(t.TempDir(), "outputs"),
		Formats:  formats,
		Now:      func() time.Time { return fixedNow },
		Recorder: counter,
	})
	return w, counter
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "BONK", want: "BONK"},
		{in: "$WIF", want: "_WIF"},
		{in: "a/b c.d", want: "a_b_c_d"},
		{in: "ÄÖ9", want: "ÄÖ9"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), tt.in)
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in      string
		want    []Format
		wantErr bool
	}{
		{in: "", want: []Format{FormatMarkdown}},
		{in: "Markdown", want: []Format{FormatMarkdown}},
		{in: "pdf", want: []Format{FormatPDF}},
		{in: "both", want: []Format{FormatMarkdown, FormatPDF}},
		{in: "docx", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormats(tt.in)
			if tt.wantErr {
				assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriter_WriteToken(t *testing.T) {
	w, counter := newTestWriter(t)

	supply := decimal.NewFromInt(1000000000)
	holders := int64(1234)
	token := market.TokenData{
		Name:           "Dog Wif Hat",
		Symbol:         "$WIF",
		Address:        "PairAddr",
		Mint:           "MintAddr",
		Price:          market.Float(2.5),
		PriceChange24h: market.Float(-3.25),
		Liquidity:      market.Float(1234567.891),
		CreatedAt:      "2024-01-02T03:04:05Z",
		TotalSupply:    &supply,
		HolderCount:    &holders,
	}

	results, err := w.WriteToken(TokenReport{Token: token, Analysis: "## Overview\nStrong community.", Provider: "mock", Model: "mock"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	assert.Equal(t, FormatMarkdown, res.Format)
	assert.Equal(t, "20240301_090507__WIF.md", filepath.Base(res.Path))
	assert.Greater(t, res.Size, int64(0))
	assert.Equal(t, fixedNow, res.GeneratedAt)
	assert.Equal(t, 1, counter["token/markdown"])

	content, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	text := string(content)

	for _, want := range []string{
		"# Analysis of Dog Wif Hat ($WIF)\n\n**Analysis Date:** 2024-03-01 09:05:07 UTC",
		"## Token Information\n\n- **Name:** Dog Wif Hat",
		"- **Mint Address:** MintAddr",
		"- **Created:** 2024-01-02 03:04:05 UTC",
		"## Key Metrics\n\n- **Price:** $2.500000",
		"- **24h Price Change:** -3.25%",
		"- **Liquidity:** $1,234,567.89",
		"- **Total Supply:** 1,000,000,000",
		"- **Holder Count:** 1,234",
		"## Analysis\n\n## Overview\nStrong community.",
		"## Raw Data\n\n```json\n{\n  \"name\": \"Dog Wif Hat\"",
	} {
		assert.Contains(t, text, want)
	}
	assert.NotContains(t, text, "Market Cap")
	assert.NotContains(t, text, "Decimals")
}

func TestWriter_SameNameDoesNotOverwrite(t *testing.T) {
	w, counter := newTestWriter(t, FormatMarkdown, FormatPDF)

	var paths []string
	for _, name := range []string{"First Pepe", "Second Pepe", "Third Pepe"} {
		results, err := w.WriteToken(TokenReport{
			Token:    market.TokenData{Name: name, Symbol: "PEPE"},
			Analysis: name + " analysis",
			Provider: "mock",
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, results[0].Path[:len(results[0].Path)-len(".md")], results[1].Path[:len(results[1].Path)-len(".pdf")])
		paths = append(paths, results[0].Path)
	}

	assert.Equal(t, []string{
		"20240301_090507_PEPE.md",
		"20240301_090507_PEPE_2.md",
		"20240301_090507_PEPE_3.md",
	}, []string{filepath.Base(paths[0]), filepath.Base(paths[1]), filepath.Base(paths[2])})
	assert.Equal(t, 3, counter["token/markdown"])
	assert.Equal(t, 3, counter["token/pdf"])

	content, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "First Pepe analysis")
	assert.NotContains(t, string(content), "Second Pepe")
}

func TestWriter_WriteRanking(t *testing.T) {
	w, counter := newTestWriter(t)

	results, err := w.WriteRanking(RankingReport{
		Chain:    "solana",
		Kind:     "gainers",
		Analysis: "",
		Provider: "openai",
		Model:    "gpt-4o",
		Raw:      map[string]int{"count": 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "solana_gainers_analysis_20240301_090507.md", filepath.Base(results[0].Path))
	assert.Equal(t, 1, counter["gainers/markdown"])

	content, err := os.ReadFile(results[0].Path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "# Solana Gainers Analysis - 2024-03-01 09:05:07\n")
	assert.Contains(t, text, "## Analysis by gpt-4o\n\nAnalysis unavailable.")
	assert.Contains(t, text, "```json\n{\n  \"count\": 0\n}\n```")
	assert.Contains(t, text, "*Generated on 2024-03-01T09:05:07Z using DexTools API and gpt-4o*")
}

func TestWriter_BothFormats(t *testing.T) {
	w, counter := newTestWriter(t, FormatMarkdown, FormatPDF)

	results, err := w.WriteRanking(RankingReport{
		Chain:    "solana",
		Kind:     "hotpools",
		Analysis: "# Hot Pools\n\n- **BONK** leads Pokémon volume, up 12%\n",
		Provider: "mock",
		Raw:      []string{"a"},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	pdfPath := results[1].Path
	assert.Equal(t, "solana_hotpools_analysis_20240301_090507.pdf", filepath.Base(pdfPath))
	head := make([]byte, 5)
	f, err := os.Open(pdfPath)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.Read(head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-", string(head))

	assert.Equal(t, 1, counter["hotpools/markdown"])
	assert.Equal(t, 1, counter["hotpools/pdf"])
}

func TestWriter_UnencodableRaw(t *testing.T) {
	w, _ := newTestWriter(t)
	_, err := w.WriteRanking(RankingReport{Chain: "solana", Kind: "gainers", Raw: make(chan int)})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}
