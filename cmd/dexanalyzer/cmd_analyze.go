package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/NikhilSetiya/dexanalyzer/internal/analyzer"
	"github.com/NikhilSetiya/dexanalyzer/internal/dextools"
	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/internal/report"
)

var (
	useMock bool

	rankingKind  string
	rankingLimit int

	recentHours        int
	recentLimit        int
	recentMinLiquidity float64
	recentSummary      bool

	hotLimit     int
	hotMinVolume float64
	hotSummary   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze market data with a language model and write reports",
}

var analyzeRankingCmd = &cobra.Command{
	Use:   "ranking",
	Short: "Analyze the gainers, losers or hot pools ranking as a whole",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := dextools.ParseRanking(rankingKind)
		if err != nil {
			return err
		}
		svc, err := rt.analyzer(useMock)
		if err != nil {
			return err
		}

		res, err := svc.AnalyzeRanking(cmd.Context(), kind, rankingLimit)
		if err != nil {
			rt.recordError(cmd.Context(), "analyze_ranking", err)
			return err
		}
		printRanking(cmd.OutOrStdout(), res)
		return nil
	},
}

var analyzeRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Analyze recently created pools, one report per token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := rt.analyzer(useMock)
		if err != nil {
			return err
		}

		res, err := svc.AnalyzeRecent(cmd.Context(), analyzer.RecentOptions{
			Hours:        recentHours,
			Limit:        recentLimit,
			MinLiquidity: recentMinLiquidity,
			Summary:      recentSummary,
		})
		if err != nil {
			rt.recordError(cmd.Context(), "analyze_recent", err)
			return err
		}
		printBatch(cmd.OutOrStdout(), res)
		return nil
	},
}

var analyzeHotPairsCmd = &cobra.Command{
	Use:   "hot-pairs",
	Short: "Analyze the hottest pools, one report per token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := rt.analyzer(useMock)
		if err != nil {
			return err
		}

		opts := analyzer.HotPairsOptions{Limit: hotLimit, Summary: hotSummary}
		if cmd.Flags().Changed("min-volume") {
			opts.MinVolume = market.Float(hotMinVolume)
		}

		res, err := svc.AnalyzeHotPairs(cmd.Context(), opts)
		if err != nil {
			rt.recordError(cmd.Context(), "analyze_hot_pairs", err)
			return err
		}
		printBatch(cmd.OutOrStdout(), res)
		return nil
	},
}

var analyzeTokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Analyze a single token by address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := rt.analyzer(useMock)
		if err != nil {
			return err
		}

		res, err := svc.AnalyzeToken(cmd.Context(), args[0])
		if err != nil {
			rt.recordError(cmd.Context(), "analyze_token", err)
			return err
		}
		printToken(cmd.OutOrStdout(), *res)
		return nil
	},
}

func init() {
	analyzeCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Use the built-in heuristic analyst instead of the LLM")

	analyzeRankingCmd.Flags().StringVar(&rankingKind, "kind", string(dextools.RankingGainers), "Ranking to analyze: gainers, losers or hotpools")
	analyzeRankingCmd.Flags().IntVar(&rankingLimit, "limit", 10, "Number of ranked tokens to include")

	analyzeRecentCmd.Flags().IntVar(&recentHours, "hours", 48, "Only pools created within this many hours")
	analyzeRecentCmd.Flags().IntVar(&recentLimit, "limit", 10, "Maximum number of tokens to analyze")
	analyzeRecentCmd.Flags().Float64Var(&recentMinLiquidity, "min-liquidity", 5000, "Minimum pool liquidity in USD")
	analyzeRecentCmd.Flags().BoolVar(&recentSummary, "summary", false, "Also write one aggregate report over all tokens")

	analyzeHotPairsCmd.Flags().IntVar(&hotLimit, "limit", 5, "Maximum number of tokens to analyze")
	analyzeHotPairsCmd.Flags().Float64Var(&hotMinVolume, "min-volume", 0, "Minimum 24h volume in USD")
	analyzeHotPairsCmd.Flags().BoolVar(&hotSummary, "summary", false, "Also write one aggregate report over all tokens")

	analyzeCmd.AddCommand(analyzeRankingCmd, analyzeRecentCmd, analyzeHotPairsCmd, analyzeTokenCmd)
}

func printRanking(w io.Writer, res *analyzer.RankingResult) {
	fmt.Fprintf(w, "%s %s: %d tokens analyzed by %s\n", res.Snapshot.Chain, res.Snapshot.Endpoint, len(res.Snapshot.Tokens), res.Provider)
	if res.Err != nil {
		fmt.Fprintf(w, "  analysis unavailable: %v\n", res.Err)
	}
	printReports(w, res.Reports)
}

func printBatch(w io.Writer, res *analyzer.BatchResult) {
	for _, t := range res.Tokens {
		printToken(w, t)
	}
	if res.Summary != nil {
		printRanking(w, res.Summary)
	}
}

func printToken(w io.Writer, res analyzer.TokenResult) {
	fmt.Fprintf(w, "%s  price %s  24h %s  liquidity %s\n",
		res.Token.Label(), market.Price(res.Token.Price), market.Percent(res.Token.PriceChange24h), market.USD(res.Token.Liquidity))
	if res.Err != nil {
		fmt.Fprintf(w, "  analysis unavailable: %v\n", res.Err)
	}
	printReports(w, res.Reports)
}

func printReports(w io.Writer, reports []report.Result) {
	for _, r := range reports {
		fmt.Fprintf(w, "  report: %s\n", r.Path)
	}
}
