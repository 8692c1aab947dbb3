package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/NikhilSetiya/dexanalyzer/internal/dextools"
	"github.com/NikhilSetiya/dexanalyzer/internal/market"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

var (
	fetchLimit    int
	fetchPage     int
	fetchPageSize int
	fetchHours    int
	fetchJSON     bool
	rawQuery      map[string]string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch raw market data from the DexTools API",
}

var fetchBlockchainsCmd = &cobra.Command{
	Use:   "blockchains",
	Short: "List supported blockchains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		page, err := client.Blockchains(cmd.Context(), fetchPage)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

var fetchChainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Show the configured blockchain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		chain, err := client.Blockchain(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), chain)
	},
}

var fetchDexesCmd = &cobra.Command{
	Use:   "dexes",
	Short: "List exchanges on the configured blockchain",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		page, err := client.Dexes(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), page)
	},
}

func rankingCmd(kind dextools.Ranking, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(kind),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := rt.dexClient()
			if err != nil {
				return err
			}
			pairs, err := client.Ranking(cmd.Context(), kind, fetchLimit)
			if err != nil {
				return err
			}
			if fetchJSON {
				return printJSON(cmd.OutOrStdout(), pairs)
			}
			printPairs(cmd.OutOrStdout(), pairs)
			return nil
		},
	}
}

var fetchPoolsCmd = &cobra.Command{
	Use:   "pools",
	Short: "List pools created within the last --hours, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		page, err := client.Pools(cmd.Context(), dextools.PoolQuery{
			From:     now.Add(-time.Duration(fetchHours) * time.Hour),
			To:       now,
			Sort:     "creationTime",
			Order:    "desc",
			Page:     fetchPage,
			PageSize: fetchPageSize,
		})
		if err != nil {
			return err
		}
		if fetchJSON {
			return printJSON(cmd.OutOrStdout(), page)
		}
		printPairs(cmd.OutOrStdout(), page.Pairs)
		return nil
	},
}

var fetchPoolCmd = &cobra.Command{
	Use:   "pool <address>",
	Short: "Show one pool with its price and liquidity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		pool, err := client.Pool(ctx, args[0])
		if err != nil {
			return err
		}
		price, err := client.PoolPrice(ctx, args[0])
		if err != nil {
			return err
		}
		liquidity, err := client.PoolLiquidity(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"pool":      pool,
			"price":     price,
			"liquidity": liquidity,
		})
	},
}

var fetchTokenCmd = &cobra.Command{
	Use:   "token <address>",
	Short: "Show one token with its info and price",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		token, err := client.Token(ctx, args[0])
		if err != nil {
			return err
		}
		info, err := client.TokenInfo(ctx, args[0])
		if err != nil {
			return err
		}
		price, err := client.TokenPrice(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), token.TokenData(info, price))
	},
}

var fetchRawCmd = &cobra.Command{
	Use:   "raw <path-template>",
	Short: "Call any path, e.g. /token/{chain}/0xabc/pools, through the resilient executor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := rt.dexClient()
		if err != nil {
			return err
		}
		env, err := client.Raw(cmd.Context(), resilience.Operation{
			Name:      "raw",
			Templates: []string{args[0]},
			Query:     rawQuery,
		})
		if err != nil {
			return err
		}
		out, err := env.Pretty()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return err
	},
}

func init() {
	gainers := rankingCmd(dextools.RankingGainers, "Top gainers on the configured blockchain")
	losers := rankingCmd(dextools.RankingLosers, "Top losers on the configured blockchain")
	hotpools := rankingCmd(dextools.RankingHotPools, "Hot pools on the configured blockchain")
	for _, c := range []*cobra.Command{gainers, losers, hotpools} {
		c.Flags().IntVar(&fetchLimit, "limit", 10, "Number of entries to show")
		c.Flags().BoolVar(&fetchJSON, "json", false, "Print JSON instead of a table")
	}

	fetchBlockchainsCmd.Flags().IntVar(&fetchPage, "page", 0, "Result page")

	fetchPoolsCmd.Flags().IntVar(&fetchHours, "hours", 24, "Only pools created within this many hours")
	fetchPoolsCmd.Flags().IntVar(&fetchPage, "page", 0, "Result page")
	fetchPoolsCmd.Flags().IntVar(&fetchPageSize, "page-size", 50, "Results per page")
	fetchPoolsCmd.Flags().BoolVar(&fetchJSON, "json", false, "Print JSON instead of a table")

	fetchRawCmd.Flags().StringToStringVar(&rawQuery, "query", nil, "Query parameters as key=value pairs")

	fetchCmd.AddCommand(
		fetchBlockchainsCmd, fetchChainCmd, fetchDexesCmd,
		gainers, losers, hotpools,
		fetchPoolsCmd, fetchPoolCmd, fetchTokenCmd, fetchRawCmd,
	)
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// printPairs renders pairs as a ranked table.
func printPairs(w io.Writer, pairs []market.Pair) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "Pair", "DEX", "Price", "24h", "Volume", "Liquidity").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, p := range pairs {
		rank := p.Rank
		if rank == 0 {
			rank = i + 1
		}
		t.Row(
			strconv.Itoa(rank),
			p.Name(),
			p.DexName(),
			market.Price(p.Price),
			market.Percent(p.Change24h()),
			market.USD(p.Volume24h),
			market.USD(p.Liquidity),
		)
	}
	fmt.Fprintln(w, t.Render())
}
