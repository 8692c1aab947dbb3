package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	// Global flags
	envFile     string
	logLevel    string
	logFormat   string
	metricsAddr string
	profilePath string

	// Common flags
	apiKey    string
	plan      string
	chain     string
	outputDir string
	format    string

	// Built in PersistentPreRunE, closed in PersistentPostRunE.
	rt *app
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dexanalyzer",
	Short: "Fetch DEX market data and turn it into LLM-written analysis reports",
	Long: `dexanalyzer pulls token and pool data from the DexTools API through a
resilient request executor (candidate URLs, retries with backoff, user-agent
rotation), asks a language model for an analysis and writes Markdown or PDF
reports.

Secrets are read from the environment (DEXTOOLS_API_KEY, OPENAI_API_KEY),
optionally seeded from an .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd == versionCmd {
			return nil
		}
		var err error
		rt, err = newApp(cmd)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if rt == nil {
			return nil
		}
		rt.logger.LogRunEvent(cmd.Context(), "command_completed", logrus.Fields{"command": cmd.CommandPath()})
		err := rt.Close(context.Background())
		rt = nil
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dexanalyzer %s\n", version)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&envFile, "env-file", ".env", "File to seed the environment from (missing file is ignored)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	pf.StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides LOG_FORMAT)")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address while running")
	pf.StringVar(&profilePath, "profile", "", "YAML endpoint profile with alternative base URLs, chain aliases and templates")

	pf.StringVar(&apiKey, "api-key", "", "DexTools API key (overrides DEXTOOLS_API_KEY)")
	pf.StringVar(&plan, "plan", "", "DexTools plan: free, trial, standard, advanced, pro, partner")
	pf.StringVar(&chain, "chain", "", "Blockchain id, e.g. solana or ether")
	pf.StringVar(&outputDir, "output-dir", "", "Directory reports are written to")
	pf.StringVar(&format, "format", "", "Report format: markdown, pdf or both")

	rootCmd.AddCommand(analyzeCmd, fetchCmd, probeCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if rt != nil {
			_ = rt.Close(context.Background())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
