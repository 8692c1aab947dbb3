package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/NikhilSetiya/dexanalyzer/internal/probe"
	"github.com/NikhilSetiya/dexanalyzer/pkg/resilience"
)

var (
	probePause time.Duration
	probePlans []string
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Diagnose API access",
}

var probePlansCmd = &cobra.Command{
	Use:   "plans",
	Short: "Check which subscription plans accept the configured API key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := rt.cfg.RequireDexToolsKey(); err != nil {
			return err
		}

		// One attempt per endpoint so a rejected plan fails fast.
		cfg := executorConfig(rt.cfg)
		cfg.MaxRetries = 0
		exec := resilience.NewExecutor(cfg,
			resilience.WithTransport(rt.transport),
			resilience.WithLogger(rt.logger),
			resilience.WithRecorder(rt.metrics),
			resilience.WithTracer(rt.tracing.Tracer()),
		)

		pc := probe.DefaultConfig()
		pc.APIKey = rt.cfg.DexTools.APIKey
		pc.Chain = rt.cfg.DexTools.ProbeChain
		pc.Pause = probePause
		if len(probePlans) > 0 {
			pc.Plans = probePlans
		}

		report, err := probe.NewProber(exec, pc, rt.logger).Run(cmd.Context())
		if report != nil {
			printProbe(cmd.OutOrStdout(), report)
		}
		return err
	},
}

func init() {
	probePlansCmd.Flags().DurationVar(&probePause, "pause", time.Second, "Wait between plans")
	probePlansCmd.Flags().StringSliceVar(&probePlans, "plans", nil, "Plans to probe (default: all)")
	probeCmd.AddCommand(probePlansCmd)
}

func printProbe(w io.Writer, report *probe.Report) {
	fmt.Fprintf(w, "Probing chain %s\n\n", report.Chain)
	for _, p := range report.Plans {
		fmt.Fprintf(w, "%s (%s)\n", p.Plan, p.BaseURL)
		for _, e := range p.Endpoints {
			if e.OK {
				fmt.Fprintf(w, "  ok    %-18s %s\n", e.Endpoint, e.Duration.Round(time.Millisecond))
			} else {
				fmt.Fprintf(w, "  fail  %-18s %s\n", e.Endpoint, e.Error)
			}
		}
	}

	fmt.Fprintln(w)
	if working := report.WorkingPlans(); len(working) > 0 {
		fmt.Fprintf(w, "Working plans: %s\n", strings.Join(working, ", "))
	} else {
		fmt.Fprintln(w, "No plan accepted the key on every endpoint")
	}
}
