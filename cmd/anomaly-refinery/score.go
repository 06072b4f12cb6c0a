// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score silver records and upsert gold anomalies",
	Long: `Score resumes the silver-to-gold stage: it sends every silver record
through the configured prediction service (when one is configured) and
upserts gold anomaly records keyed by equipment identifier. Records are
aggregated oldest first, so the latest silver record for an equipment
identifier determines the final gold state.

Re-running score after a prediction-service outage replaces the fallback
scores with real ones.`,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().String("report", "", "write the pipeline report to this YAML file")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, args []string) error {
	orch, s, err := buildOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := orch.RunScore(ctx, os.Stderr)
	if err != nil {
		return err
	}

	printReport(report)
	return writeReportFile(cmd, report)
}
