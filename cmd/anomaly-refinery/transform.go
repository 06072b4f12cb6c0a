// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Transform unprocessed bronze rows into silver records",
	Long: `Transform resumes the bronze-to-silver stage: it consumes every bronze
row not yet marked processed, cleans and type-coerces it, and writes
silver records. Use it to pick up a run that stopped after landing
without re-parsing the source file.`,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().String("report", "", "write the pipeline report to this YAML file")
	rootCmd.AddCommand(transformCmd)
}

func runTransform(cmd *cobra.Command, args []string) error {
	orch, s, err := buildOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := orch.RunTransform(ctx, os.Stderr)
	if err != nil {
		return err
	}

	printReport(report)
	return writeReportFile(cmd, report)
}
