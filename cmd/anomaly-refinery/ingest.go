// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/anomaly-refinery/internal/ingest"
	"github.com/pdiddy/anomaly-refinery/internal/pipeline"
	"github.com/pdiddy/anomaly-refinery/internal/predict"
	"github.com/pdiddy/anomaly-refinery/internal/store"
	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Run the full pipeline on one anomaly spreadsheet",
	Long: `Ingest parses a CSV or XLSX anomaly sheet into the bronze layer,
transforms the rows to silver, scores them through the configured
prediction service, and upserts gold anomaly records keyed by equipment
identifier. Re-running the same file updates existing gold records
instead of duplicating them.

Per-row failures are counted in the report; only an unreadable file
aborts the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("format", "", "source format: csv or xlsx (default: from file extension)")
	ingestCmd.Flags().String("report", "", "write the pipeline report to this YAML file")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]

	format, err := resolveFormat(cmd, path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	orch, s, err := buildOrchestrator(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := orch.RunFull(ctx, data, format, filepath.Base(path), os.Stderr)
	if err != nil {
		return err
	}

	printReport(report)
	return writeReportFile(cmd, report)
}

// resolveFormat picks the parse format from the --format flag or the
// file extension.
func resolveFormat(cmd *cobra.Command, path string) (ingest.Format, error) {
	flagFormat, _ := cmd.Flags().GetString("format")
	switch strings.ToLower(flagFormat) {
	case "csv":
		return ingest.FormatCSV, nil
	case "xlsx":
		return ingest.FormatXLSX, nil
	case "":
	default:
		return "", fmt.Errorf("unsupported format %q: use csv or xlsx", flagFormat)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ingest.FormatCSV, nil
	case ".xlsx", ".xlsm":
		return ingest.FormatXLSX, nil
	default:
		return "", fmt.Errorf("cannot infer format of %s: pass --format csv or xlsx", path)
	}
}

// buildOrchestrator opens the store and wires the pipeline. The scorer is
// nil when no prediction service is configured; sheet-declared sub-scores
// then drive classification.
func buildOrchestrator(cmd *cobra.Command) (*pipeline.Orchestrator, *store.Store, error) {
	cfg := pipelineConfig(cmd)

	s, err := store.NewStore(cfg.Store)
	if err != nil {
		return nil, nil, err
	}

	var scorer pipeline.Scorer
	if cfg.Prediction.BaseURL != "" {
		scorer = predict.New(cfg.Prediction)
	} else {
		fmt.Fprintln(os.Stderr, "warning: no prediction service configured, using sheet-declared scores")
	}

	return pipeline.New(s, scorer, cfg), s, nil
}

// writeReportFile exports the report as YAML when --report was given.
func writeReportFile(cmd *cobra.Command, report types.PipelineReport) error {
	path, _ := cmd.Flags().GetString("report")
	if path == "" {
		return nil
	}
	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	fmt.Printf("Report written to %s\n", path)
	return nil
}
