// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the anomaly-refinery CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/anomaly-refinery/internal/secrets"
	"github.com/pdiddy/anomaly-refinery/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// rootCmd is the base command for the anomaly-refinery CLI.
var rootCmd = &cobra.Command{
	Use:   "anomaly-refinery",
	Short: "Refine equipment anomaly spreadsheets into ranked, scored records",
	Long: `anomaly-refinery ingests spreadsheets describing industrial equipment
anomalies and refines them through three layers: bronze (raw rows with
provenance), silver (cleaned and typed), and gold (scored, classified,
deduplicated by equipment identifier).

Each stage is a subcommand: ingest runs the full pipeline on a file;
transform and score resume a partially completed run without re-parsing
the source.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./anomaly-refinery.yaml or ~/.config/anomaly-refinery/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the pipeline database (default: data)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("anomaly-refinery")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "anomaly-refinery"))
		}
	}

	viper.SetEnvPrefix("ANOMALY_REFINERY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the stage configuration from viper, flags, and
// loaded secrets.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	var cfg types.PipelineConfig

	cfg.Store.DataDir = viper.GetString("store.data_dir")
	if flagDir, _ := cmd.Flags().GetString("data-dir"); flagDir != "" {
		cfg.Store.DataDir = flagDir
	}

	cfg.Ingestion.SheetName = viper.GetString("ingestion.sheet_name")
	cfg.Transform.BatchSize = viper.GetInt("transform.batch_size")
	cfg.Aggregate.BatchSize = viper.GetInt("aggregate.batch_size")
	cfg.Aggregate.TitleLength = viper.GetInt("aggregate.title_length")

	cfg.Prediction.BaseURL = viper.GetString("prediction.base_url")
	cfg.Prediction.BatchSize = viper.GetInt("prediction.batch_size")
	cfg.Prediction.Timeout = viper.GetDuration("prediction.timeout")
	cfg.Prediction.UserAgent = "anomaly-refinery/" + version
	cfg.Prediction.APIKey = viper.GetString("prediction.api_key")
	if cfg.Prediction.APIKey == "" {
		cfg.Prediction.APIKey = loadedSecrets["scoring-api-key"]
	}

	return cfg
}

// printReport writes the per-stage counters in the summary block every
// command ends with.
func printReport(report types.PipelineReport) {
	fmt.Println()
	fmt.Println("Pipeline report")
	if report.SourceFile != "" {
		fmt.Printf("  source:       %s\n", report.SourceFile)
	}
	fmt.Printf("  duration:     %s\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))
	fmt.Printf("  parsed:       %d rows (%d rejected)\n", report.RowsParsed, report.RowsRejected)
	fmt.Printf("  silver:       %d created, %d rejected, %d superseded\n",
		report.SilverCreated, report.SilverRejected, report.SilverDuplicates)
	fmt.Printf("  predictions:  %d attempted, %d succeeded, %d failed\n",
		report.PredictionsAttempted, report.PredictionsSucceeded, report.PredictionsFailed)
	fmt.Printf("  gold:         %d inserted, %d updated\n", report.GoldInserted, report.GoldUpdated)
	if report.PersistenceErrors > 0 {
		fmt.Printf("  persistence errors: %d\n", report.PersistenceErrors)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
