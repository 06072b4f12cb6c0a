// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/anomaly-refinery/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-layer record counts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := pipelineConfig(cmd)
		s, err := store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer s.Close()

		counts, err := s.Counts(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("bronze: %d (%d unprocessed)\n", counts.Bronze, counts.BronzeUnprocessed)
		fmt.Printf("silver: %d\n", counts.Silver)
		fmt.Printf("gold:   %d\n", counts.Gold)
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete records from one layer, or all of them, before a re-seed",
	RunE:  runClear,
}

func init() {
	clearCmd.Flags().String("layer", "all", "layer to clear: bronze, silver, gold, or all")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	layer, _ := cmd.Flags().GetString("layer")

	cfg := pipelineConfig(cmd)
	s, err := store.NewStore(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	clearers := map[string][]func(context.Context) error{
		"bronze": {s.ClearBronze},
		"silver": {s.ClearSilver},
		"gold":   {s.ClearGold},
		// gold first: silver references bronze, so bronze goes last.
		"all": {s.ClearGold, s.ClearSilver, s.ClearBronze},
	}

	fns, ok := clearers[layer]
	if !ok {
		return fmt.Errorf("unknown layer %q: use bronze, silver, gold, or all", layer)
	}
	for _, fn := range fns {
		if err := fn(ctx); err != nil {
			return err
		}
	}

	fmt.Printf("Cleared %s\n", layer)
	return nil
}
