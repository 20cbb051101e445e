package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/dreamseed/internal/backfill"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

var (
	reclassifyDryRun      bool
	reclassifyConcurrency int
)

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify",
	Short: "Re-derive every dream_dna_type row from its Truth record",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		db, err := store.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		r := backfill.NewReclassifier(backfill.Config{
			DryRun:      reclassifyDryRun,
			Concurrency: reclassifyConcurrency,
		}, db, nil, slog.Default())
		stats, err := r.Run(cmd.Context())
		if err != nil {
			return err
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
	},
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifyDryRun, "dry-run", false, "log changes without writing")
	reclassifyCmd.Flags().IntVar(&reclassifyConcurrency, "concurrency", backfill.DefaultConcurrency, "users reclassified in parallel")
}
