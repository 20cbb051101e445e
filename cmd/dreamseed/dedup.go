package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/dreamseed/internal/dedup"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

var (
	dedupThreshold float64
	dedupExecute   bool
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Find near-duplicate call transcripts by embedding similarity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		if dedupThreshold <= 0 || dedupThreshold > 1 {
			return fmt.Errorf("--threshold must be in (0, 1], got %v", dedupThreshold)
		}
		db, err := store.New(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		res, err := dedup.New(db, slog.Default()).Run(cmd.Context(), dedupThreshold, dedupExecute)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	dedupCmd.Flags().Float64Var(&dedupThreshold, "threshold", dedup.DefaultThreshold, "cosine similarity above which transcripts are duplicates")
	dedupCmd.Flags().BoolVar(&dedupExecute, "execute", false, "mark duplicates instead of only reporting them")
}
