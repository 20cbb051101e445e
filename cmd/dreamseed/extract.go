package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/confidence"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/openai"
	"github.com/MikeSquared-Agency/dreamseed/internal/processor"
)

var (
	extractFile  string
	extractStage int
)

// extractCmd runs extraction and classification on a transcript without
// touching the database.
var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract and classify business insights from a transcript file (or stdin)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is required")
		}
		if extractStage < 1 || extractStage > processor.MaxCallStage {
			return fmt.Errorf("--stage must be between 1 and %d", processor.MaxCallStage)
		}

		var (
			raw []byte
			err error
		)
		if extractFile == "" || extractFile == "-" {
			raw, err = io.ReadAll(cmd.InOrStdin())
		} else {
			raw, err = os.ReadFile(extractFile)
		}
		if err != nil {
			return fmt.Errorf("read transcript: %w", err)
		}

		llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.EmbeddingModel)
		in, err := extractor.New(llm, slog.Default()).Extract(cmd.Context(), string(raw), extractStage)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"business_insights":       in,
			"confidence_score":        confidence.Score(in),
			"extraction_source":       extractor.Source(extractStage),
			"business_classification": classify.WholeRecord{}.Classify(in),
		})
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "transcript file (default stdin)")
	extractCmd.Flags().IntVar(&extractStage, "stage", 1, "call stage, 1 to 4")
}
