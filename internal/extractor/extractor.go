package extractor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var ErrEmptyTranscript = errors.New("transcript is empty")

// Completer is the completion endpoint the extractor talks to.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Extractor struct {
	llm    Completer
	logger *slog.Logger
}

func New(llm Completer, logger *slog.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract asks the model for the business insights in a transcript. Provider
// failures are returned; unparseable output yields an empty Insight.
func (e *Extractor) Extract(ctx context.Context, transcript string, callStage int) (Insight, error) {
	if strings.TrimSpace(transcript) == "" {
		return Insight{}, ErrEmptyTranscript
	}

	e.logger.Info("extracting business insights",
		"call_stage", callStage,
		"transcript_len", len(transcript),
	)

	raw, err := e.llm.Complete(ctx, systemPrompt, fmt.Sprintf(extractionUserPrompt, callStage, transcript))
	if err != nil {
		return Insight{}, fmt.Errorf("llm extraction: %w", err)
	}

	in := ParseInsight(raw)
	if in.IsEmpty() {
		e.logger.Warn("extraction yielded no insights",
			"call_stage", callStage,
			"raw_len", len(raw),
		)
	} else {
		e.logger.Info("extraction complete", "call_stage", callStage)
	}
	return in, nil
}
