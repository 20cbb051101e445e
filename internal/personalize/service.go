package personalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/vapi"
)

// ErrAssistantNotConfigured is returned by Push without VAPI credentials.
var ErrAssistantNotConfigured = errors.New("voice assistant not configured")

type SnapshotLoader interface {
	Load(ctx context.Context, userID uuid.UUID) dreamdna.Snapshot
}

type SummaryReader interface {
	RecentTranscriptSummaries(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
}

type AssistantUpdater interface {
	UpdateSystemPrompt(ctx context.Context, id, prompt string) (*vapi.Assistant, error)
}

type Preview struct {
	UserID     string `json:"user_id"`
	Source     string `json:"source"`
	Archetype  string `json:"archetype,omitempty"`
	Summaries  int    `json:"summaries"`
	Prompt     string `json:"prompt"`
	PromptSize int    `json:"prompt_chars"`
}

type Pushed struct {
	Preview
	AssistantID string `json:"assistant_id"`
}

type Service struct {
	loader      SnapshotLoader
	summaries   SummaryReader
	assistant   AssistantUpdater
	assistantID string
	logger      *slog.Logger
}

// NewService accepts a nil assistant when VAPI is not configured; Preview
// still works.
func NewService(loader SnapshotLoader, summaries SummaryReader, assistant AssistantUpdater, assistantID string, logger *slog.Logger) *Service {
	return &Service{loader: loader, summaries: summaries, assistant: assistant, assistantID: assistantID, logger: logger}
}

// Preview builds the prompt without touching the assistant. Summary read
// failures degrade to a prompt without history.
func (s *Service) Preview(ctx context.Context, userID uuid.UUID) (*Preview, error) {
	var (
		snap      dreamdna.Snapshot
		summaries []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap = s.loader.Load(gctx, userID)
		return nil
	})
	g.Go(func() error {
		if s.summaries == nil {
			return nil
		}
		got, err := s.summaries.RecentTranscriptSummaries(gctx, userID, MaxSummaries)
		if err != nil {
			s.logger.Warn("transcript summaries unavailable", "user_id", userID, "error", err)
			return nil
		}
		summaries = got
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build preview: %w", err)
	}

	prompt := BuildPrompt(snap, summaries)
	p := &Preview{
		UserID:     userID.String(),
		Source:     snap.Source,
		Summaries:  len(summaries),
		Prompt:     prompt,
		PromptSize: len(prompt),
	}
	if snap.Type != nil {
		p.Archetype = snap.Type.BusinessArchetype
	}
	return p, nil
}

// Push builds the prompt and writes it to the assistant.
func (s *Service) Push(ctx context.Context, userID uuid.UUID) (*Pushed, error) {
	if s.assistant == nil || s.assistantID == "" {
		return nil, ErrAssistantNotConfigured
	}
	p, err := s.Preview(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.assistant.UpdateSystemPrompt(ctx, s.assistantID, p.Prompt); err != nil {
		return nil, fmt.Errorf("push prompt: %w", err)
	}
	s.logger.Info("assistant personalised", "user_id", userID, "source", p.Source, "assistant_id", s.assistantID)
	return &Pushed{Preview: *p, AssistantID: s.assistantID}, nil
}
