package dreamdna

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
	"github.com/MikeSquared-Agency/dreamseed/internal/supabase"
)

const (
	SourceV2     = "dream_dna_truth"
	SourceLegacy = "dream_dna"
	SourceNone   = TierNone
)

type TruthReader interface {
	GetTruth(ctx context.Context, userID uuid.UUID) (*store.Truth, error)
	GetType(ctx context.Context, userID uuid.UUID) (*store.DreamType, error)
}

type LegacyReader interface {
	LatestLegacyDreamDNA(ctx context.Context) (*supabase.LegacyDreamDNA, error)
}

// Snapshot is whatever Dream DNA could be read for a user, and where it came from.
type Snapshot struct {
	Source string                   `json:"source"`
	Truth  *store.Truth             `json:"truth,omitempty"`
	Type   *store.DreamType         `json:"type,omitempty"`
	Legacy *supabase.LegacyDreamDNA `json:"legacy,omitempty"`
}

// Insight flattens the snapshot into the insight shape.
func (s Snapshot) Insight() extractor.Insight {
	switch {
	case s.Truth != nil:
		return TruthInsight(*s.Truth)
	case s.Legacy != nil:
		return extractor.Insight{
			ProblemStatement: extractor.Str(s.Legacy.WhatProblem),
			TargetMarket:     extractor.Str(s.Legacy.WhoServes),
			CompetitiveEdge:  extractor.Str(s.Legacy.HowDifferent),
			PrimaryService:   extractor.Str(s.Legacy.PrimaryService),
		}
	default:
		return extractor.Insight{}
	}
}

// Loader reads Dream DNA from v2, falling back to the legacy table when the v2
// read errors. A user with no v2 row gets an empty snapshot: legacy rows carry
// no user id and would belong to someone else.
type Loader struct {
	truths TruthReader
	legacy LegacyReader
	logger *slog.Logger
}

// NewLoader accepts a nil legacy reader when Supabase is not configured.
func NewLoader(truths TruthReader, legacy LegacyReader, logger *slog.Logger) *Loader {
	return &Loader{truths: truths, legacy: legacy, logger: logger}
}

func (l *Loader) Load(ctx context.Context, userID uuid.UUID) Snapshot {
	truth, err := l.truths.GetTruth(ctx, userID)
	switch {
	case err == nil:
		snap := Snapshot{Source: SourceV2, Truth: truth}
		typ, err := l.truths.GetType(ctx, userID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			l.logger.Warn("dream type read failed", "user_id", userID, "error", err)
		}
		snap.Type = typ
		return snap
	case errors.Is(err, store.ErrNotFound):
		return Snapshot{Source: SourceNone}
	}

	l.logger.Warn("dream dna v2 read failed, trying legacy", "user_id", userID, "error", err)
	if l.legacy == nil {
		return Snapshot{Source: SourceNone}
	}
	row, err := l.legacy.LatestLegacyDreamDNA(ctx)
	if err != nil {
		l.logger.Warn("legacy dream dna read failed", "user_id", userID, "error", err)
		return Snapshot{Source: SourceNone}
	}
	return Snapshot{Source: SourceLegacy, Legacy: row}
}
