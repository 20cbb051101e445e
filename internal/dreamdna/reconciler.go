package dreamdna

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

// TruthStore is the v2 persistence the reconciler needs.
type TruthStore interface {
	ReconcileTruth(ctx context.Context, userID uuid.UUID, merge func(existing *store.Truth) store.Truth) (bool, store.Truth, error)
	UpsertType(ctx context.Context, t store.DreamType) error
}

// Outcome describes one reconcile. TypeError is set when the derived
// classification row could not be written.
type Outcome struct {
	Created        bool                    `json:"created"`
	Truth          store.Truth             `json:"truth"`
	Classification classify.Classification `json:"classification"`
	TypeError      string                  `json:"type_error,omitempty"`
}

type Reconciler struct {
	store      TruthStore
	classifier classify.Classifier
	logger     *slog.Logger
	now        func() time.Time
}

func NewReconciler(s TruthStore, classifier classify.Classifier, logger *slog.Logger) *Reconciler {
	if classifier == nil {
		classifier = classify.WholeRecord{}
	}
	return &Reconciler{store: s, classifier: classifier, logger: logger, now: time.Now}
}

// Reconcile merges a transcript insight into the user's Truth row and refreshes
// the Type row. The Truth write is strict; the Type write only logs.
//
// The Type row is classified from this call's insight alone, not the merged
// Truth, so a sparse later call can move it back to general-business while
// Truth still carries the earlier industry. Readers that prefer the stored
// Type, such as website.Generator.Category, see the latest call's view.
func (r *Reconciler) Reconcile(ctx context.Context, userID uuid.UUID, in extractor.Insight, callStage int) (*Outcome, error) {
	source := extractor.Source(callStage)
	now := r.now().UTC()

	created, truth, err := r.store.ReconcileTruth(ctx, userID, func(existing *store.Truth) store.Truth {
		return Merge(existing, in, source, now)
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile truth: %w", err)
	}

	out := &Outcome{Created: created, Truth: truth, Classification: r.classifier.Classify(in)}
	r.writeType(ctx, userID, out)
	return out, nil
}

// ReconcileRecord applies a non-transcript record, such as a domain choice.
// The stored confidence never drops below the existing score and the Type row
// is derived from the merged Truth.
func (r *Reconciler) ReconcileRecord(ctx context.Context, rec Record) (*Outcome, error) {
	now := r.now().UTC()

	created, truth, err := r.store.ReconcileTruth(ctx, rec.UserID, func(existing *store.Truth) store.Truth {
		merged := Merge(existing, rec.Insight, rec.Source, now)
		if existing != nil && existing.ConfidenceScore > merged.ConfidenceScore {
			merged.ConfidenceScore = existing.ConfidenceScore
		}
		return merged
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile truth: %w", err)
	}

	out := &Outcome{Created: created, Truth: truth, Classification: r.classifier.Classify(TruthInsight(truth))}
	r.writeType(ctx, rec.UserID, out)
	return out, nil
}

func (r *Reconciler) writeType(ctx context.Context, userID uuid.UUID, out *Outcome) {
	if err := r.store.UpsertType(ctx, TypeRow(userID, out.Classification)); err != nil {
		r.logger.Warn("dream type upsert failed", "user_id", userID, "error", err)
		out.TypeError = err.Error()
	}
}

// TypeRow converts a classification into its dream_dna_type row.
func TypeRow(userID uuid.UUID, c classify.Classification) store.DreamType {
	return store.DreamType{
		UserID:            userID,
		BusinessArchetype: string(c.BusinessArchetype),
		IndustryVertical:  c.IndustryVertical,
		BusinessModelType: c.BusinessModelType,
		RiskTolerance:     string(c.RiskTolerance),
		InnovationLevel:   string(c.InnovationLevel),
		ScaleAmbition:     string(c.ScaleAmbition),
		TemplateCategory:  string(c.TemplateCategory),
	}
}
