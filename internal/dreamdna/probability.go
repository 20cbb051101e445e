package dreamdna

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
)

// AlternativeBusinessModels are the business_model overrides used for the
// three alternative interpretations, in order.
var AlternativeBusinessModels = [3]string{"subscription", "marketplace", "consulting"}

// ConfidenceVector holds the static weights stored with every probability row.
type ConfidenceVector struct {
	Primary float64 `json:"primary"`
	Alt1    float64 `json:"alt1"`
	Alt2    float64 `json:"alt2"`
	Alt3    float64 `json:"alt3"`
}

// FixedConfidence is independent of the insight and of the confidence scorer.
var FixedConfidence = ConfidenceVector{Primary: 0.85, Alt1: 0.75, Alt2: 0.65, Alt3: 0.55}

type Alternative struct {
	Label   string            `json:"label"`
	Insight extractor.Insight `json:"insight"`
}

type ProbabilityAnalysis struct {
	Primary      extractor.Insight `json:"primary"`
	Alternatives []Alternative     `json:"alternatives"`
	Confidence   ConfidenceVector  `json:"confidence"`
	Stored       bool              `json:"stored"`
	Error        string            `json:"error,omitempty"`
}

type ProbabilityStore interface {
	UpsertProbability(ctx context.Context, userID uuid.UUID, primary, alternatives, confidences any) error
}

// Alternatives clones the insight three times, overriding only business_model.
func Alternatives(in extractor.Insight) []Alternative {
	alts := make([]Alternative, len(AlternativeBusinessModels))
	for i, model := range AlternativeBusinessModels {
		clone := in
		m := model
		clone.BusinessModel = &m
		alts[i] = Alternative{Label: altLabel(i), Insight: clone}
	}
	return alts
}

func altLabel(i int) string {
	return [...]string{"alt1", "alt2", "alt3"}[i]
}

type ProbabilityRecorder struct {
	store  ProbabilityStore
	logger *slog.Logger
}

func NewProbabilityRecorder(s ProbabilityStore, logger *slog.Logger) *ProbabilityRecorder {
	return &ProbabilityRecorder{store: s, logger: logger}
}

// Record overwrites the user's probability row. It never fails; a write error
// is reported in the returned analysis.
func (r *ProbabilityRecorder) Record(ctx context.Context, userID uuid.UUID, in extractor.Insight) ProbabilityAnalysis {
	pa := ProbabilityAnalysis{
		Primary:      in,
		Alternatives: Alternatives(in),
		Confidence:   FixedConfidence,
	}
	if err := r.store.UpsertProbability(ctx, userID, pa.Primary, pa.Alternatives, pa.Confidence); err != nil {
		r.logger.Warn("probability upsert failed", "user_id", userID, "error", err)
		pa.Error = err.Error()
		return pa
	}
	pa.Stored = true
	return pa
}
