// Package dreamdna reconciles extracted insights into the persisted Dream DNA
// record and carries the v2 -> v1 -> profile fallback used by best-effort
// writers and readers.
package dreamdna

import (
	"time"

	"github.com/MikeSquared-Agency/dreamseed/internal/confidence"
	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

// Merge builds the next Truth row from the existing one (nil for a new user)
// and a fresh insight. Each field is insight ?? existing ?? nil, so a known
// fact never regresses to empty. The result is never user-validated.
func Merge(existing *store.Truth, in extractor.Insight, source string, now time.Time) store.Truth {
	var out store.Truth
	if existing != nil {
		out = *existing
	}

	out.BusinessName = pick(in.BusinessName, out.BusinessName)
	out.WhatProblem = pick(in.ProblemStatement, out.WhatProblem)
	out.WhoServes = pick(in.TargetMarket, out.WhoServes)
	out.HowDifferent = pick(in.CompetitiveEdge, out.HowDifferent)
	out.PrimaryService = pick(in.PrimaryService, out.PrimaryService)
	out.TargetRevenue = pick(in.RevenueModel, out.TargetRevenue)
	out.BusinessModel = pick(in.BusinessModel, out.BusinessModel)
	out.BusinessStage = pick(in.BusinessStage, out.BusinessStage)
	out.IndustryCategory = pick(in.Industry, out.IndustryCategory)

	out.ConfidenceScore = confidence.Score(in)
	out.ExtractionSource = source
	out.ValidatedByUser = false
	out.UpdatedAt = now
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	return out
}

func pick(fresh, existing *string) *string {
	if extractor.Present(fresh) {
		return fresh
	}
	if extractor.Present(existing) {
		return existing
	}
	return nil
}

// TruthInsight projects a Truth row back onto the insight shape.
func TruthInsight(t store.Truth) extractor.Insight {
	return extractor.Insight{
		BusinessName:     t.BusinessName,
		ProblemStatement: t.WhatProblem,
		TargetMarket:     t.WhoServes,
		CompetitiveEdge:  t.HowDifferent,
		PrimaryService:   t.PrimaryService,
		RevenueModel:     t.TargetRevenue,
		BusinessModel:    t.BusinessModel,
		BusinessStage:    t.BusinessStage,
		Industry:         t.IndustryCategory,
	}
}
