package dreamdna

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/extractor"
	"github.com/MikeSquared-Agency/dreamseed/internal/supabase"
)

// V2Tier writes through the reconciler into dream_dna_truth and dream_dna_type.
type V2Tier struct {
	Reconciler *Reconciler
}

func (V2Tier) Name() string { return "dream_dna_truth" }
func (V2Tier) Note() string { return "" }

func (t V2Tier) Write(ctx context.Context, rec Record) error {
	_, err := t.Reconciler.ReconcileRecord(ctx, rec)
	return err
}

type LegacyWriter interface {
	InsertLegacyDreamDNA(ctx context.Context, row supabase.LegacyDreamDNA) error
}

// LegacyTier writes a flat row to the v1 dream_dna table.
type LegacyTier struct {
	Writer LegacyWriter
}

func (LegacyTier) Name() string { return "dream_dna" }
func (LegacyTier) Note() string { return "Saved to legacy Dream DNA; full profile sync pending" }

func (t LegacyTier) Write(ctx context.Context, rec Record) error {
	if t.Writer == nil {
		return errors.New("legacy store not configured")
	}
	row := LegacyRow(rec)
	if row.IsEmpty() {
		return errors.New("nothing to write to legacy dream dna")
	}
	return t.Writer.InsertLegacyDreamDNA(ctx, row)
}

// LegacyRow maps a record onto the v1 columns. The v1 table has no business
// name column, so the name stands in for a missing primary service.
func LegacyRow(rec Record) supabase.LegacyDreamDNA {
	in := rec.Insight
	row := supabase.LegacyDreamDNA{
		WhatProblem:    extractor.Value(in.ProblemStatement),
		WhoServes:      extractor.Value(in.TargetMarket),
		HowDifferent:   extractor.Value(in.CompetitiveEdge),
		PrimaryService: extractor.Value(in.PrimaryService),
		PriceLevel:     rec.PriceLevel,
	}
	if row.PrimaryService == "" {
		row.PrimaryService = extractor.Value(in.BusinessName)
	}
	return row
}

type ProfileStore interface {
	UpdateBusinessName(ctx context.Context, userID uuid.UUID, name string) error
}

// ProfileTier only updates the denormalised business name on the user profile.
type ProfileTier struct {
	Profiles ProfileStore
}

func (ProfileTier) Name() string { return "users.business_name" }
func (ProfileTier) Note() string { return PendingNote + "; business name saved to profile" }

func (t ProfileTier) Write(ctx context.Context, rec Record) error {
	if !extractor.Present(rec.Insight.BusinessName) {
		return errors.New("no business name to save")
	}
	return t.Profiles.UpdateBusinessName(ctx, rec.UserID, extractor.Value(rec.Insight.BusinessName))
}
