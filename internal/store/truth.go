package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Truth is the reconciled Dream DNA record, one row per user in dream_dna_truth.
type Truth struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	BusinessName     *string   `json:"business_name"`
	WhatProblem      *string   `json:"what_problem"`
	WhoServes        *string   `json:"who_serves"`
	HowDifferent     *string   `json:"how_different"`
	PrimaryService   *string   `json:"primary_service"`
	TargetRevenue    *string   `json:"target_revenue"`
	BusinessModel    *string   `json:"business_model"`
	BusinessStage    *string   `json:"business_stage"`
	IndustryCategory *string   `json:"industry_category"`
	ConfidenceScore  float64   `json:"confidence_score"`
	ExtractionSource string    `json:"extraction_source"`
	ValidatedByUser  bool      `json:"validated_by_user"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

const truthColumns = `id, user_id, business_name, what_problem, who_serves, how_different,
	primary_service, target_revenue, business_model, business_stage, industry_category,
	confidence_score, extraction_source, validated_by_user, created_at, updated_at`

func scanTruth(row pgx.Row) (*Truth, error) {
	var t Truth
	err := row.Scan(&t.ID, &t.UserID, &t.BusinessName, &t.WhatProblem, &t.WhoServes, &t.HowDifferent,
		&t.PrimaryService, &t.TargetRevenue, &t.BusinessModel, &t.BusinessStage, &t.IndustryCategory,
		&t.ConfidenceScore, &t.ExtractionSource, &t.ValidatedByUser, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTruth fetches the Truth row for a user.
func (s *Store) GetTruth(ctx context.Context, userID uuid.UUID) (*Truth, error) {
	t, err := scanTruth(s.pool.QueryRow(ctx,
		`SELECT `+truthColumns+` FROM dream_dna_truth WHERE user_id = $1`, userID))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("get truth: %w", err)
	}
	return t, err
}

// ReconcileTruth reads the user's Truth row under a row lock, passes it (nil
// when absent) to merge and writes the result back in the same transaction.
// Concurrent reconciles for one user are serialised by the lock; a concurrent
// first insert is detected through the unique user_id and merged on retry.
func (s *Store) ReconcileTruth(ctx context.Context, userID uuid.UUID, merge func(existing *Truth) Truth) (bool, Truth, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, Truth{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := lockTruth(ctx, tx, userID)
	if err != nil {
		return false, Truth{}, err
	}

	created := existing == nil
	merged := merge(existing)
	merged.UserID = userID

	if created {
		merged.ID = uuid.New()
		inserted, err := insertTruth(ctx, tx, merged)
		if err != nil {
			return false, Truth{}, err
		}
		if !inserted {
			// Another request inserted first; merge on top of its row.
			existing, err = lockTruth(ctx, tx, userID)
			if err != nil {
				return false, Truth{}, err
			}
			if existing == nil {
				return false, Truth{}, fmt.Errorf("reconcile truth: row vanished after conflict")
			}
			created = false
			merged = merge(existing)
			merged.UserID = userID
		}
	}

	if !created {
		merged.ID = existing.ID
		merged.CreatedAt = existing.CreatedAt
		if err := updateTruth(ctx, tx, merged); err != nil {
			return false, Truth{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, Truth{}, fmt.Errorf("commit: %w", err)
	}
	return created, merged, nil
}

func lockTruth(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (*Truth, error) {
	t, err := scanTruth(tx.QueryRow(ctx,
		`SELECT `+truthColumns+` FROM dream_dna_truth WHERE user_id = $1 FOR UPDATE`, userID))
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lock truth: %w", err)
	}
	return t, nil
}

func insertTruth(ctx context.Context, tx pgx.Tx, t Truth) (bool, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = t.UpdatedAt
	}
	tag, err := tx.Exec(ctx, `
		INSERT INTO dream_dna_truth (`+truthColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id) DO NOTHING`,
		t.ID, t.UserID, t.BusinessName, t.WhatProblem, t.WhoServes, t.HowDifferent,
		t.PrimaryService, t.TargetRevenue, t.BusinessModel, t.BusinessStage, t.IndustryCategory,
		t.ConfidenceScore, t.ExtractionSource, t.ValidatedByUser, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert truth: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func updateTruth(ctx context.Context, tx pgx.Tx, t Truth) error {
	_, err := tx.Exec(ctx, `
		UPDATE dream_dna_truth SET
			business_name = $2, what_problem = $3, who_serves = $4, how_different = $5,
			primary_service = $6, target_revenue = $7, business_model = $8, business_stage = $9,
			industry_category = $10, confidence_score = $11, extraction_source = $12,
			validated_by_user = $13, updated_at = $14
		WHERE id = $1`,
		t.ID, t.BusinessName, t.WhatProblem, t.WhoServes, t.HowDifferent,
		t.PrimaryService, t.TargetRevenue, t.BusinessModel, t.BusinessStage,
		t.IndustryCategory, t.ConfidenceScore, t.ExtractionSource,
		t.ValidatedByUser, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update truth: %w", err)
	}
	return nil
}

// ListTruthUserIDs returns every user with a Truth row, oldest first.
func (s *Store) ListTruthUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id FROM dream_dna_truth ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list truth users: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("scan truth users: %w", err)
	}
	return ids, nil
}
