package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DreamType is the classification row in dream_dna_type.
type DreamType struct {
	UserID            uuid.UUID `json:"user_id"`
	BusinessArchetype string    `json:"business_archetype"`
	IndustryVertical  string    `json:"industry_vertical"`
	BusinessModelType string    `json:"business_model_type"`
	RiskTolerance     string    `json:"risk_tolerance"`
	InnovationLevel   string    `json:"innovation_level"`
	ScaleAmbition     string    `json:"scale_ambition"`
	TemplateCategory  string    `json:"template_category"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// UpsertType replaces the user's classification row.
func (s *Store) UpsertType(ctx context.Context, t DreamType) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO dream_dna_type (id, user_id, business_archetype, industry_vertical, business_model_type,
			risk_tolerance, innovation_level, scale_ambition, template_category, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			business_archetype = $3,
			industry_vertical = $4,
			business_model_type = $5,
			risk_tolerance = $6,
			innovation_level = $7,
			scale_ambition = $8,
			template_category = $9,
			updated_at = now()`,
		uuid.New(), t.UserID, t.BusinessArchetype, t.IndustryVertical, t.BusinessModelType,
		t.RiskTolerance, t.InnovationLevel, t.ScaleAmbition, t.TemplateCategory,
	)
	if err != nil {
		return fmt.Errorf("upsert dream type: %w", err)
	}
	return nil
}

// GetType fetches the user's classification row.
func (s *Store) GetType(ctx context.Context, userID uuid.UUID) (*DreamType, error) {
	var t DreamType
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, business_archetype, industry_vertical, business_model_type,
			risk_tolerance, innovation_level, scale_ambition, template_category, updated_at
		FROM dream_dna_type WHERE user_id = $1`, userID,
	).Scan(&t.UserID, &t.BusinessArchetype, &t.IndustryVertical, &t.BusinessModelType,
		&t.RiskTolerance, &t.InnovationLevel, &t.ScaleAmbition, &t.TemplateCategory, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dream type: %w", err)
	}
	return &t, nil
}
