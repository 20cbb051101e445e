package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// UpsertProbability overwrites the user's probability row wholesale. The three
// payloads are stored as jsonb.
func (s *Store) UpsertProbability(ctx context.Context, userID uuid.UUID, primary, alternatives, confidences any) error {
	p, err := json.Marshal(primary)
	if err != nil {
		return fmt.Errorf("marshal primary: %w", err)
	}
	a, err := json.Marshal(alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}
	c, err := json.Marshal(confidences)
	if err != nil {
		return fmt.Errorf("marshal confidences: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO dream_dna_probability (id, user_id, primary_interpretation, alternatives, confidence_scores, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (user_id)
		DO UPDATE SET
			primary_interpretation = $3,
			alternatives = $4,
			confidence_scores = $5,
			updated_at = now()`,
		uuid.New(), userID, p, a, c,
	)
	if err != nil {
		return fmt.Errorf("upsert probability: %w", err)
	}
	return nil
}
