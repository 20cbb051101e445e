package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type GeneratedWebsite struct {
	UserID           uuid.UUID
	TemplateCategory string
	BusinessName     string
	HTML             string
	StoragePath      string
	PublicURL        string
}

// InsertGeneratedWebsite records a rendered site.
func (s *Store) InsertGeneratedWebsite(ctx context.Context, w GeneratedWebsite) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO generated_websites (id, user_id, template_category, business_name, html, storage_path, public_url)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))`,
		id, w.UserID, w.TemplateCategory, w.BusinessName, w.HTML, w.StoragePath, w.PublicURL,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert generated website: %w", err)
	}
	return id, nil
}
