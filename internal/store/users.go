package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResolveUserID maps a profile id or a Supabase auth user id to the profile id.
// userID wins when both are given.
func (s *Store) ResolveUserID(ctx context.Context, userID, authUserID string) (uuid.UUID, error) {
	column, raw := "id", strings.TrimSpace(userID)
	if raw == "" {
		column, raw = "auth_user_id", strings.TrimSpace(authUserID)
	}
	if raw == "" {
		return uuid.Nil, ErrNotFound
	}
	key, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse %s: %w", column, err)
	}

	var id uuid.UUID
	err = s.pool.QueryRow(ctx, `SELECT id FROM users WHERE `+column+` = $1`, key).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve user: %w", err)
	}
	return id, nil
}

// SaveDomainSelection records the user's chosen domain on their profile.
func (s *Store) SaveDomainSelection(ctx context.Context, userID uuid.UUID, domain string, price float64, currency string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET selected_domain = $2, domain_price = $3, domain_currency = $4, updated_at = now()
		WHERE id = $1`,
		userID, domain, price, currency,
	)
	if err != nil {
		return fmt.Errorf("save domain selection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateBusinessName sets the denormalised business name on the user profile.
func (s *Store) UpdateBusinessName(ctx context.Context, userID uuid.UUID, name string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET business_name = $2, updated_at = now() WHERE id = $1`,
		userID, name,
	)
	if err != nil {
		return fmt.Errorf("update business name: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
