// Package supabase wraps the Supabase SDK for the legacy v1 dream_dna table
// and the Storage bucket that hosts generated sites.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	postgrest "github.com/supabase-community/postgrest-go"
	storage_go "github.com/supabase-community/storage-go"
	supabase "github.com/supabase-community/supabase-go"
)

const legacyTable = "dream_dna"

// LegacyDreamDNA is a row of the v1 dream_dna table. The table has no user_id
// column; rows are associated with a user by convention only.
type LegacyDreamDNA struct {
	ID              string `json:"id,omitempty"`
	WhatProblem     string `json:"what_problem,omitempty"`
	WhoServes       string `json:"who_serves,omitempty"`
	HowDifferent    string `json:"how_different,omitempty"`
	PrimaryService  string `json:"primary_service,omitempty"`
	PriceLevel      string `json:"price_level,omitempty"`
	BrandVibe       string `json:"brand_vibe,omitempty"`
	ColorPreference string `json:"color_preference,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// IsEmpty reports whether no content field is set.
func (l LegacyDreamDNA) IsEmpty() bool {
	return l.WhatProblem == "" && l.WhoServes == "" && l.HowDifferent == "" &&
		l.PrimaryService == "" && l.PriceLevel == "" && l.BrandVibe == "" && l.ColorPreference == ""
}

// Client wraps the Supabase SDK.
type Client struct {
	client *supabase.Client
	bucket string
}

func NewClient(url, serviceRoleKey, bucket string) (*Client, error) {
	if url == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("supabase credentials missing: SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY not set")
	}
	client, err := supabase.NewClient(strings.TrimRight(url, "/"), serviceRoleKey, nil)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Client{client: client, bucket: bucket}, nil
}

// The supabase SDK calls take no context; ctx is checked before each request
// is sent, so a cancelled caller never reaches PostgREST or Storage.

// InsertLegacyDreamDNA writes one v1 row.
func (c *Client) InsertLegacyDreamDNA(ctx context.Context, row LegacyDreamDNA) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("insert legacy dream dna: %w", err)
	}
	row.ID, row.CreatedAt = "", ""
	var result []LegacyDreamDNA
	_, err := c.client.From(legacyTable).Insert(row, false, "", "representation", "").ExecuteTo(&result)
	if err != nil {
		return fmt.Errorf("insert legacy dream dna: %w", err)
	}
	return nil
}

// ErrNoLegacyRow is returned when the v1 table is empty.
var ErrNoLegacyRow = errors.New("no legacy dream dna row")

// LatestLegacyDreamDNA returns the newest v1 row.
func (c *Client) LatestLegacyDreamDNA(ctx context.Context) (*LegacyDreamDNA, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("select legacy dream dna: %w", err)
	}
	var result []LegacyDreamDNA
	_, err := c.client.From(legacyTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		ExecuteTo(&result)
	if err != nil {
		return nil, fmt.Errorf("select legacy dream dna: %w", err)
	}
	if len(result) == 0 {
		return nil, ErrNoLegacyRow
	}
	return &result[0], nil
}

// UploadSite stores a rendered page in the sites bucket, replacing any object
// at path, and returns its public URL. The content type is sniffed from the body.
func (c *Client) UploadSite(ctx context.Context, path, html string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("upload site: %w", err)
	}
	contentType := ContentType([]byte(html))
	upsert := true
	_, err := c.client.Storage.UploadFile(c.bucket, path, strings.NewReader(html), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload site: %w", err)
	}
	return c.client.Storage.GetPublicUrl(c.bucket, path).SignedURL, nil
}

// ContentType sniffs a stored object's MIME type.
func ContentType(body []byte) string {
	return mimetype.Detect(body).String()
}
