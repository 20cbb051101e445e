package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const summaryRunes = 280

type Transcript struct {
	UserID    uuid.UUID
	CallID    string
	CallStage int
	Text      string
	Embedding []float32
}

// InsertTranscript stores a processed call transcript. The embedding column is
// left NULL when no embedding is available.
func (s *Store) InsertTranscript(ctx context.Context, t Transcript) (uuid.UUID, error) {
	id := uuid.New()
	var embedding *string
	if len(t.Embedding) > 0 {
		v := pgVector(t.Embedding)
		embedding = &v
	}
	var callID *string
	if t.CallID != "" {
		callID = &t.CallID
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO call_transcripts (id, user_id, call_id, call_stage, transcript_text, summary, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)`,
		id, t.UserID, callID, t.CallStage, t.Text, Summarize(t.Text), embedding,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert transcript: %w", err)
	}
	return id, nil
}

// RecentTranscriptSummaries returns up to limit summaries, newest first.
func (s *Store) RecentTranscriptSummaries(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT summary FROM call_transcripts
		WHERE user_id = $1 AND deduped_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcript summaries: %w", err)
	}
	summaries, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan transcript summaries: %w", err)
	}
	return summaries, nil
}

// TranscriptPair is two transcripts of one user whose embeddings are closer
// than a similarity threshold.
type TranscriptPair struct {
	ID1        uuid.UUID
	ID2        uuid.UUID
	Similarity float64
}

// TranscriptRecord is the subset of a transcript used to pick a dedup survivor.
type TranscriptRecord struct {
	ID        uuid.UUID
	CallID    string
	CallStage int
	CreatedAt time.Time
}

// FindTranscriptDuplicates returns pairs of live transcripts of the same user
// with cosine similarity above threshold.
func (s *Store) FindTranscriptDuplicates(ctx context.Context, threshold float64) ([]TranscriptPair, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, b.id, 1 - (a.embedding <=> b.embedding) AS similarity
		FROM call_transcripts a
		JOIN call_transcripts b ON a.user_id = b.user_id AND a.id < b.id
		WHERE a.embedding IS NOT NULL AND b.embedding IS NOT NULL
		  AND a.deduped_at IS NULL AND b.deduped_at IS NULL
		  AND 1 - (a.embedding <=> b.embedding) > $1
		ORDER BY similarity DESC`, threshold)
	if err != nil {
		return nil, fmt.Errorf("query transcript duplicates: %w", err)
	}
	pairs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TranscriptPair, error) {
		var p TranscriptPair
		err := row.Scan(&p.ID1, &p.ID2, &p.Similarity)
		return p, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transcript duplicates: %w", err)
	}
	return pairs, nil
}

// TranscriptRecords fetches ranking data for the given transcripts.
func (s *Store) TranscriptRecords(ctx context.Context, ids []uuid.UUID) ([]TranscriptRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, COALESCE(call_id, ''), call_stage, created_at
		FROM call_transcripts WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch transcripts: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TranscriptRecord, error) {
		var r TranscriptRecord
		err := row.Scan(&r.ID, &r.CallID, &r.CallStage, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan transcripts: %w", err)
	}
	return records, nil
}

// MarkTranscriptsDeduped hides duplicates behind their survivor.
func (s *Store) MarkTranscriptsDeduped(ctx context.Context, ids []uuid.UUID, survivor uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, `
		UPDATE call_transcripts
		SET deduped_at = now(), dedup_survivor_id = $1
		WHERE id = ANY($2)`, survivor, ids)
	if err != nil {
		return fmt.Errorf("mark transcripts deduped: %w", err)
	}
	return nil
}

// Summarize collapses whitespace and truncates to a short preview on a rune
// boundary.
func Summarize(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= summaryRunes {
		return flat
	}
	return strings.TrimSpace(string(runes[:summaryRunes])) + "..."
}
