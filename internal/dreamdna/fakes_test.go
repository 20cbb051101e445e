package dreamdna

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/store"
	"github.com/MikeSquared-Agency/dreamseed/internal/supabase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func s(v string) *string { return &v }

// memStore is an in-memory stand-in for the Postgres store.
type memStore struct {
	mu          sync.Mutex
	truths      map[uuid.UUID]store.Truth
	types       map[uuid.UUID]store.DreamType
	names       map[uuid.UUID]string
	probs       map[uuid.UUID][3]any
	truthErr    error
	typeErr     error
	probErr     error
	profileErr  error
	getTruthErr error
}

func newMemStore() *memStore {
	return &memStore{
		truths: map[uuid.UUID]store.Truth{},
		types:  map[uuid.UUID]store.DreamType{},
		names:  map[uuid.UUID]string{},
		probs:  map[uuid.UUID][3]any{},
	}
}

func (m *memStore) ReconcileTruth(_ context.Context, userID uuid.UUID, merge func(*store.Truth) store.Truth) (bool, store.Truth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.truthErr != nil {
		return false, store.Truth{}, m.truthErr
	}
	var existing *store.Truth
	if t, ok := m.truths[userID]; ok {
		existing = &t
	}
	merged := merge(existing)
	merged.UserID = userID
	if existing == nil {
		merged.ID = uuid.New()
	} else {
		merged.ID = existing.ID
	}
	m.truths[userID] = merged
	return existing == nil, merged, nil
}

func (m *memStore) UpsertType(_ context.Context, t store.DreamType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.typeErr != nil {
		return m.typeErr
	}
	m.types[t.UserID] = t
	return nil
}

func (m *memStore) UpsertProbability(_ context.Context, userID uuid.UUID, primary, alternatives, confidences any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.probErr != nil {
		return m.probErr
	}
	m.probs[userID] = [3]any{primary, alternatives, confidences}
	return nil
}

func (m *memStore) UpdateBusinessName(_ context.Context, userID uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profileErr != nil {
		return m.profileErr
	}
	m.names[userID] = name
	return nil
}

func (m *memStore) GetTruth(_ context.Context, userID uuid.UUID) (*store.Truth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getTruthErr != nil {
		return nil, m.getTruthErr
	}
	t, ok := m.truths[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (m *memStore) GetType(_ context.Context, userID uuid.UUID) (*store.DreamType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.types[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

type fakeLegacy struct {
	rows      []supabase.LegacyDreamDNA
	insertErr error
	readErr   error
}

func (f *fakeLegacy) InsertLegacyDreamDNA(_ context.Context, row supabase.LegacyDreamDNA) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeLegacy) LatestLegacyDreamDNA(_ context.Context) (*supabase.LegacyDreamDNA, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	if len(f.rows) == 0 {
		return nil, supabase.ErrNoLegacyRow
	}
	row := f.rows[len(f.rows)-1]
	return &row, nil
}

var errDown = errors.New("relation does not exist")
