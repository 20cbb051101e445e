// Package backfill re-derives stored Dream DNA classifications from Truth rows.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/dreamseed/internal/classify"
	"github.com/MikeSquared-Agency/dreamseed/internal/dreamdna"
	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

const DefaultConcurrency = 4

type Store interface {
	ListTruthUserIDs(ctx context.Context) ([]uuid.UUID, error)
	GetTruth(ctx context.Context, userID uuid.UUID) (*store.Truth, error)
	GetType(ctx context.Context, userID uuid.UUID) (*store.DreamType, error)
	UpsertType(ctx context.Context, t store.DreamType) error
}

// Config holds the reclassify command configuration.
type Config struct {
	DryRun      bool
	Concurrency int
}

// Stats summarises one run.
type Stats struct {
	Total     int64 `json:"total"`
	Updated   int64 `json:"updated"`
	Unchanged int64 `json:"unchanged"`
	Failed    int64 `json:"failed"`
}

type Reclassifier struct {
	cfg        Config
	store      Store
	classifier classify.Classifier
	logger     *slog.Logger
}

func NewReclassifier(cfg Config, s Store, classifier classify.Classifier, logger *slog.Logger) *Reclassifier {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if classifier == nil {
		classifier = classify.WholeRecord{}
	}
	return &Reclassifier{cfg: cfg, store: s, classifier: classifier, logger: logger}
}

// Run reclassifies every user with a Truth row. Per-user failures are counted
// and logged; only listing failures and cancellation abort the run.
func (r *Reclassifier) Run(ctx context.Context) (Stats, error) {
	ids, err := r.store.ListTruthUserIDs(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("reclassify: %w", err)
	}

	var total, updated, unchanged, failed atomic.Int64
	total.Store(int64(len(ids)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, id := range ids {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			changed, err := r.one(gctx, id)
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				return err
			case err != nil:
				failed.Add(1)
				r.logger.Warn("reclassify user failed", "user_id", id, "error", err)
			case changed:
				updated.Add(1)
			default:
				unchanged.Add(1)
			}
			return nil
		})
	}
	err = g.Wait()

	stats := Stats{Total: total.Load(), Updated: updated.Load(), Unchanged: unchanged.Load(), Failed: failed.Load()}
	r.logger.Info("reclassify finished",
		"total", stats.Total,
		"updated", stats.Updated,
		"unchanged", stats.Unchanged,
		"failed", stats.Failed,
		"dry_run", r.cfg.DryRun,
	)
	if err == nil {
		err = ctx.Err()
	}
	return stats, err
}

// one reports whether the user's stored classification differs from a fresh one.
func (r *Reclassifier) one(ctx context.Context, userID uuid.UUID) (bool, error) {
	truth, err := r.store.GetTruth(ctx, userID)
	if err != nil {
		return false, err
	}
	want := dreamdna.TypeRow(userID, r.classifier.Classify(dreamdna.TruthInsight(*truth)))

	current, err := r.store.GetType(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}
	if current != nil && sameLabels(*current, want) {
		return false, nil
	}

	if r.cfg.DryRun {
		r.logger.Info("would reclassify", "user_id", userID,
			"archetype", want.BusinessArchetype, "template", want.TemplateCategory)
		return true, nil
	}
	if err := r.store.UpsertType(ctx, want); err != nil {
		return false, err
	}
	return true, nil
}

func sameLabels(a, b store.DreamType) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
