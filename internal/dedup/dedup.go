// Package dedup hides near-duplicate call transcripts, such as a retried
// transcript-processor request stored twice.
package dedup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/dreamseed/internal/store"
)

const DefaultThreshold = 0.97

type Store interface {
	FindTranscriptDuplicates(ctx context.Context, threshold float64) ([]store.TranscriptPair, error)
	TranscriptRecords(ctx context.Context, ids []uuid.UUID) ([]store.TranscriptRecord, error)
	MarkTranscriptsDeduped(ctx context.Context, ids []uuid.UUID, survivor uuid.UUID) error
}

// Result summarises one deduplication pass.
type Result struct {
	Threshold  float64         `json:"threshold"`
	Execute    bool            `json:"execute"`
	Clusters   int             `json:"clusters"`
	TotalItems int             `json:"total_items"`
	Deduped    int             `json:"deduped"`
	Survivors  int             `json:"survivors"`
	Details    []ClusterDetail `json:"details,omitempty"`
}

type ClusterDetail struct {
	SurvivorID uuid.UUID   `json:"survivor_id"`
	DedupedIDs []uuid.UUID `json:"deduped_ids"`
	Size       int         `json:"size"`
}

type Deduplicator struct {
	store  Store
	logger *slog.Logger
}

func New(s Store, logger *slog.Logger) *Deduplicator {
	return &Deduplicator{store: s, logger: logger}
}

// Run clusters duplicate transcripts and, when execute is set, marks every
// non-survivor as deduped. A cluster that fails to rank or write is skipped.
func (d *Deduplicator) Run(ctx context.Context, threshold float64, execute bool) (*Result, error) {
	d.logger.Info("starting transcript deduplication", "threshold", threshold, "execute", execute)

	pairs, err := d.store.FindTranscriptDuplicates(ctx, threshold)
	if err != nil {
		return nil, fmt.Errorf("find duplicates: %w", err)
	}
	clusters := clusterPairs(pairs)
	d.logger.Info("clustered duplicates", "pairs", len(pairs), "clusters", len(clusters))

	result := &Result{Threshold: threshold, Execute: execute, Clusters: len(clusters)}
	for _, cluster := range clusters {
		result.TotalItems += len(cluster)

		survivor, err := d.rank(ctx, cluster)
		if err != nil {
			d.logger.Error("failed to rank cluster", "cluster", cluster, "error", err)
			continue
		}
		var deduped []uuid.UUID
		for _, id := range cluster {
			if id != survivor {
				deduped = append(deduped, id)
			}
		}

		if execute {
			if err := d.store.MarkTranscriptsDeduped(ctx, deduped, survivor); err != nil {
				d.logger.Error("failed to mark transcripts deduped", "survivor", survivor, "deduped", deduped, "error", err)
				continue
			}
		}

		result.Survivors++
		result.Deduped += len(deduped)
		result.Details = append(result.Details, ClusterDetail{SurvivorID: survivor, DedupedIDs: deduped, Size: len(cluster)})
	}

	d.logger.Info("deduplication completed", "survivors", result.Survivors, "deduped", result.Deduped)
	return result, nil
}

func (d *Deduplicator) rank(ctx context.Context, ids []uuid.UUID) (uuid.UUID, error) {
	records, err := d.store.TranscriptRecords(ctx, ids)
	if err != nil {
		return uuid.Nil, err
	}
	if len(records) == 0 {
		return uuid.Nil, fmt.Errorf("no transcripts found")
	}
	best := records[0]
	for _, r := range records[1:] {
		if isBetter(r, best) {
			best = r
		}
	}
	return best.ID, nil
}

// isBetter prefers a transcript tied to a call id, then the later call stage,
// then the one stored first.
func isBetter(a, b store.TranscriptRecord) bool {
	if (a.CallID != "") != (b.CallID != "") {
		return a.CallID != ""
	}
	if a.CallStage != b.CallStage {
		return a.CallStage > b.CallStage
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// clusterPairs groups duplicate pairs into connected components using union-find.
func clusterPairs(pairs []store.TranscriptPair) [][]uuid.UUID {
	if len(pairs) == 0 {
		return nil
	}

	parent := make(map[uuid.UUID]uuid.UUID)
	for _, p := range pairs {
		if _, ok := parent[p.ID1]; !ok {
			parent[p.ID1] = p.ID1
		}
		if _, ok := parent[p.ID2]; !ok {
			parent[p.ID2] = p.ID2
		}
	}

	var find func(uuid.UUID) uuid.UUID
	find = func(id uuid.UUID) uuid.UUID {
		if parent[id] != id {
			parent[id] = find(parent[id])
		}
		return parent[id]
	}
	for _, p := range pairs {
		if r1, r2 := find(p.ID1), find(p.ID2); r1 != r2 {
			parent[r2] = r1
		}
	}

	groups := make(map[uuid.UUID][]uuid.UUID)
	for id := range parent {
		root := find(id)
		groups[root] = append(groups[root], id)
	}
	var clusters [][]uuid.UUID
	for _, c := range groups {
		if len(c) > 1 {
			clusters = append(clusters, c)
		}
	}
	return clusters
}
