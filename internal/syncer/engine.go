// Package syncer merges ingested batches into the store idempotently.
package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
)

// Engine applies one source's batch to the store. Merging is insert-only:
// a paper whose identity key is already present is skipped, never updated,
// so replaying any batch is a no-op. Re-running after a partial failure is
// therefore always safe.
type Engine struct {
	store ingest.PaperStore
	log   *zap.Logger

	now func() time.Time
}

// NewEngine builds a merge Engine on top of the given store.
func NewEngine(store ingest.PaperStore, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log, now: time.Now}
}

// Merge inserts the batch's previously unseen papers and, on success,
// advances the source's sync state. Duplicates within the batch are
// collapsed first-wins before the store is consulted.
func (e *Engine) Merge(ctx context.Context, batch ingest.BatchResult) (ingest.MergeStats, error) {
	var stats ingest.MergeStats

	existing, err := e.store.ExistingKeys(ctx, batch.Source)
	if err != nil {
		return stats, fmt.Errorf("load existing keys for %s: %w", batch.Source, err)
	}

	seen := make(map[ingest.Key]struct{}, len(batch.Papers))
	fresh := make([]ingest.Paper, 0, len(batch.Papers))
	for _, paper := range batch.Papers {
		key := paper.IdentityKey()
		if _, ok := existing[key]; ok {
			stats.Skipped++
			continue
		}
		if _, ok := seen[key]; ok {
			stats.Skipped++
			continue
		}
		seen[key] = struct{}{}
		fresh = append(fresh, paper)
	}

	if len(fresh) > 0 {
		inserted, err := e.store.InsertPapers(ctx, fresh)
		if err != nil {
			return ingest.MergeStats{}, fmt.Errorf("insert papers for %s: %w", batch.Source, err)
		}
		stats.Inserted = inserted
		// A concurrent writer may have landed some keys first.
		stats.Skipped += len(fresh) - inserted
	}

	state := ingest.SyncState{
		Source:      batch.Source,
		LastRunAt:   e.now().UTC(),
		LastOrdinal: lastOrdinal(batch.Papers),
		LastMethod:  batch.Method,
	}
	if err := e.store.SaveSyncState(ctx, state); err != nil {
		return stats, fmt.Errorf("save sync state for %s: %w", batch.Source, err)
	}

	e.log.Info("batch merged",
		zap.String("source", batch.Source),
		zap.String("method", string(batch.Method)),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Skipped),
	)
	return stats, nil
}

// lastOrdinal is the highest ordinal in the batch, -1 for an empty run.
func lastOrdinal(papers []ingest.Paper) int {
	last := -1
	for _, p := range papers {
		if p.Ordinal > last {
			last = p.Ordinal
		}
	}
	return last
}
