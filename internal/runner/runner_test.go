package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/publisher/memory"
	storememory "github.com/statstream/papercrawler/internal/store/memory"
	"github.com/statstream/papercrawler/internal/syncer"
)

type fakeIngester struct {
	mu      sync.Mutex
	batches map[string]ingest.BatchResult
	errs    map[string]error
	runIDs  []string
}

func (f *fakeIngester) Ingest(_ context.Context, desc ingest.SourceDescriptor, runID string) (ingest.BatchResult, error) {
	f.mu.Lock()
	f.runIDs = append(f.runIDs, runID)
	f.mu.Unlock()
	if err, ok := f.errs[desc.Name]; ok {
		return ingest.BatchResult{Source: desc.Name}, err
	}
	return f.batches[desc.Name], nil
}

func descs(names ...string) []ingest.SourceDescriptor {
	out := make([]ingest.SourceDescriptor, 0, len(names))
	for _, name := range names {
		out = append(out, ingest.SourceDescriptor{Name: name, Journal: name})
	}
	return out
}

func batchFor(source string, titles ...string) ingest.BatchResult {
	papers := make([]ingest.Paper, 0, len(titles))
	for i, title := range titles {
		papers = append(papers, ingest.Paper{Source: source, Title: title, Ordinal: i})
	}
	return ingest.BatchResult{Source: source, Method: ingest.MethodPrimary, Papers: papers, Pages: 1}
}

func TestRun_AllSourcesSucceed(t *testing.T) {
	t.Parallel()

	store := storememory.NewPaperStore()
	ingester := &fakeIngester{batches: map[string]ingest.BatchResult{
		"aos":  batchFor("aos", "A1", "A2"),
		"jmlr": batchFor("jmlr", "J1"),
	}}
	r := New(ingester, syncer.NewEngine(store, zap.NewNop()), nil, Config{Concurrency: 2}, zap.NewNop())

	summary := r.Run(context.Background(), descs("aos", "jmlr"))
	require.Equal(t, OutcomeFull, summary.Outcome)
	require.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Reports, 2)
	require.Equal(t, "aos", summary.Reports[0].Source, "report order follows source order")
	require.Equal(t, 2, summary.Reports[0].Inserted)
	require.Equal(t, 1, summary.Reports[1].Inserted)

	counts, err := store.SourceCounts(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[string]int{"aos": 2, "jmlr": 1}, counts)
}

func TestRun_FailedSourceIsIsolated(t *testing.T) {
	t.Parallel()

	store := storememory.NewPaperStore()
	ingester := &fakeIngester{
		batches: map[string]ingest.BatchResult{
			"aos":  batchFor("aos", "A1"),
			"jasa": batchFor("jasa", "S1"),
		},
		errs: map[string]error{
			"jrssb": &ingest.SourceIngestFailure{Source: "jrssb", Primary: errors.New("blocked")},
		},
	}
	r := New(ingester, syncer.NewEngine(store, zap.NewNop()), nil, Config{Concurrency: 3}, zap.NewNop())

	summary := r.Run(context.Background(), descs("aos", "jrssb", "jasa"))
	require.Equal(t, OutcomePartial, summary.Outcome)
	require.False(t, summary.Reports[0].Failed())
	require.True(t, summary.Reports[1].Failed())
	require.False(t, summary.Reports[2].Failed())

	state, err := store.SyncState(context.Background(), "jrssb")
	require.NoError(t, err)
	require.Zero(t, state, "failed source must not advance sync state")

	state, err = store.SyncState(context.Background(), "aos")
	require.NoError(t, err)
	require.False(t, state.LastRunAt.IsZero())
}

func TestRun_AllSourcesFail(t *testing.T) {
	t.Parallel()

	ingester := &fakeIngester{errs: map[string]error{
		"aos":  errors.New("down"),
		"jasa": errors.New("down"),
	}}
	r := New(ingester, syncer.NewEngine(storememory.NewPaperStore(), zap.NewNop()), nil, Config{}, zap.NewNop())

	summary := r.Run(context.Background(), descs("aos", "jasa"))
	require.Equal(t, OutcomeFailed, summary.Outcome)
}

func TestRun_SharedRunID(t *testing.T) {
	t.Parallel()

	ingester := &fakeIngester{batches: map[string]ingest.BatchResult{
		"aos":  batchFor("aos"),
		"jmlr": batchFor("jmlr"),
		"jasa": batchFor("jasa"),
	}}
	r := New(ingester, syncer.NewEngine(storememory.NewPaperStore(), zap.NewNop()), nil, Config{Concurrency: 1}, zap.NewNop())

	summary := r.Run(context.Background(), descs("aos", "jmlr", "jasa"))
	require.Len(t, ingester.runIDs, 3)
	for _, id := range ingester.runIDs {
		require.Equal(t, summary.RunID, id)
	}
}

func TestRun_PublishesSummary(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	ingester := &fakeIngester{batches: map[string]ingest.BatchResult{"aos": batchFor("aos", "A1")}}
	r := New(ingester, syncer.NewEngine(storememory.NewPaperStore(), zap.NewNop()), pub,
		Config{SummaryTopic: "paper-runs"}, zap.NewNop())

	summary := r.Run(context.Background(), descs("aos"))

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "paper-runs", msgs[0].Topic)
	published, ok := msgs[0].Payload.(Summary)
	require.True(t, ok)
	require.Equal(t, summary.RunID, published.RunID)
}

func TestRun_SourceTimeoutApplies(t *testing.T) {
	t.Parallel()

	slow := ingesterFunc(func(ctx context.Context, desc ingest.SourceDescriptor, _ string) (ingest.BatchResult, error) {
		select {
		case <-ctx.Done():
			return ingest.BatchResult{Source: desc.Name}, ctx.Err()
		case <-time.After(5 * time.Second):
			return batchFor(desc.Name, "late"), nil
		}
	})
	r := New(slow, syncer.NewEngine(storememory.NewPaperStore(), zap.NewNop()), nil,
		Config{SourceTimeout: 20 * time.Millisecond}, zap.NewNop())

	summary := r.Run(context.Background(), descs("aos"))
	require.Equal(t, OutcomeFailed, summary.Outcome)
	require.True(t, summary.Reports[0].Failed())
}

type ingesterFunc func(ctx context.Context, desc ingest.SourceDescriptor, runID string) (ingest.BatchResult, error)

func (f ingesterFunc) Ingest(ctx context.Context, desc ingest.SourceDescriptor, runID string) (ingest.BatchResult, error) {
	return f(ctx, desc, runID)
}
