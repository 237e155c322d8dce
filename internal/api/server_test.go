package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/runner"
)

type fakeTrigger struct {
	summary runner.Summary
	block   chan struct{}
	mu      sync.Mutex
	calls   int
}

func (f *fakeTrigger) Run(_ context.Context, _ []ingest.SourceDescriptor) runner.Summary {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.summary
}

type fakeStats struct {
	counts map[string]int
	states map[string]ingest.SyncState
	err    error
}

func (f *fakeStats) SourceCounts(_ context.Context) (map[string]int, error) {
	return f.counts, f.err
}

func (f *fakeStats) SyncState(_ context.Context, source string) (ingest.SyncState, error) {
	return f.states[source], nil
}

func newTestServer(trigger *fakeTrigger, stats *fakeStats) *Server {
	return NewServer(trigger, stats, nil, zap.NewNop())
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeTrigger{}, &fakeStats{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReflectsStore(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeTrigger{}, &fakeStats{err: errors.New("down")})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	srv = newTestServer(&fakeTrigger{}, &fakeStats{counts: map[string]int{}})
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestTriggerIngestReturnsSummary(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{summary: runner.Summary{
		RunID:   "run-123",
		Outcome: runner.OutcomeFull,
		Reports: []runner.SourceReport{{Source: "aos", Inserted: 2}},
	}}
	srv := newTestServer(trigger, &fakeStats{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ingest", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got runner.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "run-123", got.RunID)
	require.Equal(t, runner.OutcomeFull, got.Outcome)
	require.Equal(t, 1, trigger.calls)
}

func TestTriggerIngestFailedRunIs502(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{summary: runner.Summary{Outcome: runner.OutcomeFailed}}
	srv := newTestServer(trigger, &fakeStats{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ingest", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestTriggerIngestConflictsWhileRunning(t *testing.T) {
	t.Parallel()

	trigger := &fakeTrigger{block: make(chan struct{})}
	srv := newTestServer(trigger, &fakeStats{})

	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ingest", nil))
	}()

	// Wait for the first run to be holding the lock.
	require.Eventually(t, func() bool {
		trigger.mu.Lock()
		defer trigger.mu.Unlock()
		return trigger.calls == 1
	}, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/ingest", nil))
	require.Equal(t, http.StatusConflict, rec.Code)

	close(trigger.block)
	<-firstDone
}

func TestGetStats(t *testing.T) {
	t.Parallel()

	lastRun := time.Date(2026, 8, 20, 6, 30, 0, 0, time.UTC)
	stats := &fakeStats{
		counts: map[string]int{"aos": 3, "jmlr": 5},
		states: map[string]ingest.SyncState{
			"aos": {Source: "aos", LastRunAt: lastRun, LastOrdinal: 2, LastMethod: ingest.MethodPrimary},
		},
	}
	srv := newTestServer(&fakeTrigger{}, stats)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Total   int                    `json:"total"`
		Sources map[string]sourceStats `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, 8, got.Total)
	require.Len(t, got.Sources, 2)

	aos := got.Sources["aos"]
	require.Equal(t, 3, aos.Papers)
	require.Equal(t, "2026-08-20T06:30:00Z", aos.LastRunAt)
	require.Equal(t, "primary", aos.LastMethod)
	require.NotNil(t, aos.LastOrdinal)
	require.Equal(t, 2, *aos.LastOrdinal)

	// A source that has never completed a run reports its count only.
	jmlr := got.Sources["jmlr"]
	require.Equal(t, 5, jmlr.Papers)
	require.Empty(t, jmlr.LastRunAt)
	require.Nil(t, jmlr.LastOrdinal)
}

func TestGetStatsIncludesConfiguredSourcesWithoutPapers(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeTrigger{}, &fakeStats{counts: map[string]int{}},
		[]ingest.SourceDescriptor{{Name: "biometrika"}}, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Total   int                    `json:"total"`
		Sources map[string]sourceStats `json:"sources"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Zero(t, got.Total)
	require.Contains(t, got.Sources, "biometrika")
}
