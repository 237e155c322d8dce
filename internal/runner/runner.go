// Package runner coordinates one ingestion run across all sources.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/metrics"
)

// Outcome classifies a whole run.
type Outcome string

// Run outcomes.
const (
	OutcomeFull    Outcome = "full"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// SourceIngester produces one source's batch.
type SourceIngester interface {
	Ingest(ctx context.Context, desc ingest.SourceDescriptor, runID string) (ingest.BatchResult, error)
}

// Merger applies a batch to the store.
type Merger interface {
	Merge(ctx context.Context, batch ingest.BatchResult) (ingest.MergeStats, error)
}

// Config controls run-level behavior.
type Config struct {
	// Concurrency bounds how many sources are ingested in parallel.
	Concurrency int
	// SourceTimeout caps one source's ingest+merge; zero means no cap.
	SourceTimeout time.Duration
	// SummaryTopic, when set together with a publisher, receives the run
	// summary after every run.
	SummaryTopic string
}

// SourceReport is the per-source outcome within a run.
type SourceReport struct {
	Source   string        `json:"source"`
	Method   ingest.Method `json:"method,omitempty"`
	Pages    int           `json:"pages"`
	Papers   int           `json:"papers"`
	Inserted int           `json:"inserted"`
	Skipped  int           `json:"skipped"`
	Warnings []string      `json:"warnings,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Failed reports whether this source's run failed.
func (r SourceReport) Failed() bool { return r.Error != "" }

// Summary is the result of one whole run.
type Summary struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Outcome    Outcome        `json:"outcome"`
	Reports    []SourceReport `json:"reports"`
}

// Runner fans a bounded worker pool out over the configured sources. Each
// source runs in isolation: one source exhausting all its access methods
// never disturbs the others, and its sync state is left untouched.
type Runner struct {
	ingester  SourceIngester
	merger    Merger
	publisher ingest.Publisher
	cfg       Config
	log       *zap.Logger
}

// New creates a Runner. publisher may be nil.
func New(ingester SourceIngester, merger Merger, publisher ingest.Publisher, cfg Config, log *zap.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	metrics.Init()
	return &Runner{ingester: ingester, merger: merger, publisher: publisher, cfg: cfg, log: log}
}

// Run ingests every source and returns the run summary. Reports preserve
// the order of the sources slice regardless of completion order.
func (r *Runner) Run(ctx context.Context, sources []ingest.SourceDescriptor) Summary {
	runID := uuid.NewString()
	summary := Summary{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Reports:   make([]SourceReport, len(sources)),
	}
	r.log.Info("ingestion run starting",
		zap.String("run_id", runID),
		zap.Int("sources", len(sources)),
		zap.Int("concurrency", r.cfg.Concurrency),
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				summary.Reports[idx] = r.runSource(ctx, sources[idx], runID)
			}
		}()
	}
	for idx := range sources {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	summary.FinishedAt = time.Now().UTC()
	summary.Outcome = outcome(summary.Reports)
	r.log.Info("ingestion run finished",
		zap.String("run_id", runID),
		zap.String("outcome", string(summary.Outcome)),
		zap.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
	)

	r.publishSummary(ctx, summary)
	return summary
}

func (r *Runner) runSource(ctx context.Context, desc ingest.SourceDescriptor, runID string) SourceReport {
	metrics.IncActiveSources()
	defer metrics.DecActiveSources()

	if r.cfg.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.SourceTimeout)
		defer cancel()
	}

	report := SourceReport{Source: desc.Name}
	batch, err := r.ingester.Ingest(ctx, desc, runID)
	if err != nil {
		r.log.Error("source ingest failed",
			zap.String("run_id", runID),
			zap.String("source", desc.Name),
			zap.Error(err),
		)
		report.Error = err.Error()
		metrics.ObserveSourceRun(desc.Name, string(batch.Method), "failed")
		return report
	}

	report.Method = batch.Method
	report.Pages = batch.Pages
	report.Papers = len(batch.Papers)
	report.Warnings = batch.Warnings
	metrics.ObservePages(desc.Name, batch.Pages)

	stats, err := r.merger.Merge(ctx, batch)
	if err != nil {
		r.log.Error("source merge failed",
			zap.String("run_id", runID),
			zap.String("source", desc.Name),
			zap.Error(err),
		)
		report.Error = err.Error()
		metrics.ObserveSourceRun(desc.Name, string(batch.Method), "failed")
		return report
	}

	report.Inserted = stats.Inserted
	report.Skipped = stats.Skipped
	metrics.ObserveMerge(desc.Name, stats.Inserted, stats.Skipped)
	metrics.ObserveSourceRun(desc.Name, string(batch.Method), "ok")
	r.log.Info("source ingested",
		zap.String("run_id", runID),
		zap.String("source", desc.Name),
		zap.String("method", string(batch.Method)),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Skipped),
	)
	return report
}

func (r *Runner) publishSummary(ctx context.Context, summary Summary) {
	if r.publisher == nil || r.cfg.SummaryTopic == "" {
		return
	}
	if _, err := r.publisher.Publish(ctx, r.cfg.SummaryTopic, summary); err != nil {
		r.log.Warn("run summary publish failed",
			zap.String("run_id", summary.RunID),
			zap.Error(err),
		)
	}
}

func outcome(reports []SourceReport) Outcome {
	failed := 0
	for _, report := range reports {
		if report.Failed() {
			failed++
		}
	}
	switch {
	case failed == 0:
		return OutcomeFull
	case failed == len(reports) && len(reports) > 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}
