package ingest

import (
	"context"
)

// Page is one fetched listing page.
type Page struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Fetcher retrieves a single URL. Implementations apply the source's header
// profile, politeness delay and bounded retries; a deliberate denial is
// surfaced as *BlockedError and a transient failure as *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// PaperStore is the persistence collaborator consumed by the sync engine.
type PaperStore interface {
	// ExistingKeys returns the identity keys already ingested for a source.
	ExistingKeys(ctx context.Context, source string) (map[Key]struct{}, error)
	// InsertPapers inserts the given papers and returns how many rows were
	// actually written. Implementations must tolerate concurrent inserts of
	// the same key (insert-only, first writer wins).
	InsertPapers(ctx context.Context, papers []Paper) (int, error)
	// SyncState returns the recorded state for a source; a zero value with
	// no error means the source has never completed a run.
	SyncState(ctx context.Context, source string) (SyncState, error)
	// SaveSyncState records state after a fully successful merge.
	SaveSyncState(ctx context.Context, state SyncState) error
	// SourceCounts reports the number of stored papers per source.
	SourceCounts(ctx context.Context) (map[string]int, error)
}

// Archive persists raw page bodies for post-hoc selector-drift debugging.
type Archive interface {
	PutPage(ctx context.Context, path string, body []byte) (string, error)
}

// Publisher pushes run-summary events to an external topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}
