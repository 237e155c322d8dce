// Package memory provides an in-memory paper store for development/testing.
package memory

import (
	"context"
	"sync"

	"github.com/statstream/papercrawler/internal/ingest"
)

// PaperStore keeps papers and sync state in process memory. Inserts are
// first-writer-wins on identity key, matching the Postgres store's
// ON CONFLICT DO NOTHING behavior.
type PaperStore struct {
	mu     sync.RWMutex
	papers map[ingest.Key]ingest.Paper
	states map[string]ingest.SyncState
}

// NewPaperStore constructs a PaperStore.
func NewPaperStore() *PaperStore {
	return &PaperStore{
		papers: make(map[ingest.Key]ingest.Paper),
		states: make(map[string]ingest.SyncState),
	}
}

// ExistingKeys returns the identity keys already stored for a source.
func (s *PaperStore) ExistingKeys(_ context.Context, source string) (map[ingest.Key]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(map[ingest.Key]struct{})
	for key, paper := range s.papers {
		if paper.Source == source {
			keys[key] = struct{}{}
		}
	}
	return keys, nil
}

// InsertPapers stores papers not yet present and reports how many landed.
func (s *PaperStore) InsertPapers(_ context.Context, papers []ingest.Paper) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, paper := range papers {
		key := paper.IdentityKey()
		if _, exists := s.papers[key]; exists {
			continue
		}
		s.papers[key] = paper
		inserted++
	}
	return inserted, nil
}

// SyncState returns the recorded state for a source, zero value when the
// source has never completed a run.
func (s *PaperStore) SyncState(_ context.Context, source string) (ingest.SyncState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[source], nil
}

// SaveSyncState records the state for a source.
func (s *PaperStore) SaveSyncState(_ context.Context, state ingest.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.Source] = state
	return nil
}

// SourceCounts reports the number of stored papers per source.
func (s *PaperStore) SourceCounts(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, paper := range s.papers {
		counts[paper.Source]++
	}
	return counts, nil
}

// Papers returns a snapshot of all stored papers, for tests and the
// development API.
func (s *PaperStore) Papers() []ingest.Paper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ingest.Paper, 0, len(s.papers))
	for _, paper := range s.papers {
		out = append(out, paper)
	}
	return out
}
