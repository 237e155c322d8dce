package fallback

import (
	"context"

	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/extract"
	"github.com/statstream/papercrawler/internal/feed"
	"github.com/statstream/papercrawler/internal/fetch"
	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/paginate"
	"github.com/statstream/papercrawler/internal/topics"
)

// Factory builds a fresh fetch session and fallback chain per source run.
// Sessions are per source so each one carries that source's header profile
// and its own politeness clock.
type Factory struct {
	HTTP    fetch.Config
	Archive ingest.Archive
	Tagger  *topics.Tagger
	Log     *zap.Logger
}

// Ingest runs the full chain for one source.
func (f *Factory) Ingest(ctx context.Context, desc ingest.SourceDescriptor, runID string) (ingest.BatchResult, error) {
	log := f.Log.With(zap.String("source", desc.Name))
	session := fetch.NewSession(desc.Name, desc.Headers, f.HTTP, log.Named("fetch"))
	engine := extract.NewEngine(log.Named("extract"))
	walker := paginate.NewWalker(session, engine, f.Archive, log.Named("paginate"))
	feedClient := feed.NewClient(session, log.Named("feed"))

	ctrl := NewController(walker, feedClient, session, f.Tagger, log)
	return ctrl.Ingest(ctx, desc, runID)
}
