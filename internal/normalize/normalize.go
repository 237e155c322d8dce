package normalize

import (
	"github.com/statstream/papercrawler/internal/ingest"
)

// BuildBatch normalizes the raw records extracted from one source into
// papers with ordinals assigned.
//
// Raw extraction order is page-concatenation order: page 0 first, each page
// top to bottom. Sources presenting newest-at-top are therefore already
// newest-first; sources presenting oldest-at-top are reversed so that
// ordinal 0 is always the newest item (the one that appeared last on the
// last page). Ordinals are relative to this run's batch only, which keeps
// the reconstruction stable for records ingested in earlier runs.
func BuildBatch(desc ingest.SourceDescriptor, raws []ingest.RawRecord) []ingest.Paper {
	ordered := raws
	if desc.Order == ingest.OrderOldestFirst {
		ordered = make([]ingest.RawRecord, len(raws))
		for i, raw := range raws {
			ordered[len(raws)-1-i] = raw
		}
	}

	papers := make([]ingest.Paper, 0, len(ordered))
	for i, raw := range ordered {
		papers = append(papers, ingest.Paper{
			Source:    desc.Name,
			Journal:   desc.Journal,
			Title:     raw.Title,
			Authors:   SplitAuthors(raw.Authors),
			Published: ParseDate(raw.Date),
			DOI:       raw.DOI,
			URL:       raw.DetailURL,
			Abstract:  raw.Abstract,
			BibTeX:    raw.BibTeX,
			Section:   raw.Section,
			Ordinal:   i,
		})
	}
	return papers
}
