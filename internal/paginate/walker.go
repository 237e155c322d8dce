// Package paginate drives sequential page retrieval for one source.
package paginate

import (
	"context"
	"crypto/sha256"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/extract"
	"github.com/statstream/papercrawler/internal/ingest"
)

// hardPageCap bounds the walk even when the descriptor sets no maximum.
const hardPageCap = 50

// Extractor parses one fetched page.
type Extractor interface {
	Extract(source string, page ingest.Page, strategies []ingest.ExtractionStrategy, pageIndex int) (extract.Result, error)
}

// WalkResult is the outcome of walking one source's pagination.
type WalkResult struct {
	Records     []ingest.RawRecord
	Pages       int
	ParseErrors int
	Warnings    []string
}

// Walker retrieves pages strictly sequentially until a stop condition:
// an empty page, a page identical to the previous one (misconfigured
// pagination guard), the descriptor's page cap, or a fetch failure. The
// identity check is two-level: a body hash catches byte-identical pages
// before extraction, and a comparison of the extracted titles catches
// pages that repeat the same items behind rotating markup (nonces, ad
// slots).
type Walker struct {
	fetcher ingest.Fetcher
	engine  Extractor
	archive ingest.Archive
	log     *zap.Logger
}

// NewWalker builds a Walker. archive may be nil.
func NewWalker(fetcher ingest.Fetcher, engine Extractor, archive ingest.Archive, log *zap.Logger) *Walker {
	return &Walker{fetcher: fetcher, engine: engine, archive: archive, log: log}
}

// Walk fetches and extracts all pages for the source. A fetch failure on
// the first page returns the error with zero pages fetched so the caller
// can escalate to a fallback; a failure after at least one successful page
// stops the walk and keeps the partial result with a warning.
func (w *Walker) Walk(ctx context.Context, desc ingest.SourceDescriptor, runID string) (WalkResult, error) {
	var (
		result     WalkResult
		prevHash   [sha256.Size]byte
		prevTitles []string
	)

	maxPages := desc.MaxPages
	if maxPages <= 0 || maxPages > hardPageCap {
		maxPages = hardPageCap
	}
	if !desc.Paginated() {
		maxPages = 1
	}

	for pageIndex := 0; pageIndex < maxPages; pageIndex++ {
		url := pageURL(desc, pageIndex)
		page, err := w.fetcher.Fetch(ctx, url)
		if err != nil {
			if result.Pages == 0 {
				return result, err
			}
			w.log.Warn("pagination stopped on fetch failure",
				zap.String("source", desc.Name),
				zap.Int("page", pageIndex),
				zap.Error(err),
			)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("page %d failed, kept %d earlier pages: %v", pageIndex, result.Pages, err))
			return result, nil
		}
		result.Pages++
		w.archivePage(ctx, desc.Name, runID, pageIndex, page)

		hash := sha256.Sum256(page.Body)
		if pageIndex > 0 && hash == prevHash {
			w.log.Debug("page identical to previous, stopping",
				zap.String("source", desc.Name),
				zap.Int("page", pageIndex),
			)
			break
		}
		prevHash = hash

		extracted, err := w.engine.Extract(desc.Name, page, desc.Strategies, pageIndex)
		if err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("page %d unparsable: %v", pageIndex, err))
			break
		}
		result.ParseErrors += extracted.ParseErrors
		if len(extracted.Records) == 0 {
			// Normal terminal condition, not a failure.
			break
		}
		titles := recordTitles(extracted.Records)
		if pageIndex > 0 && slices.Equal(titles, prevTitles) {
			w.log.Debug("page repeats previous items, stopping",
				zap.String("source", desc.Name),
				zap.Int("page", pageIndex),
			)
			break
		}
		prevTitles = titles
		result.Records = append(result.Records, extracted.Records...)
	}

	return result, nil
}

func recordTitles(records []ingest.RawRecord) []string {
	titles := make([]string, len(records))
	for i, r := range records {
		titles[i] = r.Title
	}
	return titles
}

func pageURL(desc ingest.SourceDescriptor, pageIndex int) string {
	if !desc.Paginated() {
		return desc.BaseURL
	}
	sep := "?"
	if strings.Contains(desc.BaseURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s%s=%d", desc.BaseURL, sep, desc.PageParam, pageIndex)
}

func (w *Walker) archivePage(ctx context.Context, source, runID string, pageIndex int, page ingest.Page) {
	if w.archive == nil {
		return
	}
	path := fmt.Sprintf("%s/%s/page-%03d.html", runID, source, pageIndex)
	if _, err := w.archive.PutPage(ctx, path, page.Body); err != nil {
		w.log.Warn("page archive failed",
			zap.String("source", source),
			zap.Int("page", pageIndex),
			zap.Error(err),
		)
	}
}
