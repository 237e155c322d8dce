// Package fallback chains the access methods for one source: full primary
// scrape first, syndication feed second.
package fallback

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/extract"
	"github.com/statstream/papercrawler/internal/ingest"
	"github.com/statstream/papercrawler/internal/normalize"
	"github.com/statstream/papercrawler/internal/paginate"
	"github.com/statstream/papercrawler/internal/topics"
)

// pageWalker walks a source's pagination.
type pageWalker interface {
	Walk(ctx context.Context, desc ingest.SourceDescriptor, runID string) (paginate.WalkResult, error)
}

// feedClient retrieves a source's syndication feed.
type feedClient interface {
	Fetch(ctx context.Context, desc ingest.SourceDescriptor) ([]ingest.RawRecord, error)
}

// Controller produces one normalized, tagged batch per source. The primary
// method is attempted in full; the feed is consulted only when the primary
// retrieved zero pages. A primary run that succeeds but yields no records
// is a valid empty batch, not a reason to fall back.
type Controller struct {
	walker  pageWalker
	feed    feedClient
	fetcher ingest.Fetcher
	tagger  *topics.Tagger
	log     *zap.Logger
}

// NewController builds a Controller. fetcher is used for detail-page
// enrichment and may be nil when no source configures DetailLinks.
func NewController(walker pageWalker, feed feedClient, fetcher ingest.Fetcher, tagger *topics.Tagger, log *zap.Logger) *Controller {
	return &Controller{walker: walker, feed: feed, fetcher: fetcher, tagger: tagger, log: log}
}

// Ingest runs the fallback chain for one source and returns its batch.
// Both methods failing yields a *ingest.SourceIngestFailure; the caller
// isolates it from other sources.
func (c *Controller) Ingest(ctx context.Context, desc ingest.SourceDescriptor, runID string) (ingest.BatchResult, error) {
	walked, primaryErr := c.walker.Walk(ctx, desc, runID)
	if primaryErr == nil {
		return c.primaryBatch(ctx, desc, walked), nil
	}
	if ctx.Err() != nil {
		return ingest.BatchResult{Source: desc.Name}, primaryErr
	}

	c.log.Warn("primary method exhausted, trying feed",
		zap.String("source", desc.Name),
		zap.Bool("blocked", ingest.IsBlocked(primaryErr)),
		zap.Error(primaryErr),
	)

	records, feedErr := c.feed.Fetch(ctx, desc)
	if feedErr != nil {
		return ingest.BatchResult{Source: desc.Name}, &ingest.SourceIngestFailure{
			Source:    desc.Name,
			Primary:   primaryErr,
			Secondary: feedErr,
		}
	}
	return c.feedBatch(desc, records, primaryErr), nil
}

func (c *Controller) primaryBatch(ctx context.Context, desc ingest.SourceDescriptor, walked paginate.WalkResult) ingest.BatchResult {
	warnings := walked.Warnings
	if walked.ParseErrors > 0 {
		warnings = append(warnings, fmt.Sprintf("%d items dropped during extraction", walked.ParseErrors))
	}
	if desc.Details != (ingest.DetailLinks{}) && c.fetcher != nil {
		warnings = append(warnings, c.enrich(ctx, desc, walked.Records)...)
	}

	papers := c.tag(normalize.BuildBatch(desc, walked.Records))
	c.log.Info("primary batch built",
		zap.String("source", desc.Name),
		zap.Int("pages", walked.Pages),
		zap.Int("papers", len(papers)),
	)
	return ingest.BatchResult{
		Source:   desc.Name,
		Method:   ingest.MethodPrimary,
		Papers:   papers,
		Pages:    walked.Pages,
		Warnings: warnings,
	}
}

func (c *Controller) feedBatch(desc ingest.SourceDescriptor, records []ingest.RawRecord, primaryErr error) ingest.BatchResult {
	// Feeds present newest-first regardless of how the source lays out
	// its listing pages, so the listing order never applies here.
	feedDesc := desc
	feedDesc.Order = ingest.OrderNewestFirst

	papers := c.tag(normalize.BuildBatch(feedDesc, records))
	c.log.Info("feed batch built",
		zap.String("source", desc.Name),
		zap.Int("papers", len(papers)),
	)
	return ingest.BatchResult{
		Source: desc.Name,
		Method: ingest.MethodFeed,
		Papers: papers,
		Warnings: []string{
			fmt.Sprintf("primary method failed, feed used: %v", primaryErr),
		},
	}
}

func (c *Controller) tag(papers []ingest.Paper) []ingest.Paper {
	if c.tagger == nil {
		return papers
	}
	for i := range papers {
		papers[i].Topics = c.tagger.Tag(papers[i].Title, papers[i].Abstract)
	}
	return papers
}

// enrich fills missing abstracts and BibTeX from each record's detail
// page. Enrichment is best-effort: a failed detail fetch degrades that one
// record and is reported as a warning, never as a batch failure.
func (c *Controller) enrich(ctx context.Context, desc ingest.SourceDescriptor, records []ingest.RawRecord) []string {
	var warnings []string
	for i := range records {
		rec := &records[i]
		if rec.DetailURL == "" {
			continue
		}
		if err := c.enrichOne(ctx, desc.Details, rec); err != nil {
			if ctx.Err() != nil {
				return warnings
			}
			c.log.Debug("detail enrichment failed",
				zap.String("source", desc.Name),
				zap.String("url", rec.DetailURL),
				zap.Error(err),
			)
			warnings = append(warnings, fmt.Sprintf("detail enrichment for %q: %v", rec.Title, err))
		}
	}
	return warnings
}

func (c *Controller) enrichOne(ctx context.Context, details ingest.DetailLinks, rec *ingest.RawRecord) error {
	page, err := c.fetcher.Fetch(ctx, rec.DetailURL)
	if err != nil {
		return err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return fmt.Errorf("parse detail page: %w", err)
	}

	abstractDoc := doc.Selection
	if details.AbstractLink != "" {
		if href := extract.DetailHref(doc.Selection, details.AbstractLink, rec.DetailURL); href != "" {
			hopped, err := c.fetcher.Fetch(ctx, href)
			if err != nil {
				return err
			}
			hopDoc, err := goquery.NewDocumentFromReader(bytes.NewReader(hopped.Body))
			if err != nil {
				return fmt.Errorf("parse abstract page: %w", err)
			}
			abstractDoc = hopDoc.Selection
		}
	}
	if details.AbstractSelector != "" && rec.Abstract == "" {
		rec.Abstract = strings.TrimSpace(abstractDoc.Find(details.AbstractSelector).First().Text())
	}

	if details.BibTeXLink != "" && rec.BibTeX == "" {
		if href := extract.DetailHref(doc.Selection, details.BibTeXLink, rec.DetailURL); href != "" {
			bib, err := c.fetcher.Fetch(ctx, href)
			if err != nil {
				return err
			}
			rec.BibTeX = strings.TrimSpace(string(bib.Body))
		}
	}
	return nil
}
