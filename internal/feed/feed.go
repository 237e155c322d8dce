// Package feed implements the secondary access method: syndication feeds.
package feed

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
)

// Client retrieves a source's feed through the same fetch session used for
// page scraping, so politeness and the header profile still apply. Feed
// batches legitimately carry fewer fields than scraped batches (often no
// authors or abstract); that is accepted degraded data, not a failure.
type Client struct {
	fetcher ingest.Fetcher
	parser  *gofeed.Parser
	log     *zap.Logger
}

// NewClient builds a feed Client on top of the given fetcher.
func NewClient(fetcher ingest.Fetcher, log *zap.Logger) *Client {
	return &Client{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		log:     log,
	}
}

// Fetch tries each candidate feed URL in order and returns the raw records
// from the first feed yielding at least one titled item.
func (c *Client) Fetch(ctx context.Context, desc ingest.SourceDescriptor) ([]ingest.RawRecord, error) {
	if len(desc.FeedURLs) == 0 {
		return nil, fmt.Errorf("source %s has no feed URLs configured", desc.Name)
	}

	var lastErr error
	for _, feedURL := range desc.FeedURLs {
		records, err := c.fetchOne(ctx, feedURL)
		if err != nil {
			c.log.Debug("feed candidate failed",
				zap.String("source", desc.Name),
				zap.String("feed_url", feedURL),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(records) > 0 {
			c.log.Info("feed fallback produced records",
				zap.String("source", desc.Name),
				zap.String("feed_url", feedURL),
				zap.Int("records", len(records)),
			)
			return records, nil
		}
		lastErr = fmt.Errorf("feed %s contained no items", feedURL)
	}
	return nil, fmt.Errorf("all feeds for %s failed: %w", desc.Name, lastErr)
}

func (c *Client) fetchOne(ctx context.Context, feedURL string) ([]ingest.RawRecord, error) {
	page, err := c.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, err
	}
	parsed, err := c.parser.ParseString(string(page.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	records := make([]ingest.RawRecord, 0, len(parsed.Items))
	for i, item := range parsed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		record := ingest.RawRecord{
			Title:     title,
			DetailURL: strings.TrimSpace(item.Link),
			Abstract:  strings.TrimSpace(item.Description),
			PageIndex: 0,
			ItemIndex: i,
		}
		if item.Published != "" {
			record.Date = item.Published
		} else if item.PublishedParsed != nil {
			record.Date = item.PublishedParsed.Format("2006-01-02")
		}
		if len(item.Authors) > 0 {
			names := make([]string, 0, len(item.Authors))
			for _, a := range item.Authors {
				if a != nil && strings.TrimSpace(a.Name) != "" {
					names = append(names, strings.TrimSpace(a.Name))
				}
			}
			record.Authors = strings.Join(names, ", ")
		}
		records = append(records, record)
	}
	return records, nil
}
