// Package extract parses fetched listing pages into raw field candidates.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/statstream/papercrawler/internal/ingest"
)

var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s"'<>]+`)

// Result is the outcome of extracting one page.
type Result struct {
	Records     []ingest.RawRecord
	Strategy    string
	ParseErrors int
}

// Engine evaluates a source's ordered extraction strategies against pages.
type Engine struct {
	log *zap.Logger
}

// NewEngine returns an Engine.
func NewEngine(log *zap.Logger) *Engine {
	return &Engine{log: log}
}

// Extract tries the strategies in priority order and uses the first one
// that yields at least one structurally valid item (a non-empty title) on
// this page. Within the chosen strategy each item is parsed independently:
// a missing optional field is left empty, while an item with no title is
// dropped and counted, never failing the page. When no strategy yields a
// record, the result carries the highest drop count seen so a page full of
// title-less items stays distinguishable from a truly empty page.
func (e *Engine) Extract(source string, page ingest.Page, strategies []ingest.ExtractionStrategy, pageIndex int) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return Result{}, fmt.Errorf("parse page %d of %s: %w", pageIndex, source, err)
	}

	var barren Result
	for _, strategy := range strategies {
		result := e.applyStrategy(source, doc, strategy, page.URL, pageIndex)
		if len(result.Records) > 0 {
			return result, nil
		}
		if result.ParseErrors > barren.ParseErrors {
			barren = result
		}
	}
	return barren, nil
}

func (e *Engine) applyStrategy(source string, doc *goquery.Document, strategy ingest.ExtractionStrategy, pageURL string, pageIndex int) Result {
	result := Result{Strategy: strategy.Name}

	doc.Find(strategy.Item).Each(func(i int, item *goquery.Selection) {
		record, ok := e.parseItem(item, strategy, pageURL, pageIndex, i)
		if !ok {
			result.ParseErrors++
			e.log.Debug("dropped item without title",
				zap.String("source", source),
				zap.String("strategy", strategy.Name),
				zap.Int("page", pageIndex),
				zap.Int("item", i),
			)
			return
		}
		result.Records = append(result.Records, record)
	})
	return result
}

func (e *Engine) parseItem(item *goquery.Selection, strategy ingest.ExtractionStrategy, pageURL string, pageIndex, itemIndex int) (ingest.RawRecord, bool) {
	title := selectionText(item, strategy.Title)
	if title == "" {
		return ingest.RawRecord{}, false
	}

	record := ingest.RawRecord{
		Title:     title,
		DetailURL: resolveHref(item, strategy.DetailURL, pageURL),
		Authors:   authorText(item, strategy.Authors),
		Date:      selectionText(item, strategy.Date),
		Abstract:  selectionText(item, strategy.Abstract),
		Section:   selectionText(item, strategy.Section),
		PageIndex: pageIndex,
		ItemIndex: itemIndex,
	}
	record.DOI = extractDOI(item, strategy.DOI, record.DetailURL)
	return record, true
}

// DetailHref resolves the href matched by selector inside item, for
// detail-page enrichment links such as JMLR's abs/bib anchors.
func DetailHref(item *goquery.Selection, selector, base string) string {
	return resolveHref(item, selector, base)
}

func selectionText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	sel := item.Find(selector)
	if sel.Length() == 0 {
		return ""
	}
	return strings.TrimSpace(sel.First().Text())
}

// authorText joins every selector match with a comma so that sources using
// one element per author and sources using a single delimited fragment both
// reduce to one delimited string for the normalizer.
func authorText(item *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	var parts []string
	item.Find(selector).Each(func(_ int, s *goquery.Selection) {
		text := normalizeDelimiters(s)
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, ", ")
}

// normalizeDelimiters flattens an author fragment to text while keeping the
// delimiter spans some publishers use ("and", "and others") surrounded by
// spaces, so token boundaries survive the flattening.
func normalizeDelimiters(sel *goquery.Selection) string {
	var b strings.Builder
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		text := strings.TrimSpace(node.Text())
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(text)
	})
	return strings.TrimSpace(b.String())
}

func resolveHref(item *goquery.Selection, selector, base string) string {
	if selector == "" {
		return ""
	}
	href, ok := item.Find(selector).First().Attr("href")
	if !ok {
		// The title element itself may be the anchor.
		href, ok = item.Find(selector).First().Parent().Attr("href")
		if !ok {
			return ""
		}
	}
	return absoluteURL(base, href)
}

func absoluteURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return baseURL.ResolveReference(ref).String()
}

// extractDOI looks for a DOI in the configured selector's text first, then
// in the detail URL.
func extractDOI(item *goquery.Selection, selector, detailURL string) string {
	if selector != "" {
		if text := item.Find(selector).Text(); text != "" {
			if match := doiPattern.FindString(text); match != "" {
				return strings.TrimRight(match, ".,;")
			}
		}
	}
	if detailURL != "" {
		if match := doiPattern.FindString(detailURL); match != "" {
			return strings.TrimRight(match, ".,;")
		}
	}
	return ""
}
