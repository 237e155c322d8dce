// Package ingest defines the core types shared across the ingestion pipeline.
package ingest

import (
	"time"
)

// Method identifies which access method produced a batch.
type Method string

// Access methods, in escalation order.
const (
	MethodPrimary Method = "primary"
	MethodFeed    Method = "feed"
)

// PageOrder describes how a source presents items on its listing pages.
type PageOrder string

// Presentation orders. Oldest-first sources are reversed during
// normalization so that ordinal 0 is always the newest record.
const (
	OrderNewestFirst PageOrder = "newest_first"
	OrderOldestFirst PageOrder = "oldest_first"
)

// HeaderProfile is the request header set sent to a source. Sources in this
// corpus reject requests that do not look like a complete browser request,
// so the profile is configurable per source without code changes.
type HeaderProfile struct {
	UserAgent      string            `mapstructure:"user_agent"`
	Accept         string            `mapstructure:"accept"`
	AcceptLanguage string            `mapstructure:"accept_language"`
	AcceptEncoding string            `mapstructure:"accept_encoding"`
	Referer        string            `mapstructure:"referer"`
	Extra          map[string]string `mapstructure:"extra"`
}

// ExtractionStrategy is one concrete recipe for parsing a listing page.
// All field selectors are evaluated relative to the Item selector. Multiple
// strategies per source provide resilience to markup drift; they are tried
// in slice order and the first one yielding a titled item wins for a page.
type ExtractionStrategy struct {
	Name      string `mapstructure:"name"`
	Item      string `mapstructure:"item"`
	Title     string `mapstructure:"title"`
	DetailURL string `mapstructure:"detail_url"`
	Authors   string `mapstructure:"authors"`
	Date      string `mapstructure:"date"`
	DOI       string `mapstructure:"doi"`
	Abstract  string `mapstructure:"abstract"`
	Section   string `mapstructure:"section"`
}

// DetailLinks configures detail-page enrichment for sources whose listing
// items carry only a link (e.g. JMLR's abs/bib anchors). The item's detail
// page is fetched through the same session; AbstractLink optionally hops
// one more anchor, AbstractSelector selects the abstract text, and
// BibTeXLink locates a raw BibTeX download.
type DetailLinks struct {
	AbstractLink     string `mapstructure:"abstract_link"`
	AbstractSelector string `mapstructure:"abstract_selector"`
	BibTeXLink       string `mapstructure:"bibtex_link"`
}

// SourceDescriptor is the static configuration for one external publisher.
// Loaded once at startup; adding a source is adding data, not a new type.
type SourceDescriptor struct {
	Name       string               `mapstructure:"name"`
	Journal    string               `mapstructure:"journal"`
	BaseURL    string               `mapstructure:"base_url"`
	PageParam  string               `mapstructure:"page_param"`
	MaxPages   int                  `mapstructure:"max_pages"`
	Order      PageOrder            `mapstructure:"order"`
	Headers    HeaderProfile        `mapstructure:"headers"`
	Strategies []ExtractionStrategy `mapstructure:"strategies"`
	FeedURLs   []string             `mapstructure:"feed_urls"`
	Details    DetailLinks          `mapstructure:"details"`
}

// Paginated reports whether the source exposes numbered result pages.
// Single-page sources are fetched once and terminate immediately.
func (d SourceDescriptor) Paginated() bool {
	return d.PageParam != ""
}

// RawRecord is the as-parsed result of one page item. Fields the chosen
// strategy could not locate are left empty; only Title is required.
type RawRecord struct {
	Title     string
	DetailURL string
	Authors   string
	Date      string
	DOI       string
	Abstract  string
	BibTeX    string
	Section   string
	PageIndex int
	ItemIndex int
}

// Paper is the canonical, normalized record submitted to the store.
type Paper struct {
	Source    string     `json:"source"`
	Journal   string     `json:"journal"`
	Title     string     `json:"title"`
	Authors   []string   `json:"authors"`
	Published *time.Time `json:"published,omitempty"`
	DOI       string     `json:"doi,omitempty"`
	URL       string     `json:"url,omitempty"`
	Abstract  string     `json:"abstract,omitempty"`
	BibTeX    string     `json:"bibtex,omitempty"`
	Section   string     `json:"section,omitempty"`
	Topics    []string   `json:"topics,omitempty"`

	// Ordinal ranks the paper newest-first within its source for one run;
	// 0 is the newest. It is relative to the run batch, never a global
	// sequence number, so re-deriving it cannot perturb stored records.
	Ordinal int `json:"ordinal"`
}

// BatchResult is the outcome of ingesting one source.
type BatchResult struct {
	Source   string
	Method   Method
	Papers   []Paper
	Pages    int
	Warnings []string
}

// SyncState tracks per-source progress. It is advisory only: dedup is
// idempotency-based, so a stale SyncState never causes incorrect merges.
// It is written only after a fully successful merge.
type SyncState struct {
	Source      string
	LastRunAt   time.Time
	LastOrdinal int
	LastMethod  Method
}

// MergeStats reports the result of one merge call.
type MergeStats struct {
	Inserted int
	Skipped  int
}
