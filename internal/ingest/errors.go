package ingest

import (
	"errors"
	"fmt"
)

// FetchError is a transient network failure. The fetch session retries it
// a bounded number of times before surfacing it.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// BlockedError is a deliberate access denial (403/429-class response).
// It is never retried at the session level; the fallback chain decides
// whether to escalate to a secondary access method.
type BlockedError struct {
	URL        string
	StatusCode int
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked by %s (status %d)", e.URL, e.StatusCode)
}

// ParseError marks a single item that failed required-field extraction.
// It is logged and absorbed; the rest of the page continues.
type ParseError struct {
	Source    string
	PageIndex int
	ItemIndex int
	Reason    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page %d item %d: %s", e.Source, e.PageIndex, e.ItemIndex, e.Reason)
}

// SourceIngestFailure means every access method for a source was exhausted.
// The source's run fails atomically; other sources are unaffected.
type SourceIngestFailure struct {
	Source    string
	Primary   error
	Secondary error
}

func (e *SourceIngestFailure) Error() string {
	if e.Secondary != nil {
		return fmt.Sprintf("source %s: primary: %v; feed: %v", e.Source, e.Primary, e.Secondary)
	}
	return fmt.Sprintf("source %s: %v", e.Source, e.Primary)
}

// IsBlocked reports whether err is (or wraps) a BlockedError.
func IsBlocked(err error) bool {
	var blocked *BlockedError
	return errors.As(err, &blocked)
}
