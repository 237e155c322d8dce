// Package normalize canonicalizes raw records into papers.
package normalize

import (
	"regexp"
	"strings"
)

// OthersSentinel is the author entry standing in for truncated author lists.
// Sources emit it in inconsistent positions; normalization always moves it
// to the end, where it belongs semantically.
const OthersSentinel = "others"

var (
	andSplit     = regexp.MustCompile(`\s+and\s+`)
	initialsOnly = regexp.MustCompile(`^(?:[A-Z]\.[\s-]*)+$`)
	yearTrailer  = regexp.MustCompile(`,\s*(?:19|20)\d{2}\.`)
)

// SplitAuthors splits a delimited author fragment on commas and standalone
// "and" tokens, preserving left-to-right order (order encodes authorship
// credit). Tokens that are bare initials are re-attached to the preceding
// surname so "Smith, J., Doe, A." stays two authors, not four. Any "others"
// token, wherever the source put it, becomes the final entry.
func SplitAuthors(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	// Some listings append ", <year>. <links>" after the author names;
	// everything from the year on is not an author.
	if loc := yearTrailer.FindStringIndex(raw); loc != nil {
		raw = strings.TrimSpace(raw[:loc[0]])
	}

	var tokens []string
	for _, chunk := range andSplit.Split(raw, -1) {
		for _, token := range strings.Split(chunk, ",") {
			token = strings.TrimSpace(token)
			if token != "" {
				tokens = append(tokens, token)
			}
		}
	}

	var (
		authors   []string
		hasOthers bool
	)
	for _, token := range tokens {
		if strings.EqualFold(token, OthersSentinel) {
			hasOthers = true
			continue
		}
		if initialsOnly.MatchString(token) && len(authors) > 0 {
			authors[len(authors)-1] += ", " + token
			continue
		}
		authors = append(authors, token)
	}

	authors = dedupeAuthors(authors)
	if hasOthers {
		authors = append(authors, OthersSentinel)
	}
	return authors
}

func dedupeAuthors(authors []string) []string {
	seen := make(map[string]struct{}, len(authors))
	out := authors[:0]
	for _, a := range authors {
		key := strings.ToLower(a)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, a)
	}
	return out
}
