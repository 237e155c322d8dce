package normalize

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Journal pages favor long-form dates ("4 July 2025", "July 4, 2025"); try
// those before handing off to the lenient parser.
var dateLayouts = []string{
	"2 January 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// ParseDate parses a publication date string into a UTC calendar date.
// An unparsable or empty string yields nil, not an error: absence of a
// usable date is expected for some sources and is covered by ordinals.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			ts = ts.UTC()
			return &ts
		}
	}
	ts, err := dateparse.ParseAny(raw)
	if err != nil {
		return nil
	}
	ts = ts.UTC()
	return &ts
}
