// Package topics assigns topic labels to papers by keyword matching.
package topics

import (
	"sort"
	"strings"
)

// Vocabulary maps a topic label to the keywords that trigger it.
type Vocabulary map[string][]string

// Tagger performs deterministic, case-insensitive keyword matching against
// an immutable vocabulary fixed at construction. Re-tagging the same text
// always yields the identical label set.
type Tagger struct {
	vocab Vocabulary
}

// NewTagger builds a Tagger from the given vocabulary; a nil vocabulary
// falls back to the default one.
func NewTagger(vocab Vocabulary) *Tagger {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	lowered := make(Vocabulary, len(vocab))
	for topic, keywords := range vocab {
		kws := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				kws = append(kws, kw)
			}
		}
		lowered[topic] = kws
	}
	return &Tagger{vocab: lowered}
}

// Tag returns the sorted set of topic labels whose keywords occur in the
// title or abstract. Zero labels is a valid outcome.
func (t *Tagger) Tag(title, abstract string) []string {
	haystack := strings.ToLower(title)
	if abstract != "" {
		haystack += " " + strings.ToLower(abstract)
	}

	var labels []string
	for topic, keywords := range t.vocab {
		for _, kw := range keywords {
			if matchKeyword(haystack, kw) {
				labels = append(labels, topic)
				break
			}
		}
	}
	sort.Strings(labels)
	return labels
}

// matchKeyword requires whole-word boundaries for short keywords so "ai"
// does not fire inside "maintain"; longer phrases match as substrings.
func matchKeyword(haystack, keyword string) bool {
	if len(keyword) > 3 {
		return strings.Contains(haystack, keyword)
	}
	idx := 0
	for {
		i := strings.Index(haystack[idx:], keyword)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(keyword)
		if boundary(haystack, start-1) && boundary(haystack, end) {
			return true
		}
		idx = start + 1
	}
}

func boundary(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return true
	}
	c := s[i]
	return !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9')
}
