package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Key is the deterministic dedup key for a logical record. Two papers with
// equal keys are the same record and must never both be inserted.
type Key string

// IdentityKey derives the dedup key from the source name, the normalized
// title and the DOI when present. Title normalization collapses whitespace
// and case so trivial markup drift does not mint a new identity.
func (p Paper) IdentityKey() Key {
	parts := []string{p.Source, NormalizeTitle(p.Title)}
	if p.DOI != "" {
		parts = append(parts, strings.ToLower(p.DOI))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return Key(hex.EncodeToString(sum[:]))
}

// NormalizeTitle lowercases a title and collapses internal whitespace.
func NormalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}
