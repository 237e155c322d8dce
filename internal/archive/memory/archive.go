// Package memory stores archived pages in-memory for development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Archive keeps raw page bodies in process memory and returns pseudo URIs.
type Archive struct {
	mu    sync.RWMutex
	pages map[string][]byte
}

// New creates an in-memory page archive.
func New() *Archive {
	return &Archive{pages: make(map[string][]byte)}
}

// PutPage stores the page body under path and returns a memory:// URI.
func (a *Archive) PutPage(_ context.Context, path string, body []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pages[path] = append([]byte(nil), body...)
	return fmt.Sprintf("memory://%s", path), nil
}

// Page returns the stored body for path, for tests.
func (a *Archive) Page(path string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	body, ok := a.pages[path]
	return body, ok
}

// Len reports how many pages are archived.
func (a *Archive) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.pages)
}
