// Package assets locates and fetches the built client assets of pages.
//
// A production build writes a manifest.json mapping each client page
// module id to its fingerprinted chunk:
//
//	{
//	  "virtual:ssrpages:pageCode:client:/pages/index": "entries/pages_index.4f1c2a.js",
//	  "virtual:ssrpages:pageCode:client:/pages/blog": "entries/pages_blog.9b7e01.js"
//	}
//
// A Fetcher retrieves chunks. When a chunk named by the manifest no longer
// exists, the client runs against a stale deployment; fetchers report this
// as ErrStaleAsset.
package assets

import (
	"encoding/json"
	"os"
	"sync"
)

// Manifest maps asset sources to fingerprinted paths.
// It is safe for concurrent use.
type Manifest struct {
	entries map[string]string
	mu      sync.RWMutex
}

// NewManifest creates an empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		entries: make(map[string]string),
	}
}

// Load reads a manifest.json file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes manifest JSON.
func Parse(data []byte) (*Manifest, error) {
	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = make(map[string]string)
	}
	return &Manifest{entries: entries}, nil
}

// Lookup returns the fingerprinted path of source.
func (m *Manifest) Lookup(source string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resolved, ok := m.entries[source]
	return resolved, ok
}

// Resolve returns the fingerprinted path of source, or source itself when
// the manifest has no entry.
func (m *Manifest) Resolve(source string) string {
	if resolved, ok := m.Lookup(source); ok {
		return resolved
	}
	return source
}

// Set adds or updates an entry.
func (m *Manifest) Set(source, resolved string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[source] = resolved
}

// Len returns the number of entries.
func (m *Manifest) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries)
}

// All returns a copy of all entries.
func (m *Manifest) All() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]string, len(m.entries))
	for k, v := range m.entries {
		result[k] = v
	}
	return result
}
