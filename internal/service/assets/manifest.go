package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/naveenkul/pocket-soul/internal/model/asset"
)

// manifestStore is the durable ledger of generated assets: a JSON mapping
// of fingerprint to entry, rewritten wholesale on each update. The file is
// persisted before the in-memory map is considered authoritative.
type manifestStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]asset.CacheEntry
}

// openManifest loads the ledger, failing fast on unreadable or corrupt
// content so the process never runs with a cache it cannot persist.
func openManifest(path string) (*manifestStore, error) {
	s := &manifestStore{
		path:    path,
		entries: make(map[string]asset.CacheEntry),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return s, nil
}

// Get returns the entry for a fingerprint, if recorded.
func (s *manifestStore) Get(fingerprint string) (asset.CacheEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[fingerprint]
	return entry, ok
}

// Put records an entry, persisting the ledger before the in-memory map
// accepts it.
func (s *manifestStore) Put(entry asset.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]asset.CacheEntry, len(s.entries)+1)
	for k, v := range s.entries {
		next[k] = v
	}
	next[entry.Fingerprint] = entry

	if err := s.persist(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// Delete evicts a fingerprint, used to self-heal stale entries.
func (s *manifestStore) Delete(fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[fingerprint]; !ok {
		return nil
	}

	next := make(map[string]asset.CacheEntry, len(s.entries))
	for k, v := range s.entries {
		if k != fingerprint {
			next[k] = v
		}
	}

	if err := s.persist(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

// List returns all entries ordered by generation time, newest first.
func (s *manifestStore) List() []asset.CacheEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]asset.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].GeneratedAt.After(out[j].GeneratedAt)
	})
	return out
}

// Clear empties the ledger.
func (s *manifestStore) Clear() ([]asset.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make([]asset.CacheEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		removed = append(removed, entry)
	}

	next := make(map[string]asset.CacheEntry)
	if err := s.persist(next); err != nil {
		return nil, err
	}
	s.entries = next
	return removed, nil
}

// persist writes the full mapping to a temp file in the manifest directory
// and renames it into place, so readers never observe a partial write.
func (s *manifestStore) persist(entries map[string]asset.CacheEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".manifest-*.json")
	if err != nil {
		return fmt.Errorf("create manifest temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close manifest temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace manifest: %w", err)
	}
	return nil
}
