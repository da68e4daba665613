// Package brandcache persists resolved generic→brand names as a flat JSON
// object on disk.
//
// The file is read once, on first access. Every new entry is flushed by
// writing a temp file in the same directory and renaming it over the old
// one, so readers never see a partial file. Before each flush the file is
// re-read and merged, keeping entries written by other processes; for a key
// present in both, this process's value wins.
package brandcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/absorpgen/absorpgen-api/logging"
)

// Cache is safe for concurrent use
type Cache struct {
	path    string
	once    sync.Once
	mu      sync.RWMutex
	entries map[string]string
	flushMu sync.Mutex
}

// New returns a cache backed by path. Nothing is read until first use.
// An empty path gives a memory-only cache.
func New(path string) *Cache {
	return &Cache{path: path}
}

func normalizeKey(generic string) string {
	return strings.ToLower(strings.TrimSpace(generic))
}

// Load forces the initial read; it is otherwise done lazily
func (c *Cache) Load() {
	c.once.Do(func() {
		entries, err := readFile(c.path)
		if err != nil {
			logging.Warn("Brand cache unreadable, starting empty", "path", c.path, "error", err)
			entries = nil
		}
		if entries == nil {
			entries = make(map[string]string)
		}
		c.mu.Lock()
		c.entries = entries
		c.mu.Unlock()
		logging.Debug("Brand cache loaded", "path", c.path, "entries", len(entries))
	})
}

// Get returns the cached brand for a generic name
func (c *Cache) Get(generic string) (string, bool) {
	c.Load()
	c.mu.RLock()
	defer c.mu.RUnlock()
	brand, ok := c.entries[normalizeKey(generic)]
	return brand, ok
}

// Put records a brand for a generic name and flushes it to disk.
// Existing keys are left unchanged and nothing is written for them.
func (c *Cache) Put(generic, brand string) error {
	key := normalizeKey(generic)
	if key == "" || strings.TrimSpace(brand) == "" {
		return fmt.Errorf("brand cache: empty key or value")
	}

	c.Load()
	c.mu.Lock()
	if _, exists := c.entries[key]; exists {
		c.mu.Unlock()
		return nil
	}
	c.entries[key] = brand
	c.mu.Unlock()

	return c.flush(key, brand)
}

// Len returns the number of cached entries
func (c *Cache) Len() int {
	c.Load()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Entries returns a copy of the cached entries
func (c *Cache) Entries() map[string]string {
	c.Load()
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.entries)
}

func (c *Cache) flush(key, brand string) error {
	if c.path == "" {
		return nil
	}

	c.flushMu.Lock()
	defer c.flushMu.Unlock()

	onDisk, err := readFile(c.path)
	if err != nil {
		logging.Warn("Brand cache unreadable before flush, overwriting", "path", c.path, "error", err)
		onDisk = nil
	}

	c.mu.Lock()
	for k, v := range onDisk {
		if _, ok := c.entries[k]; !ok {
			c.entries[k] = v
		}
	}
	merged := maps.Clone(c.entries)
	c.mu.Unlock()
	merged[key] = brand

	if err := writeFileAtomic(c.path, merged); err != nil {
		return fmt.Errorf("brand cache: %w", err)
	}
	return nil
}

// readFile returns nil entries and no error when the file does not exist
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}

	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("corrupt cache file: %w", err)
	}

	normalized := make(map[string]string, len(entries))
	for k, v := range entries {
		normalized[normalizeKey(k)] = v
	}
	return normalized, nil
}

func writeFileAtomic(path string, entries map[string]string) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}
