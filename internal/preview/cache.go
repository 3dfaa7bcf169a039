package preview

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vanpelt/sitecraft/internal/logger"
)

// CacheEntry records the last good build of a preview session
type CacheEntry struct {
	LastBuiltAt time.Time `json:"lastBuiltAt"`
	Built       bool      `json:"built"`
	Fingerprint string    `json:"fingerprint,omitempty"`
}

// BuildCache persists CacheEntry values by session id. An empty path keeps
// the cache in memory only.
type BuildCache struct {
	path string

	mu      sync.Mutex
	entries map[string]CacheEntry
}

// OpenBuildCache loads the cache at path. A corrupt file is discarded.
func OpenBuildCache(path string) *BuildCache {
	c := &BuildCache{path: path, entries: make(map[string]CacheEntry)}
	if path == "" {
		return c
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warnf("⚠️  Failed to read preview cache: %v", err)
		}
		return c
	}
	if err := json.Unmarshal(data, &c.entries); err != nil {
		logger.Warnf("⚠️  Discarding corrupt preview cache: %v", err)
		c.entries = make(map[string]CacheEntry)
	}
	return c
}

// Get returns the entry for session
func (c *BuildCache) Get(session string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[session]
	return e, ok
}

// Put records a build for session
func (c *BuildCache) Put(session string, e CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[session] = e
	return c.saveLocked()
}

// Delete forgets session
func (c *BuildCache) Delete(session string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[session]; !ok {
		return nil
	}
	delete(c.entries, session)
	return c.saveLocked()
}

func (c *BuildCache) saveLocked() error {
	if c.path == "" {
		return nil
	}
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preview cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("failed to create preview cache dir: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preview cache: %w", err)
	}
	return nil
}

var sessionNamespace = uuid.MustParse("5b0e3c6a-7f1d-4c52-9a36-2f8d1e4b7c90")

// SessionIDFor returns a stable preview session id for a conversation, so
// the cache survives restarts. Unsaved drafts get a fresh id each time.
func SessionIDFor(chatID string) string {
	if chatID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(sessionNamespace, []byte(chatID)).String()
}
