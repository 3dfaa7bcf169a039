package cache

import (
	"time"
)

// Cache is a keyed store with per-entry expiry
type Cache[V any] interface {
	// Get returns a live entry
	Get(key string) (V, bool)

	// Set stores value with the default TTL
	Set(key string, value V)

	// SetWithTTL stores value with a custom TTL; zero never expires
	SetWithTTL(key string, value V, ttl time.Duration)

	// Delete removes key
	Delete(key string)

	// Clear removes every key with prefix
	Clear(prefix string)

	// Purge removes expired entries
	Purge()

	Len() int
	Stats() Stats
	Close() error
}

// Stats counts cache traffic
type Stats struct {
	Hits        int64     `json:"hits"`
	Misses      int64     `json:"misses"`
	Evictions   int64     `json:"evictions"`
	Size        int       `json:"size"`
	MaxSize     int       `json:"max_size"`
	HitRate     float64   `json:"hit_rate"`
	LastCleanup time.Time `json:"last_cleanup"`
}

// Config sizes a cache. A zero CleanupPeriod disables the background sweep;
// expired entries are then dropped lazily on access.
type Config struct {
	MaxSize       int           `json:"max_size" yaml:"max_size"`
	DefaultTTL    time.Duration `json:"default_ttl" yaml:"default_ttl"`
	CleanupPeriod time.Duration `json:"cleanup_period" yaml:"cleanup_period"`
}

// DefaultConfig keeps 64 entries for 30 seconds
func DefaultConfig() Config {
	return Config{
		MaxSize:       64,
		DefaultTTL:    30 * time.Second,
		CleanupPeriod: time.Minute,
	}
}
