package cache

import (
	"context"
	"time"

	"github.com/scriptorlabs/corrigo/pkg/corrections"
	"github.com/scriptorlabs/corrigo/pkg/fingerprint"
)

// Store defines the interface for caching proposed corrections.
type Store interface {
	// Get retrieves a live entry by fingerprint.
	Get(ctx context.Context, fp fingerprint.Fingerprint) (Entry, bool, error)

	// Put stores a correction with the given TTL and returns the
	// written entry.
	Put(ctx context.Context, fp fingerprint.Fingerprint, c corrections.Correction, ttl time.Duration) (Entry, error)

	// Delete removes a cached entry by fingerprint.
	Delete(ctx context.Context, fp fingerprint.Fingerprint) error

	// Clear removes all cached entries.
	Clear(ctx context.Context) error

	// Stats returns cache statistics.
	Stats() Stats

	// Close releases any resources held by the store.
	Close() error
}

// Entry represents a cached correction. Entries are immutable once
// written; a refresh replaces the whole entry.
type Entry struct {
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
	Correction  corrections.Correction  `json:"correction"`
	CreatedAt   time.Time               `json:"created_at"`
	ExpiresAt   time.Time               `json:"expires_at"`
}

// Expired checks if the entry has passed its expiry.
func (e Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Stats contains cache performance statistics.
type Stats struct {
	Hits       int64     `json:"hits"`
	Misses     int64     `json:"misses"`
	Sets       int64     `json:"sets"`
	Deletes    int64     `json:"deletes"`
	Entries    int64     `json:"entries"`
	MaxEntries int64     `json:"max_entries"`
	LastAccess time.Time `json:"last_access"`
}

// Config holds cache configuration.
type Config struct {
	// Maximum number of entries (0 = unbounded). When the bound is
	// exceeded the least-recently-used entry is evicted first.
	MaxEntries int `json:"max_entries" yaml:"max_entries"`

	// Default TTL for entries written without an explicit TTL
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// Cleanup interval for the expired-entry sweep
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`
}
