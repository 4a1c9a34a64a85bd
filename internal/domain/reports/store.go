package reports

import (
	"context"
	"encoding/json"
	"time"
)

// Cache namespaces, one document each.
const (
	NamespaceOverview = "overview"
	NamespaceAnalysis = "analysis"
)

// DocumentStore persists one cache namespace.
type DocumentStore interface {
	// Namespace returns the namespace served by the store.
	Namespace() string

	// Load returns the whole document. A missing or unreadable document is
	// logged and returned as empty; Load never fails.
	Load(ctx context.Context) Document

	// Merge upserts entries without losing keys written concurrently by
	// other refreshes.
	Merge(ctx context.Context, entries Document) error

	// Prune deletes every entry for which stale returns true and reports how
	// many were removed.
	Prune(ctx context.Context, stale func(key string, raw json.RawMessage) bool) (int, error)
}

// StalePolicy decides whether a cached entry should be dropped by clean-cache.
// lastUpdated is nil when the entry carries no timestamp.
type StalePolicy interface {
	IsStale(key string, lastUpdated *time.Time, now time.Time) (bool, error)
}

// MaxAgePolicy drops timestamped entries older than the given age.
type MaxAgePolicy time.Duration

// DefaultMaxAge is the clean-cache retention.
const DefaultMaxAge = MaxAgePolicy(30 * 24 * time.Hour)

// IsStale implements StalePolicy.
func (p MaxAgePolicy) IsStale(_ string, lastUpdated *time.Time, now time.Time) (bool, error) {
	if lastUpdated == nil {
		return false, nil
	}
	return now.Sub(*lastUpdated) > time.Duration(p), nil
}

// entryTimestamp extracts last_updated from a cached object, if any.
func entryTimestamp(raw json.RawMessage) *time.Time {
	var stamp struct {
		LastUpdated *time.Time `json:"last_updated"`
	}
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return nil
	}
	return stamp.LastUpdated
}
