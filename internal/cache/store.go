// Package cache persists previously computed nutrition inferences
// keyed by query fingerprint ("Smart Saver").
package cache

import (
	"context"
	"strings"

	"github.com/nutrilog-ai/nutrilog/internal/model"
)

// Store defines the persistence interface for cached nutrition records.
type Store interface {
	// Get returns the record for a fingerprint, or nil when absent.
	// A hit increments hit_count and refreshes last_used_at as a side
	// effect; the returned record reflects the bumped values.
	Get(ctx context.Context, fingerprint string) (*model.CachedRecord, error)

	// Put upserts a record by fingerprint. An existing record's payload
	// is fully replaced and its hit bookkeeping reset (hit_count = 1,
	// both timestamps set to now).
	Put(ctx context.Context, rec *model.CachedRecord) error

	// FindSimilar performs a best-effort fuzzy search over the stored
	// normalized-text field, ordered by descending hit_count with a
	// deterministic tie-break (last_used_at, then fingerprint).
	FindSimilar(ctx context.Context, textQuery string, limit int) ([]model.CachedRecord, error)

	// Stats reports aggregate cache contents for telemetry.
	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries   int64 `json:"entries"`
	TotalHits int64 `json:"total_hits"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralizes LIKE wildcards in a search term. Underscore in
// particular survives normalization and would otherwise match any
// single character. Patterns built from the result must carry
// ESCAPE '\'.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
