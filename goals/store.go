package goals

import (
	"context"
)

// PerformanceStore persists performance records with optimistic concurrency.
//
// Implementations: store/memory, store/sqlite, store/postgres, store/redis.
// Every one of them must make UpsertPerformance a conditional write; the
// aggregator relies on it instead of serial access.
type PerformanceStore interface {
	// ReadPerformance returns nil, nil when the key has no record yet.
	ReadPerformance(ctx context.Context, key PerformanceKey) (*PerformanceRecord, error)

	// UpsertPerformance writes rec if the stored version still equals
	// expectedVersion (0 = must not exist yet), storing expectedVersion+1.
	// Returns commission.ErrConcurrentModification otherwise.
	UpsertPerformance(ctx context.Context, rec PerformanceRecord, expectedVersion int64) error

	// ListPerformance returns the user's records for a month of a year, or
	// for the whole year when month is 0.
	ListPerformance(ctx context.Context, userID string, month, year int) ([]PerformanceRecord, error)

	// ResetPerformance sets performance to 0 for every record of the year,
	// leaving targets alone and bumping each version. Returns the number of
	// records touched.
	ResetPerformance(ctx context.Context, userID string, year int) (int, error)
}
