/*
store.go - Persistence contracts consumed by the engine

PURPOSE:
  The engine never talks to a database. It consumes these interfaces, and
  the store packages implement them:

    RateStore: one AgentRateAgreement document per agent, opaque format.
    SaleStore: append-only sale records with per-agent idempotency keys.

  The performance-record contract lives in package goals next to the code
  that needs its compare-and-swap semantics.

ERRORS:
  Stores return already-classified failures: ErrDuplicateIdempotencyKey,
  ErrConcurrentModification, ErrNotFound, or a wrapped I/O error. Absence of
  an agreement is (nil, nil), not an error.

IMPLEMENTATIONS:
  - store/memory:   In-memory, for tests and development
  - store/sqlite:   database/sql + go-sqlite3, single-binary deployments
  - store/postgres: gorm, hosted deployments
*/
package commission

import (
	"context"
	"time"
)

// RateStore persists agreements keyed by user id.
type RateStore interface {
	// LoadAgreement returns nil, nil when the agent has no agreement yet.
	LoadAgreement(ctx context.Context, userID string) (*AgentRateAgreement, error)
	SaveAgreement(ctx context.Context, userID string, agreement AgentRateAgreement) error
}

// SaleStore persists sale records. No delete; the only update is the
// Contributed flag, which goes from false to true once.
type SaleStore interface {
	// AppendSale persists a record. Returns ErrDuplicateIdempotencyKey if the
	// agent already used the key. Keys are unique per agent, not globally.
	AppendSale(ctx context.Context, rec SaleRecord) error

	// LoadSales returns the agent's sales with Date in [from, to], ordered by Date.
	LoadSales(ctx context.Context, userID string, from, to time.Time) ([]SaleRecord, error)

	// FindSale returns the agent's sale recorded under a key, or nil, nil.
	FindSale(ctx context.Context, userID, idempotencyKey string) (*SaleRecord, error)

	// MarkContributed flags a sale as counted toward goals. Returns
	// ErrNotFound if the agent has no sale under the key.
	MarkContributed(ctx context.Context, userID, idempotencyKey string) error
}
