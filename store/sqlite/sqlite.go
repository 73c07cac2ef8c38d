/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence contract the engine consumes using SQLite,
  for single-binary deployments and local development.

INTERFACES IMPLEMENTED:
  commission.RateStore:   One agreement document per agent
  commission.SaleStore:   Append-only sale ledger
  goals.PerformanceStore: Versioned performance counters

APPEND-ONLY ENFORCEMENT:
  Sales are never deleted. The only update flips the contributed flag
  once the sale has been counted toward goals. A replayed sale is
  rejected by the UNIQUE (user_id, idempotency_key) constraint.

KEY TABLES:
  agreements:  JSON agreement document per user, versioned on every save
  sales:       Sale ledger, unique per (user_id, idempotency_key)
  performance: target + performance per (user, category, month, year, metric)

OPTIMISTIC CONCURRENCY:
  performance rows carry a version column. UpsertPerformance inserts when
  the expected version is 0 and otherwise runs
      UPDATE ... WHERE <key> AND version = ?
  and reports commission.ErrConcurrentModification when no row matched.
  The check lives in the database, so it holds across processes sharing
  the file, not only within this one.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/commissions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  ledger := commission.NewLedger(store)
  aggregator := goals.NewAggregator(store, logger)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - commission/store.go: RateStore, SaleStore
  - goals/store.go:      PerformanceStore
  - store/memory:        In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// timeLayout is fixed width so stored dates sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ commission.RateStore   = (*Store)(nil)
	_ commission.SaleStore   = (*Store)(nil)
	_ goals.PerformanceStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Agreements (one JSON document per agent)
	CREATE TABLE IF NOT EXISTS agreements (
		user_id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Sales (append-only ledger)
	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		journey_id TEXT,
		client_name TEXT,
		category TEXT NOT NULL,
		company TEXT,
		product_type TEXT,
		sale_date TEXT NOT NULL,
		amount TEXT NOT NULL,
		scope_commission TEXT NOT NULL,
		monthly_commission TEXT NOT NULL,
		total_commission TEXT NOT NULL,
		idempotency_key TEXT,
		contributed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		UNIQUE (user_id, idempotency_key)
	);

	CREATE INDEX IF NOT EXISTS idx_sales_user_date
		ON sales(user_id, sale_date);
	CREATE INDEX IF NOT EXISTS idx_sales_journey
		ON sales(journey_id) WHERE journey_id IS NOT NULL;

	-- Performance counters (versioned for compare-and-swap)
	CREATE TABLE IF NOT EXISTS performance (
		user_id TEXT NOT NULL,
		category TEXT NOT NULL,
		month INTEGER NOT NULL,
		year INTEGER NOT NULL,
		metric_type TEXT NOT NULL,
		target_amount TEXT NOT NULL DEFAULT '0',
		performance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (user_id, category, month, year, metric_type)
	);

	CREATE INDEX IF NOT EXISTS idx_performance_user_period
		ON performance(user_id, year, month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// AGREEMENTS (commission.RateStore interface)
// =============================================================================

// LoadAgreement returns the agent's agreement, or nil if none is stored.
func (s *Store) LoadAgreement(ctx context.Context, userID string) (*commission.AgentRateAgreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var doc string
	err := s.db.QueryRowContext(ctx,
		"SELECT document FROM agreements WHERE user_id = ?", userID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load agreement: %w", err)
	}

	a := commission.NewAgreement(userID)
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		return nil, fmt.Errorf("failed to decode agreement: %w", err)
	}
	a.UserID = userID
	return &a, nil
}

// SaveAgreement replaces the agent's agreement document.
func (s *Store) SaveAgreement(ctx context.Context, userID string, agreement commission.AgentRateAgreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agreement.UserID = userID
	doc, err := json.Marshal(agreement)
	if err != nil {
		return fmt.Errorf("failed to encode agreement: %w", err)
	}

	query := `
		INSERT INTO agreements (user_id, document, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			document = excluded.document,
			version = agreements.version + 1,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, userID, string(doc), now, now); err != nil {
		return fmt.Errorf("failed to save agreement: %w", err)
	}
	return nil
}

// =============================================================================
// SALES (commission.SaleStore interface)
// =============================================================================

// AppendSale adds a sale to the ledger.
func (s *Store) AppendSale(ctx context.Context, rec commission.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO sales
		(id, user_id, journey_id, client_name, category, company, product_type, sale_date,
		 amount, scope_commission, monthly_commission, total_commission, idempotency_key, contributed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		nullString(rec.JourneyID),
		rec.ClientName,
		string(rec.Category),
		rec.Company,
		rec.ProductType,
		rec.Date.UTC().Format(timeLayout),
		rec.Amount.String(),
		rec.Scope.String(),
		rec.Monthly.String(),
		rec.Total.String(),
		nullString(rec.IdempotencyKey),
		rec.Contributed,
		createdAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return commission.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append sale: %w", err)
	}
	return nil
}

// LoadSales returns the agent's sales with sale_date in [from, to].
func (s *Store) LoadSales(ctx context.Context, userID string, from, to time.Time) ([]commission.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE user_id = ? AND sale_date >= ? AND sale_date <= ?
		ORDER BY sale_date ASC, created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, userID,
		from.UTC().Format(timeLayout), to.UTC().Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []commission.SaleRecord
	for rows.Next() {
		rec, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		sales = append(sales, rec)
	}
	return sales, rows.Err()
}

// FindSale returns the agent's sale recorded under idempotencyKey, or nil.
func (s *Store) FindSale(ctx context.Context, userID, idempotencyKey string) (*commission.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+saleColumns+" FROM sales WHERE user_id = ? AND idempotency_key = ?",
		userID, idempotencyKey,
	)
	rec, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// MarkContributed sets the contributed flag on the agent's keyed sale.
func (s *Store) MarkContributed(ctx context.Context, userID, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE sales SET contributed = 1 WHERE user_id = ? AND idempotency_key = ?",
		userID, idempotencyKey,
	)
	if err != nil {
		return fmt.Errorf("failed to mark sale contributed: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark sale contributed: %w", err)
	}
	if n == 0 {
		return commission.ErrNotFound
	}
	return nil
}

const saleColumns = `id, user_id, journey_id, client_name, category, company, product_type, sale_date,
		       amount, scope_commission, monthly_commission, total_commission, idempotency_key, contributed, created_at`

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(rows rowScanner) (commission.SaleRecord, error) {
	var (
		rec            commission.SaleRecord
		journeyID      sql.NullString
		category       string
		saleDate       string
		amount         string
		scope          string
		monthly        string
		total          string
		idempotencyKey sql.NullString
		contributed    bool
		createdAt      string
	)

	err := rows.Scan(
		&rec.ID, &rec.UserID, &journeyID, &rec.ClientName, &category, &rec.Company, &rec.ProductType,
		&saleDate, &amount, &scope, &monthly, &total, &idempotencyKey, &contributed, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, err
	}
	if err != nil {
		return rec, fmt.Errorf("failed to scan sale: %w", err)
	}

	rec.JourneyID = journeyID.String
	rec.Category = commission.Category(category)
	rec.Date, _ = time.Parse(timeLayout, saleDate)
	rec.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	rec.Amount = parseDecimal(amount)
	rec.Scope = parseDecimal(scope)
	rec.Monthly = parseDecimal(monthly)
	rec.Total = parseDecimal(total)
	rec.IdempotencyKey = idempotencyKey.String
	rec.Contributed = contributed
	return rec, nil
}

// =============================================================================
// PERFORMANCE (goals.PerformanceStore interface)
// =============================================================================

// ReadPerformance returns the counter at key, or nil if it does not exist.
func (s *Store) ReadPerformance(ctx context.Context, key goals.PerformanceKey) (*goals.PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var target, performance string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT target_amount, performance, version FROM performance
		 WHERE user_id = ? AND category = ? AND month = ? AND year = ? AND metric_type = ?`,
		key.UserID, string(key.Category), key.Month, key.Year, string(key.MetricType),
	).Scan(&target, &performance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read performance: %w", err)
	}

	return &goals.PerformanceRecord{
		Key:          key,
		TargetAmount: parseDecimal(target),
		Performance:  parseDecimal(performance),
		Version:      version,
	}, nil
}

// UpsertPerformance writes rec if the stored version equals expectedVersion.
func (s *Store) UpsertPerformance(ctx context.Context, rec goals.PerformanceRecord, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := rec.Key
	now := time.Now().UTC().Format(time.RFC3339)

	if expectedVersion == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO performance
			(user_id, category, month, year, metric_type, target_amount, performance, version, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?)`,
			k.UserID, string(k.Category), k.Month, k.Year, string(k.MetricType),
			rec.TargetAmount.String(), rec.Performance.String(), now,
		)
		if isUniqueConstraintError(err) {
			return commission.ErrConcurrentModification
		}
		if err != nil {
			return fmt.Errorf("failed to insert performance: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE performance
		SET target_amount = ?, performance = ?, version = version + 1, updated_at = ?
		WHERE user_id = ? AND category = ? AND month = ? AND year = ? AND metric_type = ?
		  AND version = ?`,
		rec.TargetAmount.String(), rec.Performance.String(), now,
		k.UserID, string(k.Category), k.Month, k.Year, string(k.MetricType),
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update performance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update performance: %w", err)
	}
	if n == 0 {
		return commission.ErrConcurrentModification
	}
	return nil
}

// ListPerformance returns the user's counters for a month (or the whole year
// when month is 0), ordered by month, category and metric.
func (s *Store) ListPerformance(ctx context.Context, userID string, month, year int) ([]goals.PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT user_id, category, month, year, metric_type, target_amount, performance, version
		FROM performance
		WHERE user_id = ? AND year = ? AND (? = 0 OR month = ?)
		ORDER BY month ASC, category ASC, metric_type ASC
	`
	rows, err := s.db.QueryContext(ctx, query, userID, year, month, month)
	if err != nil {
		return nil, fmt.Errorf("failed to query performance: %w", err)
	}
	defer rows.Close()

	var recs []goals.PerformanceRecord
	for rows.Next() {
		var (
			rec                 goals.PerformanceRecord
			category, metric    string
			target, performance string
		)
		if err := rows.Scan(&rec.Key.UserID, &category, &rec.Key.Month, &rec.Key.Year, &metric,
			&target, &performance, &rec.Version); err != nil {
			return nil, fmt.Errorf("failed to scan performance: %w", err)
		}
		rec.Key.Category = goals.TargetCategory(category)
		rec.Key.MetricType = goals.MetricType(metric)
		rec.TargetAmount = parseDecimal(target)
		rec.Performance = parseDecimal(performance)
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ResetPerformance zeroes performance for every counter of the year.
func (s *Store) ResetPerformance(ctx context.Context, userID string, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE performance
		SET performance = '0', version = version + 1, updated_at = ?
		WHERE user_id = ? AND year = ?`,
		time.Now().UTC().Format(time.RFC3339), userID, year,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to reset performance: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
