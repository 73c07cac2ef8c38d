/*
Package postgres provides a gorm-backed implementation of the storage interfaces.

PURPOSE:
  Hosted deployments keep agreements, the sale ledger and goal counters in
  PostgreSQL. The store only speaks gorm, so any gorm dialect works; tests
  run it against SQLite.

INTERFACES IMPLEMENTED:
  commission.RateStore, commission.SaleStore, goals.PerformanceStore

OPTIMISTIC CONCURRENCY:
  UpsertPerformance is a conditional UPDATE on (key, version). Zero rows
  affected means another writer won and the caller retries. Inserts at
  version 0 rely on the composite primary key; a duplicate-key error is
  reported as commission.ErrConcurrentModification.

USAGE:
  db, err := postgres.Open(os.Getenv("DATABASE_URL"))
  store, err := postgres.New(db)

SEE ALSO:
  - store/sqlite: database/sql implementation of the same contracts
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Store implements all storage interfaces on top of gorm.
type Store struct {
	db *gorm.DB
}

var (
	_ commission.RateStore   = (*Store)(nil)
	_ commission.SaleStore   = (*Store)(nil)
	_ goals.PerformanceStore = (*Store)(nil)
)

// Open connects to PostgreSQL with the given DSN.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// New wraps db and migrates the schema. Duplicate-key detection needs
// error translation, so it is switched on for db.
func New(db *gorm.DB) (*Store, error) {
	db.Config.TranslateError = true
	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// =============================================================================
// AGREEMENTS
// =============================================================================

func (s *Store) LoadAgreement(ctx context.Context, userID string) (*commission.AgentRateAgreement, error) {
	var m agreementModel
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load agreement: %w", err)
	}

	a := commission.NewAgreement(userID)
	if err := json.Unmarshal([]byte(m.Document), &a); err != nil {
		return nil, fmt.Errorf("failed to decode agreement: %w", err)
	}
	a.UserID = userID
	return &a, nil
}

func (s *Store) SaveAgreement(ctx context.Context, userID string, agreement commission.AgentRateAgreement) error {
	agreement.UserID = userID
	doc, err := json.Marshal(agreement)
	if err != nil {
		return fmt.Errorf("failed to encode agreement: %w", err)
	}

	m := agreementModel{UserID: userID, Document: string(doc), Version: 1}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"document":   m.Document,
			"version":    gorm.Expr("agreements.version + 1"),
			"updated_at": time.Now(),
		}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("failed to save agreement: %w", err)
	}
	return nil
}

// =============================================================================
// SALES
// =============================================================================

func (s *Store) AppendSale(ctx context.Context, rec commission.SaleRecord) error {
	m := toSaleModel(rec)
	err := s.db.WithContext(ctx).Create(&m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return commission.ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("failed to append sale: %w", err)
	}
	return nil
}

func (s *Store) LoadSales(ctx context.Context, userID string, from, to time.Time) ([]commission.SaleRecord, error) {
	var rows []saleModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND sale_date >= ? AND sale_date <= ?", userID, from.UTC(), to.UTC()).
		Order("sale_date ASC").Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}

	sales := make([]commission.SaleRecord, 0, len(rows))
	for _, m := range rows {
		sales = append(sales, m.record())
	}
	return sales, nil
}

func (s *Store) FindSale(ctx context.Context, userID, idempotencyKey string) (*commission.SaleRecord, error) {
	var m saleModel
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find sale: %w", err)
	}
	rec := m.record()
	return &rec, nil
}

// MarkContributed is the one update the ledger allows.
func (s *Store) MarkContributed(ctx context.Context, userID, idempotencyKey string) error {
	res := s.db.WithContext(ctx).Model(&saleModel{}).
		Where("user_id = ? AND idempotency_key = ?", userID, idempotencyKey).
		Update("contributed", true)
	if res.Error != nil {
		return fmt.Errorf("failed to mark sale contributed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return commission.ErrNotFound
	}
	return nil
}

// =============================================================================
// PERFORMANCE
// =============================================================================

func keyWhere(db *gorm.DB, k goals.PerformanceKey) *gorm.DB {
	return db.Where("user_id = ? AND category = ? AND month = ? AND year = ? AND metric_type = ?",
		k.UserID, string(k.Category), k.Month, k.Year, string(k.MetricType))
}

func (s *Store) ReadPerformance(ctx context.Context, key goals.PerformanceKey) (*goals.PerformanceRecord, error) {
	var m performanceModel
	err := keyWhere(s.db.WithContext(ctx), key).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read performance: %w", err)
	}
	rec := m.record()
	return &rec, nil
}

func (s *Store) UpsertPerformance(ctx context.Context, rec goals.PerformanceRecord, expectedVersion int64) error {
	k := rec.Key
	db := s.db.WithContext(ctx)

	if expectedVersion == 0 {
		m := performanceModel{
			UserID:       k.UserID,
			Category:     string(k.Category),
			MetricType:   string(k.MetricType),
			Year:         k.Year,
			Month:        k.Month,
			TargetAmount: rec.TargetAmount,
			Performance:  rec.Performance,
			Version:      1,
		}
		err := db.Create(&m).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return commission.ErrConcurrentModification
		}
		if err != nil {
			return fmt.Errorf("failed to insert performance: %w", err)
		}
		return nil
	}

	res := keyWhere(db.Model(&performanceModel{}), k).
		Where("version = ?", expectedVersion).
		Updates(map[string]interface{}{
			"target_amount": rec.TargetAmount,
			"performance":   rec.Performance,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update performance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return commission.ErrConcurrentModification
	}
	return nil
}

func (s *Store) ListPerformance(ctx context.Context, userID string, month, year int) ([]goals.PerformanceRecord, error) {
	q := s.db.WithContext(ctx).Where("user_id = ? AND year = ?", userID, year)
	if month != 0 {
		q = q.Where("month = ?", month)
	}

	var rows []performanceModel
	if err := q.Order("month ASC").Order("category ASC").Order("metric_type ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query performance: %w", err)
	}

	recs := make([]goals.PerformanceRecord, 0, len(rows))
	for _, m := range rows {
		recs = append(recs, m.record())
	}
	return recs, nil
}

func (s *Store) ResetPerformance(ctx context.Context, userID string, year int) (int, error) {
	res := s.db.WithContext(ctx).Model(&performanceModel{}).
		Where("user_id = ? AND year = ?", userID, year).
		Updates(map[string]interface{}{
			"performance": "0",
			"version":     gorm.Expr("version + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset performance: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
