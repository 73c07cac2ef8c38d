package postgres

import (
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// agreementModel holds one agent's agreement as a JSON document.
type agreementModel struct {
	UserID    string `gorm:"primaryKey;size:128"`
	Document  string `gorm:"type:text;not null"`
	Version   int64  `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (agreementModel) TableName() string { return "agreements" }

// saleModel is one row of the append-only sale ledger.
type saleModel struct {
	ID                string          `gorm:"primaryKey;size:64"`
	UserID            string          `gorm:"size:128;not null;index:idx_sales_user_date,priority:1;uniqueIndex:idx_sales_user_key,priority:1"`
	JourneyID         *string         `gorm:"size:64;index"`
	ClientName        string          `gorm:"size:255"`
	Category          string          `gorm:"size:32;not null"`
	Company           string          `gorm:"size:128"`
	ProductType       string          `gorm:"size:64"`
	SaleDate          time.Time       `gorm:"not null;index:idx_sales_user_date,priority:2"`
	Amount            decimal.Decimal `gorm:"type:numeric;not null"`
	ScopeCommission   decimal.Decimal `gorm:"type:numeric;not null"`
	MonthlyCommission decimal.Decimal `gorm:"type:numeric;not null"`
	TotalCommission   decimal.Decimal `gorm:"type:numeric;not null"`
	IdempotencyKey    *string         `gorm:"size:255;uniqueIndex:idx_sales_user_key,priority:2"`
	Contributed       bool            `gorm:"not null;default:false"`
	CreatedAt         time.Time
}

func (saleModel) TableName() string { return "sales" }

// performanceModel is one versioned goal counter.
type performanceModel struct {
	UserID       string          `gorm:"primaryKey;size:128;index:idx_performance_user_period,priority:1"`
	Category     string          `gorm:"primaryKey;size:64"`
	MetricType   string          `gorm:"primaryKey;size:32"`
	Year         int             `gorm:"primaryKey;autoIncrement:false;index:idx_performance_user_period,priority:2"`
	Month        int             `gorm:"primaryKey;autoIncrement:false;index:idx_performance_user_period,priority:3"`
	TargetAmount decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Performance  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Version      int64           `gorm:"not null"`
	UpdatedAt    time.Time
}

func (performanceModel) TableName() string { return "performance" }

// Migrate creates or updates the tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&agreementModel{}, &saleModel{}, &performanceModel{})
}

func toSaleModel(rec commission.SaleRecord) saleModel {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return saleModel{
		ID:                rec.ID,
		UserID:            rec.UserID,
		JourneyID:         optional(rec.JourneyID),
		ClientName:        rec.ClientName,
		Category:          string(rec.Category),
		Company:           rec.Company,
		ProductType:       rec.ProductType,
		SaleDate:          rec.Date.UTC(),
		Amount:            rec.Amount,
		ScopeCommission:   rec.Scope,
		MonthlyCommission: rec.Monthly,
		TotalCommission:   rec.Total,
		IdempotencyKey:    optional(rec.IdempotencyKey),
		Contributed:       rec.Contributed,
		CreatedAt:         createdAt.UTC(),
	}
}

func (m saleModel) record() commission.SaleRecord {
	return commission.SaleRecord{
		ID:             m.ID,
		UserID:         m.UserID,
		JourneyID:      deref(m.JourneyID),
		ClientName:     m.ClientName,
		Category:       commission.Category(m.Category),
		Company:        m.Company,
		ProductType:    m.ProductType,
		Date:           m.SaleDate.UTC(),
		Amount:         m.Amount,
		Scope:          m.ScopeCommission,
		Monthly:        m.MonthlyCommission,
		Total:          m.TotalCommission,
		IdempotencyKey: deref(m.IdempotencyKey),
		Contributed:    m.Contributed,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

func (m performanceModel) record() goals.PerformanceRecord {
	return goals.PerformanceRecord{
		Key: goals.PerformanceKey{
			UserID:     m.UserID,
			Category:   goals.TargetCategory(m.Category),
			Month:      m.Month,
			Year:       m.Year,
			MetricType: goals.MetricType(m.MetricType),
		},
		TargetAmount: m.TargetAmount,
		Performance:  m.Performance,
		Version:      m.Version,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
