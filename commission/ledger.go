/*
ledger.go - Append-only sales ledger

PURPOSE:
  Every sale closed during a customer journey is recorded once, with the
  numeric fields of its CommissionResult copied in. The CommissionResult
  itself is never persisted.

INVARIANTS:
  1. APPEND-ONLY: records are never deleted. The Contributed flag is the
     one field that changes, from false to true, after goal contribution
  2. IDEMPOTENT: an agent's idempotency key records at most one sale, so a
     retried journey does not double count goal contributions
  3. Keys are scoped per agent: two agents may use the same key

SEE ALSO:
  - store.go: SaleStore contract
  - journey/orchestrator.go: Records sales before contributing to goals
*/
package commission

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SaleRecord struct {
	ID             string
	UserID         string
	JourneyID      string
	ClientName     string
	Category       Category
	Company        string
	ProductType    string
	Date           time.Time
	Amount         decimal.Decimal
	Scope          decimal.Decimal
	Monthly        decimal.Decimal
	Total          decimal.Decimal
	IdempotencyKey string
	// Contributed is set once the sale has been counted toward goals.
	Contributed bool
	CreatedAt   time.Time
}

// NewSaleRecord copies the numeric fields of a calculated sale.
func NewSaleRecord(s Sale, journeyID, idempotencyKey string) SaleRecord {
	return SaleRecord{
		ID:             s.ID,
		UserID:         s.UserID,
		JourneyID:      journeyID,
		ClientName:     s.ClientName,
		Category:       s.Category(),
		Company:        s.Company,
		ProductType:    ProductTypeOf(s.Input),
		Date:           s.Date,
		Amount:         s.Result.Amount,
		Scope:          s.Result.ScopeCommission,
		Monthly:        s.Result.MonthlyCommission,
		Total:          s.Result.TotalCommission,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      time.Now().UTC(),
	}
}

// ProductTypeOf returns the product/insurance type carried by an input, if any.
func ProductTypeOf(in SaleInput) string {
	switch v := in.(type) {
	case InsuranceInput:
		return v.InsuranceType
	case SavingsInput:
		return v.ProductType
	case PolicyInput:
		return v.ProductType
	}
	return ""
}

// =============================================================================
// LEDGER
// =============================================================================

type Ledger struct {
	Store SaleStore
}

func NewLedger(store SaleStore) *Ledger {
	return &Ledger{Store: store}
}

// Record appends a sale. Returns ErrDuplicateIdempotencyKey for a replay.
func (l *Ledger) Record(ctx context.Context, rec SaleRecord) error {
	if rec.IdempotencyKey != "" {
		existing, err := l.Store.FindSale(ctx, rec.UserID, rec.IdempotencyKey)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateIdempotencyKey
		}
	}
	return l.Store.AppendSale(ctx, rec)
}

// Find returns the agent's sale recorded under a key, or nil, nil.
func (l *Ledger) Find(ctx context.Context, userID, idempotencyKey string) (*SaleRecord, error) {
	return l.Store.FindSale(ctx, userID, idempotencyKey)
}

func (l *Ledger) MarkContributed(ctx context.Context, userID, idempotencyKey string) error {
	return l.Store.MarkContributed(ctx, userID, idempotencyKey)
}

func (l *Ledger) Sales(ctx context.Context, userID string, from, to time.Time) ([]SaleRecord, error) {
	return l.Store.LoadSales(ctx, userID, from, to)
}

// CategoryTotals sums recorded totals per category for a date range.
type CategoryTotals struct {
	Count int
	Scope decimal.Decimal
	Total decimal.Decimal
}

// Report sums the agent's sales in [from, to] per category.
func (l *Ledger) Report(ctx context.Context, userID string, from, to time.Time) (map[Category]CategoryTotals, error) {
	recs, err := l.Store.LoadSales(ctx, userID, from, to)
	if err != nil {
		return nil, err
	}
	out := make(map[Category]CategoryTotals)
	for _, r := range recs {
		t := out[r.Category]
		t.Count++
		t.Scope = t.Scope.Add(r.Scope)
		t.Total = t.Total.Add(r.Total)
		out[r.Category] = t
	}
	return out, nil
}
