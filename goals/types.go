/*
Package goals tracks an agent's monthly sales targets and achieved performance.

PURPOSE:
  Every completed sale is also progress toward a goal. This package maps a
  sale onto a performance key, adds its value to the cumulative performance
  under optimistic concurrency, and reports achievement against targets.

KEY CONCEPTS IN THIS FILE (types.go):
  - TargetCategory:    Goal bucket ("pension-transfer", "risks", ...)
  - MetricType:        What a performance value measures ("transfer_amount", ...)
  - PerformanceKey:    (user, category, month, year, metric)
  - PerformanceRecord: target + cumulative performance + version stamp
  - Achievement:       target vs achieved for one category in one month

PERFORMANCE IS A COUNTER:
  performance only grows. It is never recomputed from the sales ledger and
  never decreases, except through ResetYearly, which zeroes a whole year.
  It is capped at MaxPerformance; a contribution that would exceed the cap is
  rejected and reported as overflow, leaving the stored value untouched.

SEE ALSO:
  - delta.go:      Sale to key mapping, ApplyDelta
  - aggregator.go: Compare-and-swap loop, goals, achievements, reset
  - planner.go:    Yearly target distribution
  - store.go:      PerformanceStore contract
*/
package goals

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TARGET CATEGORIES
// =============================================================================

type TargetCategory string

const (
	TargetRisks                    TargetCategory = "risks"
	TargetPension                  TargetCategory = "pension"
	TargetPensionTransfer          TargetCategory = "pension-transfer"
	TargetProvidentFund            TargetCategory = "provident-fund"
	TargetFinanceTransfer          TargetCategory = "finance-transfer"
	TargetRegularDeposit           TargetCategory = "regular-deposit"
	TargetFinancialPlanning        TargetCategory = "financial-planning"
	TargetFamilyEconomics          TargetCategory = "family-economics"
	TargetEmployment               TargetCategory = "employment"
	TargetBusinessConsulting       TargetCategory = "business-consulting"
	TargetRetirement               TargetCategory = "retirement"
	TargetOrganizationalRecruiting TargetCategory = "organizational-recruitment"
	TargetLoans                    TargetCategory = "loans"
)

// TargetCategories lists every goal bucket in dashboard order.
var TargetCategories = []TargetCategory{
	TargetRisks,
	TargetPension,
	TargetPensionTransfer,
	TargetProvidentFund,
	TargetFinanceTransfer,
	TargetRegularDeposit,
	TargetFinancialPlanning,
	TargetFamilyEconomics,
	TargetEmployment,
	TargetBusinessConsulting,
	TargetRetirement,
	TargetOrganizationalRecruiting,
	TargetLoans,
}

func (c TargetCategory) Valid() bool {
	for _, t := range TargetCategories {
		if t == c {
			return true
		}
	}
	return false
}

// =============================================================================
// METRICS
// =============================================================================

type MetricType string

const (
	MetricTransferAmount MetricType = "transfer_amount"
	MetricPremiumAmount  MetricType = "premium_amount"
	MetricDepositAmount  MetricType = "deposit_amount"
	MetricAmount         MetricType = "amount"
)

// DefaultMetric is the metric a goal is set on when the caller does not name
// one. It matches the metric sales contribute to for that category.
func DefaultMetric(c TargetCategory) MetricType {
	switch c {
	case TargetPensionTransfer, TargetFinanceTransfer:
		return MetricTransferAmount
	case TargetRisks:
		return MetricPremiumAmount
	case TargetProvidentFund:
		return MetricDepositAmount
	}
	return MetricAmount
}

// =============================================================================
// RECORDS
// =============================================================================

// PerformanceKey identifies one performance counter.
type PerformanceKey struct {
	UserID     string         `json:"user_id"`
	Category   TargetCategory `json:"category"`
	Month      int            `json:"month"`
	Year       int            `json:"year"`
	MetricType MetricType     `json:"metric_type"`
}

func (k PerformanceKey) String() string {
	return fmt.Sprintf("%s/%s/%04d-%02d/%s", k.UserID, k.Category, k.Year, k.Month, k.MetricType)
}

// Validate rejects keys no store should ever hold.
func (k PerformanceKey) Validate() error {
	switch {
	case k.UserID == "":
		return fmt.Errorf("%w: empty user id", ErrInvalidKey)
	case !k.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidKey, k.Category)
	case k.Month < 1 || k.Month > 12:
		return fmt.Errorf("%w: month %d out of range", ErrInvalidKey, k.Month)
	case k.Year < 1:
		return fmt.Errorf("%w: year %d out of range", ErrInvalidKey, k.Year)
	case k.MetricType == "":
		return fmt.Errorf("%w: empty metric type", ErrInvalidKey)
	}
	return nil
}

// PerformanceRecord is one counter with its target.
//
// Version is the compare-and-swap stamp: 0 means "not stored yet", and each
// successful upsert stores Version+1.
type PerformanceRecord struct {
	Key          PerformanceKey  `json:"key"`
	TargetAmount decimal.Decimal `json:"target_amount"`
	Performance  decimal.Decimal `json:"performance"`
	Version      int64           `json:"version"`
}

// Achievement compares a category's achieved performance with its target.
type Achievement struct {
	Target     decimal.Decimal `json:"target"`
	Achieved   decimal.Decimal `json:"achieved"`
	Percentage decimal.Decimal `json:"percentage"`
}
