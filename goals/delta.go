package goals

import (
	"fmt"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/shopspring/decimal"
)

// MaxPerformance is the largest value a performance counter may hold.
var MaxPerformance = decimal.RequireFromString("9999999999.99")

// PerformanceDelta is one sale's contribution to a counter.
type PerformanceDelta struct {
	Key   PerformanceKey  `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// ApplyDelta adds delta to existing, rounded to 2 places.
// Returns ErrPerformanceOverflow if the result would exceed MaxPerformance.
func ApplyDelta(existing, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsNegative() {
		return existing, ErrNegativeDelta
	}
	candidate := existing.Add(delta).Round(2)
	if candidate.GreaterThan(MaxPerformance) {
		return existing, fmt.Errorf("%w: %s + %s", ErrPerformanceOverflow, existing.StringFixed(2), delta.StringFixed(2))
	}
	return candidate, nil
}

// =============================================================================
// SALE TO GOAL MAPPING
// =============================================================================

// goalMapping says which counter a sale category feeds.
type goalMapping struct {
	Category TargetCategory
	Metric   MetricType
}

var saleMappings = map[commission.Category]goalMapping{
	commission.CategoryPension:         {TargetPensionTransfer, MetricTransferAmount},
	commission.CategoryInsurance:       {TargetRisks, MetricPremiumAmount},
	commission.CategorySavingsAndStudy: {TargetProvidentFund, MetricDepositAmount},
	commission.CategoryPolicy:          {TargetFinanceTransfer, MetricTransferAmount},
}

// Contribute maps a sale onto its performance key and value. The value is the
// business volume of the sale, not the commission:
//
//	pension           -> pension-transfer / transfer_amount = accumulation
//	insurance         -> risks / premium_amount             = annual premium
//	savings_and_study -> provident-fund / deposit_amount    = amount
//	policy            -> finance-transfer / transfer_amount = amount
//
// Month and year come from the sale date.
func Contribute(sale commission.Sale) (PerformanceDelta, error) {
	if sale.Input == nil {
		return PerformanceDelta{}, commission.ErrMissingInput
	}
	m, ok := saleMappings[sale.Category()]
	if !ok {
		return PerformanceDelta{}, fmt.Errorf("%w: %q", ErrNoGoalMapping, sale.Category())
	}

	var value decimal.Decimal
	switch in := sale.Input.(type) {
	case commission.PensionInput:
		value = in.Accumulation
	default:
		value = in.SaleAmount()
	}

	key := PerformanceKey{
		UserID:     sale.UserID,
		Category:   m.Category,
		Month:      int(sale.Date.Month()),
		Year:       sale.Date.Year(),
		MetricType: m.Metric,
	}
	if err := key.Validate(); err != nil {
		return PerformanceDelta{}, err
	}
	return PerformanceDelta{Key: key, Value: value}, nil
}
