package goals

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// YEARLY TARGET PLANNER
// =============================================================================

// MonthlyDistribution weights the base monthly target per calendar month
// (January first) for seasonality.
var MonthlyDistribution = [12]decimal.Decimal{
	decimal.RequireFromString("1"),
	decimal.RequireFromString("1.05"),
	decimal.RequireFromString("0.7"),
	decimal.RequireFromString("1.15"),
	decimal.RequireFromString("1"),
	decimal.RequireFromString("1.15"),
	decimal.RequireFromString("0.95"),
	decimal.RequireFromString("0.95"),
	decimal.RequireFromString("0.85"),
	decimal.RequireFromString("0.95"),
	decimal.RequireFromString("1.1"),
	decimal.RequireFromString("1.15"),
}

// PlanDefaults holds the base amount and share percentage used for a category
// when the agent has not customized them.
type PlanDefaults struct {
	BaseAmount decimal.Decimal
	Percentage decimal.Decimal
}

var DefaultPlan = map[TargetCategory]PlanDefaults{
	TargetRisks:                    {decimal.NewFromInt(500), hundred},
	TargetPension:                  {decimal.NewFromInt(400), hundred},
	TargetPensionTransfer:          {decimal.NewFromInt(450), hundred},
	TargetProvidentFund:            {decimal.NewFromInt(350), hundred},
	TargetFinanceTransfer:          {decimal.NewFromInt(300), hundred},
	TargetRegularDeposit:           {decimal.NewFromInt(350), hundred},
	TargetFinancialPlanning:        {decimal.NewFromInt(200), decimal.NewFromInt(35)},
	TargetFamilyEconomics:          {decimal.NewFromInt(150), decimal.NewFromInt(40)},
	TargetEmployment:               {decimal.NewFromInt(100), decimal.NewFromInt(35)},
	TargetBusinessConsulting:       {decimal.NewFromInt(120), decimal.NewFromInt(35)},
	TargetRetirement:               {decimal.NewFromInt(180), decimal.NewFromInt(35)},
	TargetOrganizationalRecruiting: {decimal.NewFromInt(250), decimal.NewFromInt(35)},
	TargetLoans:                    {decimal.NewFromInt(200), decimal.NewFromInt(35)},
}

// PlanInput drives MonthlyTargets. ClosingRate and Percentage are percents;
// a zero Percentage means 100.
type PlanInput struct {
	Category    TargetCategory  `json:"category"`
	BaseAmount  decimal.Decimal `json:"base_amount"`
	ClosingRate decimal.Decimal `json:"closing_rate"`
	Meetings    int             `json:"meetings"`
	Percentage  decimal.Decimal `json:"percentage"`
}

// WithDefaults fills BaseAmount and Percentage from DefaultPlan when unset.
func (in PlanInput) WithDefaults() PlanInput {
	def, ok := DefaultPlan[in.Category]
	if !ok {
		return in
	}
	if in.BaseAmount.IsZero() {
		in.BaseAmount = def.BaseAmount
	}
	if in.Percentage.IsZero() {
		in.Percentage = def.Percentage
	}
	return in
}

// MonthlyBase is base x closingRate% x meetings x percentage%, unrounded.
func MonthlyBase(in PlanInput) decimal.Decimal {
	pct := in.Percentage
	if pct.IsZero() {
		pct = hundred
	}
	return in.BaseAmount.
		Mul(in.ClosingRate.Div(hundred)).
		Mul(decimal.NewFromInt(int64(in.Meetings))).
		Mul(pct.Div(hundred))
}

// MonthlyTargets spreads MonthlyBase over the year, each month rounded to
// whole units.
func MonthlyTargets(in PlanInput) [12]decimal.Decimal {
	base := MonthlyBase(in)
	var out [12]decimal.Decimal
	for i, factor := range MonthlyDistribution {
		out[i] = base.Mul(factor).Round(0)
	}
	return out
}

// YearlyTarget sums the twelve monthly targets.
func YearlyTarget(targets [12]decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range targets {
		sum = sum.Add(t)
	}
	return sum
}

// PlanYear computes the year's monthly targets and stores each through SetGoal.
func (a *Aggregator) PlanYear(ctx context.Context, userID string, year int, in PlanInput) ([]PerformanceRecord, error) {
	if !in.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidKey, in.Category)
	}
	if in.Meetings < 0 || in.ClosingRate.IsNegative() || in.BaseAmount.IsNegative() {
		return nil, ErrNegativeTarget
	}

	targets := MonthlyTargets(in.WithDefaults())
	out := make([]PerformanceRecord, 0, len(targets))
	for i, target := range targets {
		rec, err := a.SetGoal(ctx, userID, in.Category, i+1, year, target)
		if err != nil {
			return out, fmt.Errorf("plan month %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}
