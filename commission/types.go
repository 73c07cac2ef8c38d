/*
Package commission provides the commission calculation engine.

PURPOSE:
  Turns a sale event (pension, insurance, savings/study or policy product) into
  scope ("one-time") and recurring ("monthly"/nifraim) commission amounts, either
  from an agent's negotiated rate agreement or from fixed calculator constants.

KEY CONCEPTS IN THIS FILE (types.go):
  - Category:         Product family of a sale (pension, insurance, ...)
  - Mode:             Simple (fixed constants) or Agreement (rate schedule driven)
  - CommissionResult: Immutable output of one calculation
  - Sale:             A completed sale with its inputs and calculated result

DESIGN PRINCIPLES:
  1. Purity: calculators take values and return values. No I/O, no logging.
  2. Precision: every amount is a decimal.Decimal, rounded at named steps only.
  3. Soft absence: a missing or inactive rate is a zero result, never an error.

USAGE:
  result, err := commission.Calculate(commission.ModeSimple, "", commission.PensionInput{
      Salary:         commission.Money(10000),
      ProvisionRate:  commission.Money(20),
      CommissionRate: commission.Money(7),
      Accumulation:   commission.Money(500000),
  }, nil)
  // result.ScopeCommission == 1680, result.AccumulationCommission == 150

SEE ALSO:
  - schema.go: AgentRateAgreement, the per-agent rate document
  - resolver.go: Rate lookup over the agreement
  - agreement.go / simple.go: The two calculation modes
*/
package commission

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - decimal helpers
// =============================================================================

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
	million = decimal.NewFromInt(1_000_000)
)

// Money builds a decimal from a float literal. Intended for constants and tests.
func Money(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

// MustParseMoney parses a decimal string, returning zero on malformed input.
func MustParseMoney(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RoundUnit rounds to the nearest whole currency unit (half away from zero).
func RoundUnit(d decimal.Decimal) decimal.Decimal { return d.Round(0) }

func percentOf(d decimal.Decimal) decimal.Decimal { return d.Div(hundred) }

// =============================================================================
// CATEGORY & MODE
// =============================================================================

type Category string

const (
	CategoryPension         Category = "pension"
	CategoryInsurance       Category = "insurance"
	CategorySavingsAndStudy Category = "savings_and_study"
	CategoryPolicy          Category = "policy"
)

// Categories lists every category in presentation order.
var Categories = []Category{
	CategoryPension,
	CategoryInsurance,
	CategorySavingsAndStudy,
	CategoryPolicy,
}

func (c Category) Valid() bool {
	switch c {
	case CategoryPension, CategoryInsurance, CategorySavingsAndStudy, CategoryPolicy:
		return true
	}
	return false
}

// Rank is the category's position in Categories, or len(Categories) if unknown.
func (c Category) Rank() int {
	for i, k := range Categories {
		if k == c {
			return i
		}
	}
	return len(Categories)
}

// HebrewName is the product family label shown to agents.
func (c Category) HebrewName() string {
	switch c {
	case CategoryPension:
		return "פנסיה"
	case CategoryInsurance:
		return "ביטוח"
	case CategorySavingsAndStudy:
		return "גמל והשתלמות"
	case CategoryPolicy:
		return "פוליסות"
	}
	return string(c)
}

// Mode selects which calculator family handles a sale.
type Mode string

const (
	// ModeSimple uses fixed multipliers and constants, no rate lookup.
	ModeSimple Mode = "simple"
	// ModeAgreement resolves rates from the agent's AgentRateAgreement.
	ModeAgreement Mode = "agreement"
)

func (m Mode) Valid() bool { return m == ModeSimple || m == ModeAgreement }

// =============================================================================
// COMMISSION RESULT - produced fresh per calculation, never mutated
// =============================================================================

type Explanation struct {
	Scope   string `json:"scope"`
	Monthly string `json:"monthly"`
}

type CommissionResult struct {
	Category          Category        `json:"category"`
	Company           string          `json:"company,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	ScopeCommission   decimal.Decimal `json:"scope_commission"`
	MonthlyCommission decimal.Decimal `json:"monthly_commission"`
	// AccumulationCommission is set for pension only. In agreement mode it is
	// also reported as MonthlyCommission.
	AccumulationCommission decimal.Decimal `json:"accumulation_commission"`
	TotalCommission        decimal.Decimal `json:"total_commission"`
	Explanation            Explanation     `json:"explanation"`
}

// IsZero reports whether the calculation produced no commission at all, which
// callers use to prompt the agent to configure rates.
func (r CommissionResult) IsZero() bool {
	return r.ScopeCommission.IsZero() && r.MonthlyCommission.IsZero() &&
		r.AccumulationCommission.IsZero() && r.TotalCommission.IsZero()
}

// Recurring returns the annualized recurring part of the result: the pension
// accumulation commission, or monthly x 12 for insurance and savings products.
func (r CommissionResult) Recurring() decimal.Decimal {
	switch r.Category {
	case CategoryPension:
		return r.AccumulationCommission
	case CategoryInsurance, CategorySavingsAndStudy:
		return r.MonthlyCommission.Mul(twelve)
	}
	return decimal.Zero
}

// =============================================================================
// SALE - a completed sale event
// =============================================================================

type Sale struct {
	ID         string
	UserID     string
	ClientName string
	Company    string
	Date       time.Time
	Input      SaleInput
	Result     CommissionResult
}

func (s Sale) Category() Category {
	if s.Input == nil {
		return s.Result.Category
	}
	return s.Input.Category()
}
