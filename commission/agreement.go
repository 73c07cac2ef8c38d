/*
agreement.go - Agreement-mode calculators

PURPOSE:
  One function per category. Each resolves the agent's rate for the sale's
  company (and product), then applies the category formula. Used by the
  customer-journey and report flows.

ROUNDING ORDER:
  Per-period values are rounded to whole currency units at each named step
  (scope, monthly premium, monthly, accumulation) and only then combined.
  annual = monthly x 12 uses the ROUNDED monthly. Results are not
  rounding-associative, so the step order below is part of the contract.

ABSENT RATES:
  No agreement, inactive company or unknown product returns a zero result
  whose explanation says no rate was found. Only the pension range checks
  return errors.
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// NoRatesExplanation marks a zero result caused by missing configuration.
const NoRatesExplanation = "No commission rates found"

func noRates(category Category, company string, amount decimal.Decimal) CommissionResult {
	return CommissionResult{
		Category:    category,
		Company:     company,
		Amount:      amount,
		Explanation: Explanation{Scope: NoRatesExplanation, Monthly: NoRatesExplanation},
	}
}

// HasNoRates reports whether r is the zero result of a missing rate lookup.
func HasNoRates(r CommissionResult) bool {
	return r.IsZero() && r.Explanation.Scope == NoRatesExplanation
}

// =============================================================================
// PENSION
// =============================================================================

// AgreementPension computes a pension sale against the company's scope_rate.
//
//	annual_contribution     = salary x 12 x provision%
//	scope_commission        = round(annual_contribution x scope_rate)
//	accumulation_commission = round(scope_rate_per_million x accumulation / 1M)
//	total                   = scope + accumulation
//
// The commission-rate range check runs on scope_rate x 100, i.e. on
// configuration rather than user input.
func AgreementPension(company string, in PensionInput, a *AgentRateAgreement) (CommissionResult, error) {
	if err := ValidateProvisionRate(in.ProvisionRate); err != nil {
		return CommissionResult{}, err
	}

	rates, ok := ResolvePension(a, company)
	if !ok {
		return noRates(CategoryPension, company, in.Salary), nil
	}

	commissionRate := rates.ScopeRate.Mul(hundred)
	if err := ValidateCommissionRate(commissionRate); err != nil {
		return CommissionResult{}, err
	}

	annualContribution := in.Salary.Mul(twelve).Mul(percentOf(in.ProvisionRate))
	scope := RoundUnit(annualContribution.Mul(percentOf(commissionRate)))

	accumulation := decimal.Zero
	monthlyExplanation := "אין צבירה"
	if in.Accumulation.IsPositive() {
		millions := in.Accumulation.Div(million)
		accumulation = RoundUnit(rates.ScopeRatePerMillion.Mul(millions))
		monthlyExplanation = fmt.Sprintf("עמלת צבירה: %s₪ למיליון × %s מיליון = %s₪",
			FormatAmount(rates.ScopeRatePerMillion), millions.StringFixed(2), FormatAmount(accumulation))
	}

	return CommissionResult{
		Category:               CategoryPension,
		Company:                company,
		Amount:                 in.Salary,
		ScopeCommission:        scope,
		MonthlyCommission:      accumulation,
		AccumulationCommission: accumulation,
		TotalCommission:        scope.Add(accumulation),
		Explanation: Explanation{
			Scope: fmt.Sprintf("עמלת היקף: %s%% × %s₪ = %s₪",
				commissionRate.StringFixed(2), FormatAmount(annualContribution), FormatAmount(scope)),
			Monthly: monthlyExplanation,
		},
	}, nil
}

// =============================================================================
// SAVINGS/STUDY & POLICY
// =============================================================================

// AgreementSavings computes a savings/study fund sale.
func AgreementSavings(company string, in SavingsInput, a *AgentRateAgreement) CommissionResult {
	return perMillion(CategorySavingsAndStudy, company, in.ProductType, in.Amount, a)
}

// AgreementPolicy computes a policy sale. Same formula as savings.
func AgreementPolicy(company string, in PolicyInput, a *AgentRateAgreement) CommissionResult {
	return perMillion(CategoryPolicy, company, in.ProductType, in.Amount, a)
}

// perMillion applies per-million rates:
//
//	millions          = amount / 1M
//	scope_commission  = round(millions x product.scope_commission)
//	monthly           = round(millions x product.monthly_rate)
//	total             = scope + monthly x 12
func perMillion(category Category, company, productType string, amount decimal.Decimal, a *AgentRateAgreement) CommissionResult {
	rates, ok := ResolvePerMillion(a, category, company, productType)
	if !ok {
		return noRates(category, company, amount)
	}

	millions := amount.Div(million)
	scope := RoundUnit(millions.Mul(rates.ScopeCommission))
	monthly := RoundUnit(millions.Mul(rates.MonthlyRate))
	annual := monthly.Mul(twelve)

	return CommissionResult{
		Category:          category,
		Company:           company,
		Amount:            amount,
		ScopeCommission:   scope,
		MonthlyCommission: monthly,
		TotalCommission:   scope.Add(annual),
		Explanation: Explanation{
			Scope: fmt.Sprintf("%s₪ × %s מיליון = %s₪",
				FormatAmount(rates.ScopeCommission), millions.StringFixed(2), FormatAmount(scope)),
			Monthly: fmt.Sprintf("%s₪ × %s מיליון = %s₪ לחודש",
				FormatAmount(rates.MonthlyRate), millions.StringFixed(2), FormatAmount(monthly)),
		},
	}
}

// =============================================================================
// INSURANCE
// =============================================================================

// AgreementInsurance computes an insurance sale. in.Premium is the annual premium.
//
//	monthly_premium  = round(annual / 12)
//	scope_commission = round(annual x one_time_rate%)
//	monthly          = round(monthly_premium x monthly_rate%)
//	total            = scope + monthly x 12
func AgreementInsurance(company string, in InsuranceInput, a *AgentRateAgreement) CommissionResult {
	rates, ok := ResolveInsurance(a, company, in.InsuranceType)
	if !ok {
		return noRates(CategoryInsurance, company, in.Premium)
	}

	annualPremium := in.Premium
	monthlyPremium := RoundUnit(annualPremium.Div(twelve))
	scope := RoundUnit(annualPremium.Mul(percentOf(rates.OneTimeRate)))
	monthly := RoundUnit(monthlyPremium.Mul(percentOf(rates.MonthlyRate)))
	annual := monthly.Mul(twelve)

	return CommissionResult{
		Category:          CategoryInsurance,
		Company:           company,
		Amount:            annualPremium,
		ScopeCommission:   scope,
		MonthlyCommission: monthly,
		TotalCommission:   scope.Add(annual),
		Explanation: Explanation{
			Scope: fmt.Sprintf("%s%% × %s₪ (פרמיה שנתית) = %s₪",
				rates.OneTimeRate.String(), FormatAmount(annualPremium), FormatAmount(scope)),
			Monthly: fmt.Sprintf("%s%% × %s₪ = %s₪ לחודש",
				rates.MonthlyRate.String(), FormatAmount(monthlyPremium), FormatAmount(monthly)),
		},
	}
}
