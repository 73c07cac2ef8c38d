/*
simple.go - Simple-mode calculators

PURPOSE:
  Fixed-constant calculators used by the standalone calculator screens. No
  rate lookup. These carry the literal test vectors:

    pension  {salary 10000, provision 20, commission 7, accumulation 500000}
             -> scope 1680, accumulation 150, total 1830
    life insurance, premium 1000, rate 20, monthly -> 200; annual -> 400
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AccumulationRate is the fixed accumulation coefficient (0.03% per unit,
// about 0.3% per million).
var AccumulationRate = decimal.RequireFromString("0.0003")

// Insurance type multipliers.
var InsuranceTypeMultipliers = map[string]decimal.Decimal{
	"life":       decimal.NewFromInt(1),
	"disability": decimal.RequireFromString("1.5"),
	"ltc":        decimal.RequireFromString("1.25"),
}

// Payment method multipliers.
var PaymentMultipliers = map[PaymentMethod]decimal.Decimal{
	PaymentMonthly: decimal.NewFromInt(1),
	PaymentAnnual:  decimal.NewFromInt(2),
}

// SimplePension computes a pension sale with a caller-supplied commission rate.
//
//	scope_commission        = round(salary x 12 x commission% x provision%)
//	accumulation_commission = round(accumulation x 0.0003)
func SimplePension(in PensionInput) (CommissionResult, error) {
	if err := validatePension(in.ProvisionRate, in.CommissionRate); err != nil {
		return CommissionResult{}, err
	}

	scope := RoundUnit(in.Salary.Mul(twelve).
		Mul(percentOf(in.CommissionRate)).
		Mul(percentOf(in.ProvisionRate)))
	accumulation := RoundUnit(in.Accumulation.Mul(AccumulationRate))

	monthlyExplanation := "אין צבירה"
	if in.Accumulation.IsPositive() {
		monthlyExplanation = fmt.Sprintf("%s × %s%% = %s",
			FormatAmount(in.Accumulation), AccumulationRate.Mul(hundred).StringFixed(3), FormatAmount(accumulation))
	}

	return CommissionResult{
		Category:               CategoryPension,
		Amount:                 in.Salary,
		ScopeCommission:        scope,
		MonthlyCommission:      accumulation,
		AccumulationCommission: accumulation,
		TotalCommission:        scope.Add(accumulation),
		Explanation: Explanation{
			Scope: fmt.Sprintf("%s * 12 * %s%% * %s%% = %s",
				FormatAmount(in.Salary), in.CommissionRate.String(), in.ProvisionRate.String(), FormatAmount(scope)),
			Monthly: monthlyExplanation,
		},
	}, nil
}

// SimpleInsurance computes an insurance sale with type and payment multipliers.
//
//	result = round(premium x commission% x type_multiplier x payment_multiplier)
//
// An unknown insurance type or payment method, or a negative premium or
// rate, yields a zero result.
func SimpleInsurance(in InsuranceInput) CommissionResult {
	if in.Premium.IsNegative() || in.CommissionRate.IsNegative() {
		return unsupported(CategoryInsurance, in.Premium, "negative premium or commission rate")
	}
	typeMul, ok := InsuranceTypeMultipliers[in.InsuranceType]
	if !ok {
		return unsupported(CategoryInsurance, in.Premium, fmt.Sprintf("unknown insurance type %q", in.InsuranceType))
	}
	method := in.PaymentMethod
	if method == "" {
		method = PaymentMonthly
	}
	payMul, ok := PaymentMultipliers[method]
	if !ok {
		return unsupported(CategoryInsurance, in.Premium, fmt.Sprintf("unknown payment method %q", in.PaymentMethod))
	}

	base := in.Premium.Mul(percentOf(in.CommissionRate))
	commission := RoundUnit(base.Mul(typeMul).Mul(payMul))

	return CommissionResult{
		Category:        CategoryInsurance,
		Amount:          in.Premium,
		ScopeCommission: commission,
		TotalCommission: commission,
		Explanation: Explanation{
			Scope: fmt.Sprintf("%s₪ × %s%% × %s × %s = %s₪",
				FormatAmount(in.Premium), in.CommissionRate.String(), typeMul.String(), payMul.String(), FormatAmount(commission)),
		},
	}
}

func unsupported(category Category, amount decimal.Decimal, reason string) CommissionResult {
	return CommissionResult{
		Category:    category,
		Amount:      amount,
		Explanation: Explanation{Scope: reason, Monthly: reason},
	}
}
