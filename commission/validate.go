package commission

import "github.com/shopspring/decimal"

// Pension range bounds, inclusive.
var (
	MinProvisionRate  = decimal.RequireFromString("18.5")
	MaxProvisionRate  = decimal.NewFromInt(23)
	MinCommissionRate = decimal.NewFromInt(6)
	MaxCommissionRate = decimal.NewFromInt(8)
)

func between(v, lo, hi decimal.Decimal) bool {
	return v.GreaterThanOrEqual(lo) && v.LessThanOrEqual(hi)
}

// ValidateProvisionRate checks provision_rate ∈ [18.5, 23].
func ValidateProvisionRate(rate decimal.Decimal) error {
	if between(rate, MinProvisionRate, MaxProvisionRate) {
		return nil
	}
	return &ValidationError{
		Field:   "provision_rate",
		Value:   rate.String(),
		Message: MsgInvalidProvisionRate,
		kind:    ErrInvalidProvisionRate,
	}
}

// ValidateCommissionRate checks commission_rate ∈ [6, 8].
func ValidateCommissionRate(rate decimal.Decimal) error {
	if between(rate, MinCommissionRate, MaxCommissionRate) {
		return nil
	}
	return &ValidationError{
		Field:   "commission_rate",
		Value:   rate.String(),
		Message: MsgInvalidCommissionRate,
		kind:    ErrInvalidCommissionRate,
	}
}

// ValidateAmounts rejects a sale input carrying a negative money field.
// Recorded sales feed goal counters, which only grow.
func ValidateAmounts(in SaleInput) error {
	switch v := in.(type) {
	case PensionInput:
		if err := nonNegative("salary", v.Salary); err != nil {
			return err
		}
		return nonNegative("accumulation", v.Accumulation)
	case InsuranceInput:
		if err := nonNegative("premium", v.Premium); err != nil {
			return err
		}
		return nonNegative("commission_rate", v.CommissionRate)
	case SavingsInput:
		return nonNegative("amount", v.Amount)
	case PolicyInput:
		return nonNegative("amount", v.Amount)
	}
	return nil
}

func nonNegative(field string, v decimal.Decimal) error {
	if !v.IsNegative() {
		return nil
	}
	return &ValidationError{
		Field:   field,
		Value:   v.String(),
		Message: MsgNegativeAmount,
		kind:    ErrNegativeAmount,
	}
}

// validatePension runs both pension range checks, provision first.
func validatePension(provisionRate, commissionRate decimal.Decimal) error {
	if err := ValidateProvisionRate(provisionRate); err != nil {
		return err
	}
	return ValidateCommissionRate(commissionRate)
}
