package commission

import "fmt"

// Calculate is the single dispatch entry point for both modes.
//
// Simple mode ignores company and agreement. Agreement mode resolves rates
// from agreement (which may be nil: every sale then yields a zero result).
// Errors are limited to the pension range checks plus caller misuse
// (unknown mode, nil input).
func Calculate(mode Mode, company string, input SaleInput, agreement *AgentRateAgreement) (CommissionResult, error) {
	if input == nil {
		return CommissionResult{}, ErrMissingInput
	}

	switch mode {
	case ModeSimple:
		return calculateSimple(input)
	case ModeAgreement:
		return calculateAgreement(company, input, agreement)
	}
	return CommissionResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
}

func calculateSimple(input SaleInput) (CommissionResult, error) {
	switch in := input.(type) {
	case PensionInput:
		return SimplePension(in)
	case InsuranceInput:
		return SimpleInsurance(in), nil
	}
	return unsupported(input.Category(), input.SaleAmount(),
		fmt.Sprintf("no simple calculator for %s", input.Category())), nil
}

func calculateAgreement(company string, input SaleInput, agreement *AgentRateAgreement) (CommissionResult, error) {
	switch in := input.(type) {
	case PensionInput:
		return AgreementPension(company, in, agreement)
	case InsuranceInput:
		return AgreementInsurance(company, in, agreement), nil
	case SavingsInput:
		return AgreementSavings(company, in, agreement), nil
	case PolicyInput:
		return AgreementPolicy(company, in, agreement), nil
	}
	return noRates(input.Category(), company, input.SaleAmount()), nil
}
