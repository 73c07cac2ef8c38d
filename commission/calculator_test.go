package commission_test

import (
	"errors"
	"testing"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

func pension(salary, provision, rate, accumulation string) commission.PensionInput {
	return commission.PensionInput{
		Salary:         d(salary),
		ProvisionRate:  d(provision),
		CommissionRate: d(rate),
		Accumulation:   d(accumulation),
	}
}

func insurance(premium, rate, kind string, method commission.PaymentMethod) commission.InsuranceInput {
	return commission.InsuranceInput{
		Premium:        d(premium),
		CommissionRate: d(rate),
		InsuranceType:  kind,
		PaymentMethod:  method,
	}
}

// =============================================================================
// SIMPLE MODE - PENSION
// =============================================================================

func TestSimplePension_Vectors(t *testing.T) {
	cases := []struct {
		name                       string
		in                         commission.PensionInput
		scope, accumulation, total string
	}{
		{"basic sale", pension("10000", "20", "7", "500000"), "1680", "150", "1830"},
		{"maximum rates", pension("20000", "23", "8", "2000000"), "4416", "600", "5016"},
		{"minimum rates", pension("5000", "18.5", "6", "100000"), "666", "30", "696"},
		{"zero accumulation", pension("15000", "19", "6", "0"), "2052", "0", "2052"},
		{"zero salary", pension("0", "20", "7", "1000000"), "0", "300", "300"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := commission.Calculate(commission.ModeSimple, "", tc.in, nil)
			require.NoError(t, err)

			assert.Equal(t, commission.CategoryPension, result.Category)
			assertAmount(t, tc.scope, result.ScopeCommission, "scope")
			assertAmount(t, tc.accumulation, result.AccumulationCommission, "accumulation")
			assertAmount(t, tc.total, result.TotalCommission, "total")
		})
	}
}

func TestSimplePension_FractionalInputsRoundToUnits(t *testing.T) {
	// GIVEN: 7523.45 * 12 * 7.5% * 19.75% = 1337.29..., 345678.90 * 0.0003 = 103.70...
	result, err := commission.SimplePension(pension("7523.45", "19.75", "7.5", "345678.90"))
	require.NoError(t, err)

	// THEN: each named step is rounded to whole units before summing
	assertAmount(t, "1337", result.ScopeCommission, "scope")
	assertAmount(t, "104", result.AccumulationCommission, "accumulation")
	assertAmount(t, "1441", result.TotalCommission, "total")
}

func TestSimplePension_ScopeMatchesFormulaAcrossValidRange(t *testing.T) {
	salaries := []string{"0", "4999.99", "10000", "18250.5", "42000"}
	provisions := []string{"18.5", "19.5", "20.5", "20.83", "21.83", "22.83", "23"}
	rates := []string{"6", "6.5", "7", "7.25", "8"}

	for _, s := range salaries {
		for _, p := range provisions {
			for _, r := range rates {
				result, err := commission.SimplePension(pension(s, p, r, "0"))
				require.NoError(t, err)

				want := d(s).Mul(d("12")).Mul(d(r).Div(d("100"))).Mul(d(p).Div(d("100"))).Round(0)
				assert.Truef(t, want.Equal(result.ScopeCommission),
					"salary=%s provision=%s rate=%s: want %s got %s", s, p, r, want, result.ScopeCommission)
			}
		}
	}
}

func TestSimplePension_AccumulationIsFixedCoefficient(t *testing.T) {
	for _, acc := range []string{"0", "1", "1666", "100000", "333333.33", "9000000"} {
		result, err := commission.SimplePension(pension("0", "20", "7", acc))
		require.NoError(t, err)
		assertAmount(t, d(acc).Mul(d("0.0003")).Round(0).String(), result.AccumulationCommission, acc)
	}
}

func TestSimplePension_RangeViolations(t *testing.T) {
	cases := []struct {
		name     string
		in       commission.PensionInput
		message  string
		sentinel error
	}{
		{"provision below 18.5", pension("10000", "18", "7", "500000"), "אחוז הפרשה חייב להיות בין 18.5 ל-23", commission.ErrInvalidProvisionRate},
		{"provision above 23", pension("10000", "24", "7", "500000"), "אחוז הפרשה חייב להיות בין 18.5 ל-23", commission.ErrInvalidProvisionRate},
		{"commission below 6", pension("10000", "20", "5", "500000"), "אחוז עמלה חייב להיות בין 6 ל-8", commission.ErrInvalidCommissionRate},
		{"commission above 8", pension("10000", "20", "9", "500000"), "אחוז עמלה חייב להיות בין 6 ל-8", commission.ErrInvalidCommissionRate},
		{"both invalid reports provision first", pension("10000", "30", "1", "0"), "אחוז הפרשה חייב להיות בין 18.5 ל-23", commission.ErrInvalidProvisionRate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := commission.Calculate(commission.ModeSimple, "", tc.in, nil)

			require.Error(t, err)
			assert.EqualError(t, err, tc.message)
			assert.True(t, errors.Is(err, tc.sentinel))
			assert.True(t, commission.IsValidationError(err))
			assert.True(t, result.IsZero(), "no partial result on validation failure")
		})
	}
}

// =============================================================================
// SIMPLE MODE - INSURANCE
// =============================================================================

func TestSimpleInsurance_Vectors(t *testing.T) {
	cases := []struct {
		kind   string
		method commission.PaymentMethod
		want   string
	}{
		{"life", commission.PaymentMonthly, "200"},
		{"life", commission.PaymentAnnual, "400"},
		{"disability", commission.PaymentMonthly, "300"},
		{"disability", commission.PaymentAnnual, "600"},
		{"ltc", commission.PaymentMonthly, "250"},
		{"ltc", commission.PaymentAnnual, "500"},
	}

	for _, tc := range cases {
		t.Run(tc.kind+"/"+string(tc.method), func(t *testing.T) {
			result, err := commission.Calculate(commission.ModeSimple, "", insurance("1000", "20", tc.kind, tc.method), nil)
			require.NoError(t, err)
			assertAmount(t, tc.want, result.TotalCommission, "total")
			assertAmount(t, tc.want, result.ScopeCommission, "scope")
		})
	}
}

func TestSimpleInsurance_MultipliersAreProportional(t *testing.T) {
	// Premiums are multiples of 400 so every multiplied base is a whole number.
	for _, premium := range []string{"400", "1200", "4000", "10400"} {
		for _, rate := range []string{"15", "20", "27", "40"} {
			life := commission.SimpleInsurance(insurance(premium, rate, "life", commission.PaymentMonthly))
			disability := commission.SimpleInsurance(insurance(premium, rate, "disability", commission.PaymentMonthly))
			ltc := commission.SimpleInsurance(insurance(premium, rate, "ltc", commission.PaymentMonthly))
			lifeAnnual := commission.SimpleInsurance(insurance(premium, rate, "life", commission.PaymentAnnual))

			assertAmount(t, life.TotalCommission.Mul(d("1.5")).String(), disability.TotalCommission, "disability = 1.5 x life")
			assertAmount(t, life.TotalCommission.Mul(d("1.25")).String(), ltc.TotalCommission, "ltc = 1.25 x life")
			assertAmount(t, life.TotalCommission.Mul(d("2")).String(), lifeAnnual.TotalCommission, "annual = 2 x monthly")
		}
	}
}

func TestSimpleInsurance_UnknownTypeIsZeroNotError(t *testing.T) {
	result, err := commission.Calculate(commission.ModeSimple, "", insurance("1000", "20", "invalid", commission.PaymentMonthly), nil)

	require.NoError(t, err)
	assert.True(t, result.IsZero())
	assert.Contains(t, result.Explanation.Scope, "invalid")
}

func TestSimpleInsurance_NegativeInputsAreZero(t *testing.T) {
	tests := []struct {
		name string
		in   commission.InsuranceInput
	}{
		{"negative premium", insurance("-1000", "20", "life", commission.PaymentMonthly)},
		{"negative rate", insurance("1000", "-20", "disability", commission.PaymentAnnual)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := commission.Calculate(commission.ModeSimple, "", tt.in, nil)

			require.NoError(t, err)
			assert.True(t, result.IsZero())
			assert.Contains(t, result.Explanation.Scope, "negative")
		})
	}
}

func TestValidateAmounts(t *testing.T) {
	tests := []struct {
		name  string
		in    commission.SaleInput
		field string
	}{
		{"valid pension", pension("10000", "20", "7", "500000"), ""},
		{"negative salary", pension("-1", "20", "7", "0"), "salary"},
		{"negative accumulation", pension("10000", "20", "7", "-5"), "accumulation"},
		{"negative premium", insurance("-12000", "0", "risk", ""), "premium"},
		{"negative savings", commission.SavingsInput{Amount: d("-1"), ProductType: "gemel"}, "amount"},
		{"negative policy", commission.PolicyInput{Amount: d("-1"), ProductType: "savings_policy"}, "amount"},
		{"zero is fine", commission.SavingsInput{Amount: d("0"), ProductType: "gemel"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := commission.ValidateAmounts(tt.in)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, commission.ErrNegativeAmount)
			assert.Equal(t, commission.MsgNegativeAmount, err.Error())
			assert.True(t, commission.IsClientError(err))

			var ve *commission.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSimpleInsurance_DefaultsToMonthlyPayment(t *testing.T) {
	result := commission.SimpleInsurance(insurance("1000", "20", "life", ""))
	assertAmount(t, "200", result.TotalCommission, "total")
}

// =============================================================================
// DISPATCH
// =============================================================================

func TestCalculate_RejectsUnknownModeAndNilInput(t *testing.T) {
	_, err := commission.Calculate(commission.Mode("bogus"), "", pension("1", "20", "7", "0"), nil)
	assert.ErrorIs(t, err, commission.ErrUnknownMode)

	_, err = commission.Calculate(commission.ModeSimple, "", nil, nil)
	assert.ErrorIs(t, err, commission.ErrMissingInput)
}

func TestCalculate_SimpleModeHasNoSavingsCalculator(t *testing.T) {
	result, err := commission.Calculate(commission.ModeSimple, "", commission.SavingsInput{Amount: d("1000000"), ProductType: "gemel"}, nil)

	require.NoError(t, err)
	assert.True(t, result.IsZero())
	assert.Equal(t, commission.CategorySavingsAndStudy, result.Category)
}

func TestCalculate_ModesDiffer(t *testing.T) {
	// GIVEN: an agreement with scope_rate 7% and 11,000 per million
	agreement := commission.NewAgreement("agent-1").WithPensionRates("מגדל", commission.PensionCompanyRates{
		Active: true, ScopeRate: d("0.07"), ScopeRatePerMillion: d("11000"),
	})
	in := pension("10000", "20", "7", "500000")

	simple, err := commission.Calculate(commission.ModeSimple, "מגדל", in, &agreement)
	require.NoError(t, err)
	byAgreement, err := commission.Calculate(commission.ModeAgreement, "מגדל", in, &agreement)
	require.NoError(t, err)

	// THEN: same scope, different accumulation source
	assertAmount(t, "1680", simple.ScopeCommission, "simple scope")
	assertAmount(t, "1680", byAgreement.ScopeCommission, "agreement scope")
	assertAmount(t, "150", simple.AccumulationCommission, "simple accumulation")
	assertAmount(t, "5500", byAgreement.AccumulationCommission, "agreement accumulation")
}
