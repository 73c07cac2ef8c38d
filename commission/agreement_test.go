package commission_test

import (
	"testing"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAgreement() commission.AgentRateAgreement {
	return commission.NewAgreement("agent-1").
		WithPensionRates("מגדל", commission.PensionCompanyRates{
			Active: true, ScopeRate: d("0.07"), ScopeRatePerMillion: d("11000"),
		}).
		WithPensionRates("הראל", commission.PensionCompanyRates{
			Active: false, ScopeRate: d("0.07"), ScopeRatePerMillion: d("11000"),
		}).
		WithPensionRates("כלל", commission.PensionCompanyRates{
			Active: true, ScopeRate: d("0.1"), ScopeRatePerMillion: d("11000"),
		}).
		WithInsuranceProduct("הפניקס", "risk", commission.InsuranceProductRates{
			OneTimeRate: d("65"), MonthlyRate: d("25"),
		}).
		WithInsuranceProduct("הפניקס", "health", commission.InsuranceProductRates{
			OneTimeRate: d("10"), MonthlyRate: d("7"),
		}).
		WithPerMillionProduct(commission.CategorySavingsAndStudy, "מור", "gemel", commission.PerMillionRates{
			ScopeCommission: d("6000"), MonthlyRate: d("250"),
		}).
		WithPerMillionProduct(commission.CategoryPolicy, "מנורה", "savings_policy", commission.PerMillionRates{
			ScopeCommission: d("7000"), MonthlyRate: d("300"),
		}).
		WithCompanyActive(commission.CategoryInsurance, "הפניקס", true).
		WithCompanyActive(commission.CategorySavingsAndStudy, "מור", true).
		WithCompanyActive(commission.CategoryPolicy, "מנורה", true)
}

// =============================================================================
// PENSION
// =============================================================================

func TestAgreementPension_UsesCompanyRates(t *testing.T) {
	// GIVEN: מגדל configured at 7% scope and 11,000 per million
	a := testAgreement()

	// WHEN
	result, err := commission.AgreementPension("מגדל", pension("10000", "20", "7", "500000"), &a)
	require.NoError(t, err)

	// THEN: 10000 x 12 x 20% = 24000 x 7% = 1680; 0.5M x 11000 = 5500
	assertAmount(t, "1680", result.ScopeCommission, "scope")
	assertAmount(t, "5500", result.AccumulationCommission, "accumulation")
	assertAmount(t, "5500", result.MonthlyCommission, "monthly mirrors accumulation")
	assertAmount(t, "7180", result.TotalCommission, "total")
	assert.Equal(t, "מגדל", result.Company)
	assert.NotEmpty(t, result.Explanation.Scope)
}

func TestAgreementPension_MissingOrInactiveCompanyIsZero(t *testing.T) {
	a := testAgreement()

	for _, company := range []string{"הראל", "אנליסט"} {
		t.Run(company, func(t *testing.T) {
			result, err := commission.AgreementPension(company, pension("10000", "20", "7", "500000"), &a)

			require.NoError(t, err)
			assert.True(t, result.IsZero())
			assert.True(t, commission.HasNoRates(result))
			assert.Equal(t, "No commission rates found", result.Explanation.Scope)
			assert.Equal(t, "No commission rates found", result.Explanation.Monthly)
		})
	}
}

func TestAgreementPension_NilAgreementIsZero(t *testing.T) {
	result, err := commission.AgreementPension("מגדל", pension("10000", "20", "7", "0"), nil)

	require.NoError(t, err)
	assert.True(t, commission.HasNoRates(result))
}

func TestAgreementPension_ProvisionCheckedBeforeLookup(t *testing.T) {
	// Even without configured rates, a bad provision rate is rejected.
	_, err := commission.AgreementPension("אנליסט", pension("10000", "17", "7", "0"), nil)
	assert.ErrorIs(t, err, commission.ErrInvalidProvisionRate)
}

func TestAgreementPension_ConfiguredRateOutOfRange(t *testing.T) {
	// GIVEN: כלל configured with scope_rate 0.1, i.e. 10%
	a := testAgreement()

	_, err := commission.AgreementPension("כלל", pension("10000", "20", "7", "0"), &a)

	assert.ErrorIs(t, err, commission.ErrInvalidCommissionRate)
	assert.EqualError(t, err, "אחוז עמלה חייב להיות בין 6 ל-8")
}

// =============================================================================
// INSURANCE
// =============================================================================

func TestAgreementInsurance_AnnualPremium(t *testing.T) {
	a := testAgreement()

	result := commission.AgreementInsurance("הפניקס", insurance("12000", "0", "risk", ""), &a)

	// 12000 x 65% = 7800; round(12000/12) = 1000 x 25% = 250; 7800 + 250 x 12
	assertAmount(t, "7800", result.ScopeCommission, "scope")
	assertAmount(t, "250", result.MonthlyCommission, "monthly")
	assertAmount(t, "10800", result.TotalCommission, "total")
}

func TestAgreementInsurance_RoundsMonthlyPremiumFirst(t *testing.T) {
	a := testAgreement()

	result := commission.AgreementInsurance("הפניקס", insurance("12345", "0", "health", ""), &a)

	// monthly premium round(1028.75) = 1029, x 7% = 72.03 -> 72
	// scope 12345 x 10% = 1234.5 -> 1235 (half away from zero)
	assertAmount(t, "1235", result.ScopeCommission, "scope")
	assertAmount(t, "72", result.MonthlyCommission, "monthly")
	assertAmount(t, "2099", result.TotalCommission, "total")
}

func TestAgreementInsurance_UnknownProductIsZero(t *testing.T) {
	a := testAgreement()

	result := commission.AgreementInsurance("הפניקס", insurance("12000", "0", "disability", ""), &a)

	assert.True(t, commission.HasNoRates(result))
}

// =============================================================================
// SAVINGS/STUDY & POLICY
// =============================================================================

func TestAgreementSavings_PerMillion(t *testing.T) {
	a := testAgreement()

	result := commission.AgreementSavings("מור", commission.SavingsInput{Amount: d("2500000"), ProductType: "gemel"}, &a)

	assertAmount(t, "15000", result.ScopeCommission, "scope")
	assertAmount(t, "625", result.MonthlyCommission, "monthly")
	assertAmount(t, "22500", result.TotalCommission, "total")
}

func TestAgreementSavings_RoundsEachComponent(t *testing.T) {
	a := testAgreement()

	result := commission.AgreementSavings("מור", commission.SavingsInput{Amount: d("1234567"), ProductType: "gemel"}, &a)

	// 1.234567 x 6000 = 7407.40 -> 7407; 1.234567 x 250 = 308.64 -> 309
	assertAmount(t, "7407", result.ScopeCommission, "scope")
	assertAmount(t, "309", result.MonthlyCommission, "monthly")
	assertAmount(t, "11115", result.TotalCommission, "total")
}

func TestAgreementPolicy_SameFormulaAsSavings(t *testing.T) {
	a := testAgreement()

	result, err := commission.Calculate(commission.ModeAgreement, "מנורה",
		commission.PolicyInput{Amount: d("1000000"), ProductType: "savings_policy"}, &a)
	require.NoError(t, err)

	assert.Equal(t, commission.CategoryPolicy, result.Category)
	assertAmount(t, "7000", result.ScopeCommission, "scope")
	assertAmount(t, "300", result.MonthlyCommission, "monthly")
	assertAmount(t, "10600", result.TotalCommission, "total")
}

func TestAgreementSavings_PolicyRatesDoNotLeakIntoSavings(t *testing.T) {
	a := testAgreement()

	result := commission.AgreementSavings("מנורה", commission.SavingsInput{Amount: d("1000000"), ProductType: "savings_policy"}, &a)

	assert.True(t, commission.HasNoRates(result))
}

// =============================================================================
// RESOLVER & SCHEMA
// =============================================================================

func TestResolve_TotalOverAllInputs(t *testing.T) {
	a := testAgreement()

	cases := []struct {
		name      string
		agreement *commission.AgentRateAgreement
		category  commission.Category
		company   string
		product   string
		found     bool
	}{
		{"nil agreement", nil, commission.CategoryPension, "מגדל", "", false},
		{"active pension", &a, commission.CategoryPension, "מגדל", "", true},
		{"inactive pension", &a, commission.CategoryPension, "הראל", "", false},
		{"empty company", &a, commission.CategoryPension, "", "", false},
		{"insurance product", &a, commission.CategoryInsurance, "הפניקס", "risk", true},
		{"insurance missing product", &a, commission.CategoryInsurance, "הפניקס", "mortgage", false},
		{"savings product", &a, commission.CategorySavingsAndStudy, "מור", "gemel", true},
		{"policy product", &a, commission.CategoryPolicy, "מנורה", "savings_policy", true},
		{"unknown category", &a, commission.Category("crypto"), "מגדל", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := commission.Resolve(tc.agreement, tc.category, tc.company, tc.product)
				assert.Equal(t, tc.found, ok)
			})
		})
	}
}

func TestAgreement_WithCompanyActiveDisablesLookups(t *testing.T) {
	a := testAgreement()

	disabled := a.WithCompanyActive(commission.CategoryInsurance, "הפניקס", false)

	_, ok := commission.ResolveInsurance(&disabled, "הפניקס", "risk")
	assert.False(t, ok)
	_, ok = commission.ResolveInsurance(&a, "הפניקס", "risk")
	assert.True(t, ok, "original agreement is not mutated")
}

func TestAgreement_CloneIsDeep(t *testing.T) {
	a := testAgreement()

	clone := a.Clone()
	clone.PensionCompanies["מגדל"] = commission.PensionCompanyRates{Active: false}

	assert.True(t, a.PensionCompanies["מגדל"].Active)
}

func TestAgreement_ActiveCompaniesSorted(t *testing.T) {
	a := testAgreement()

	assert.Equal(t, []string{"כלל", "מגדל"}, a.ActiveCompanies(commission.CategoryPension))
	assert.Empty(t, commission.NewAgreement("x").ActiveCompanies(commission.CategoryPolicy))
}

// =============================================================================
// FORMATTING
// =============================================================================

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,680", commission.FormatAmount(d("1680")))
	assert.Equal(t, "0", commission.FormatAmount(d("0")))
	assert.Equal(t, "1,234,567", commission.FormatAmount(d("1234567")))
	assert.Equal(t, "-12,000", commission.FormatAmount(d("-12000")))
}
