package goals_test

import (
	"testing"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertAmount(t *testing.T, want string, got decimal.Decimal, msg string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s, got %s", msg, want, got)
}

// =============================================================================
// APPLY DELTA
// =============================================================================

func TestApplyDelta_AddsAndRoundsToCents(t *testing.T) {
	got, err := goals.ApplyDelta(d("100.10"), d("0.005"))
	require.NoError(t, err)
	assertAmount(t, "100.11", got, "rounded sum")
}

func TestApplyDelta_OverflowLeavesValueUnchanged(t *testing.T) {
	// GIVEN: performance just below the cap
	existing := d("9999999900")

	// WHEN: the delta would cross it
	got, err := goals.ApplyDelta(existing, d("200"))

	// THEN
	assert.ErrorIs(t, err, goals.ErrPerformanceOverflow)
	assertAmount(t, "9999999900", got, "unchanged")
}

func TestApplyDelta_ExactlyAtCapIsAccepted(t *testing.T) {
	got, err := goals.ApplyDelta(d("9999999900"), d("99.99"))
	require.NoError(t, err)
	assertAmount(t, "9999999999.99", got, "cap")
}

func TestApplyDelta_NeverExceedsCap(t *testing.T) {
	existing := []string{"0", "1", "5000000000", "9999999000", "9999999999.98", "9999999999.99"}
	deltas := []string{"0", "0.01", "0.004", "999.99", "5000000000", "9999999999.99"}

	for _, e := range existing {
		for _, delta := range deltas {
			got, err := goals.ApplyDelta(d(e), d(delta))
			assert.False(t, got.GreaterThan(goals.MaxPerformance), "%s + %s", e, delta)
			if err != nil {
				assertAmount(t, e, got, "rejected delta keeps existing")
			}
		}
	}
}

func TestApplyDelta_RejectsNegative(t *testing.T) {
	_, err := goals.ApplyDelta(d("10"), d("-1"))
	assert.ErrorIs(t, err, goals.ErrNegativeDelta)
	assert.True(t, goals.IsClientError(err))
}

// =============================================================================
// SALE MAPPING
// =============================================================================

func TestContribute_MapsSaleCategories(t *testing.T) {
	date := time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name     string
		input    commission.SaleInput
		category goals.TargetCategory
		metric   goals.MetricType
		value    string
	}{
		{
			"pension contributes accumulation",
			commission.PensionInput{Salary: d("10000"), ProvisionRate: d("20"), CommissionRate: d("7"), Accumulation: d("500000")},
			goals.TargetPensionTransfer, goals.MetricTransferAmount, "500000",
		},
		{
			"insurance contributes annual premium",
			commission.InsuranceInput{Premium: d("12000"), InsuranceType: "risk"},
			goals.TargetRisks, goals.MetricPremiumAmount, "12000",
		},
		{
			"savings contributes amount",
			commission.SavingsInput{Amount: d("250000"), ProductType: "gemel"},
			goals.TargetProvidentFund, goals.MetricDepositAmount, "250000",
		},
		{
			"policy contributes amount",
			commission.PolicyInput{Amount: d("80000"), ProductType: "savings_policy"},
			goals.TargetFinanceTransfer, goals.MetricTransferAmount, "80000",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delta, err := goals.Contribute(commission.Sale{UserID: "agent-1", Date: date, Input: tc.input})
			require.NoError(t, err)

			assert.Equal(t, goals.PerformanceKey{
				UserID: "agent-1", Category: tc.category, Month: 3, Year: 2026, MetricType: tc.metric,
			}, delta.Key)
			assertAmount(t, tc.value, delta.Value, "value")
		})
	}
}

func TestContribute_RequiresUserAndInput(t *testing.T) {
	_, err := goals.Contribute(commission.Sale{Date: time.Now()})
	assert.ErrorIs(t, err, commission.ErrMissingInput)

	_, err = goals.Contribute(commission.Sale{Date: time.Now(), Input: commission.SavingsInput{Amount: d("1")}})
	assert.ErrorIs(t, err, goals.ErrInvalidKey)
}

func TestPerformanceKey_Validate(t *testing.T) {
	valid := goals.PerformanceKey{UserID: "u", Category: goals.TargetLoans, Month: 12, Year: 2026, MetricType: goals.MetricAmount}
	require.NoError(t, valid.Validate())

	bad := valid
	bad.Month = 13
	assert.ErrorIs(t, bad.Validate(), goals.ErrInvalidKey)

	bad = valid
	bad.Category = "sales"
	assert.ErrorIs(t, bad.Validate(), goals.ErrInvalidKey)
}

func TestDefaultMetric_MatchesSaleMapping(t *testing.T) {
	assert.Equal(t, goals.MetricTransferAmount, goals.DefaultMetric(goals.TargetPensionTransfer))
	assert.Equal(t, goals.MetricPremiumAmount, goals.DefaultMetric(goals.TargetRisks))
	assert.Equal(t, goals.MetricDepositAmount, goals.DefaultMetric(goals.TargetProvidentFund))
	assert.Equal(t, goals.MetricTransferAmount, goals.DefaultMetric(goals.TargetFinanceTransfer))
	assert.Equal(t, goals.MetricAmount, goals.DefaultMetric(goals.TargetEmployment))
}
