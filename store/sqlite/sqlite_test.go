package sqlite_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/agentdesk/commission-engine/store/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_AgreementRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	got, err := s.LoadAgreement(ctx, "agent-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	a := commission.NewAgreement("").
		WithPensionRates("מגדל", commission.PensionCompanyRates{
			Active: true, ScopeRate: decimal.RequireFromString("0.07"), ScopeRatePerMillion: decimal.NewFromInt(11000),
		}).
		WithInsuranceProduct("הפניקס", "risk", commission.InsuranceProductRates{
			OneTimeRate: decimal.NewFromInt(65), MonthlyRate: decimal.NewFromInt(25),
		})
	require.NoError(t, s.SaveAgreement(ctx, "agent-1", a))

	got, err = s.LoadAgreement(ctx, "agent-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "agent-1", got.UserID)
	assert.True(t, got.PensionCompanies["מגדל"].ScopeRate.Equal(decimal.RequireFromString("0.07")))
	assert.True(t, got.InsuranceCompanies["הפניקס"].Products["risk"].OneTimeRate.Equal(decimal.NewFromInt(65)))
	assert.False(t, got.InsuranceCompanies["הפניקס"].Active)

	// saving again replaces the document
	b := got.WithCompanyActive(commission.CategoryInsurance, "הפניקס", true)
	require.NoError(t, s.SaveAgreement(ctx, "agent-1", b))
	got, err = s.LoadAgreement(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, got.InsuranceCompanies["הפניקס"].Active)
}

func TestSQLite_SalesLedger(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := func(n int) time.Time { return time.Date(2026, time.March, n, 10, 0, 0, 0, time.UTC) }

	sale := func(id string, n int, key string) commission.SaleRecord {
		return commission.SaleRecord{
			ID: id, UserID: "u", JourneyID: "j-1", ClientName: "דנה", Category: commission.CategoryPension,
			Company: "מגדל", Date: day(n), Amount: decimal.NewFromInt(10000),
			Scope: decimal.NewFromInt(1680), Monthly: decimal.NewFromInt(150), Total: decimal.NewFromInt(1830),
			IdempotencyKey: key,
		}
	}

	// GIVEN: three sales appended out of date order
	require.NoError(t, s.AppendSale(ctx, sale("b", 12, "k-b")))
	require.NoError(t, s.AppendSale(ctx, sale("a", 3, "k-a")))
	require.NoError(t, s.AppendSale(ctx, sale("c", 25, "")))

	// WHEN: a sale reuses an idempotency key
	err := s.AppendSale(ctx, sale("dup", 4, "k-a"))

	// THEN: it is rejected
	assert.ErrorIs(t, err, commission.ErrDuplicateIdempotencyKey)

	// AND: range loads come back in date order with decimals intact
	recs, err := s.LoadSales(ctx, "u", day(1), day(12))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].ID)
	assert.Equal(t, "b", recs[1].ID)
	assert.True(t, recs[0].Total.Equal(decimal.NewFromInt(1830)))
	assert.Equal(t, commission.CategoryPension, recs[0].Category)
	assert.True(t, recs[0].Date.Equal(day(3)))
	assert.Equal(t, "j-1", recs[0].JourneyID)

	found, err := s.FindSale(ctx, "u", "k-b")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "b", found.ID)
	assert.False(t, found.Contributed)

	found, err = s.FindSale(ctx, "u", "missing")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLite_IdempotencyKeysArePerAgent(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	sale := func(id, user string) commission.SaleRecord {
		return commission.SaleRecord{
			ID: id, UserID: user, Category: commission.CategoryInsurance, Date: day,
			Amount: decimal.NewFromInt(1000), IdempotencyKey: "shared:0",
		}
	}

	// GIVEN: two agents recording under the same key
	require.NoError(t, s.AppendSale(ctx, sale("s-1", "agent-1")))
	require.NoError(t, s.AppendSale(ctx, sale("s-2", "agent-2")))

	// THEN: each finds only its own sale
	found, err := s.FindSale(ctx, "agent-2", "shared:0")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "s-2", found.ID)

	// AND: the key is still unique within one agent
	assert.ErrorIs(t, s.AppendSale(ctx, sale("s-3", "agent-1")), commission.ErrDuplicateIdempotencyKey)
}

func TestSQLite_MarkContributed(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	day := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendSale(ctx, commission.SaleRecord{
		ID: "s-1", UserID: "u", Category: commission.CategoryPension, Date: day, IdempotencyKey: "k",
	}))

	// WHEN: the sale is flagged after goal contribution
	require.NoError(t, s.MarkContributed(ctx, "u", "k"))

	// THEN: the flag survives a reload
	recs, err := s.LoadSales(ctx, "u", day, day)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Contributed)

	// AND: another agent cannot flag it
	assert.ErrorIs(t, s.MarkContributed(ctx, "other", "k"), commission.ErrNotFound)
}

func TestSQLite_PerformanceCompareAndSwap(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	k := goals.PerformanceKey{UserID: "u", Category: goals.TargetRisks, Month: 1, Year: 2026, MetricType: goals.MetricPremiumAmount}

	got, err := s.ReadPerformance(ctx, k)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := goals.PerformanceRecord{Key: k, Performance: decimal.RequireFromString("10.25")}
	require.NoError(t, s.UpsertPerformance(ctx, rec, 0))
	assert.ErrorIs(t, s.UpsertPerformance(ctx, rec, 0), commission.ErrConcurrentModification)

	rec.Performance = decimal.RequireFromString("20.5")
	require.NoError(t, s.UpsertPerformance(ctx, rec, 1))
	assert.ErrorIs(t, s.UpsertPerformance(ctx, rec, 1), commission.ErrConcurrentModification)

	got, err = s.ReadPerformance(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.Performance.Equal(decimal.RequireFromString("20.5")))

	other := k
	other.Month = 2
	assert.ErrorIs(t, s.UpsertPerformance(ctx, goals.PerformanceRecord{Key: other}, 3), commission.ErrConcurrentModification)
}

func TestSQLite_ListAndReset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	key := func(c goals.TargetCategory, month, year int) goals.PerformanceKey {
		return goals.PerformanceKey{UserID: "u", Category: c, Month: month, Year: year, MetricType: goals.DefaultMetric(c)}
	}
	seed := []goals.PerformanceKey{
		key(goals.TargetRisks, 3, 2026),
		key(goals.TargetPension, 3, 2026),
		key(goals.TargetRisks, 1, 2026),
		key(goals.TargetRisks, 1, 2025),
	}
	for _, k := range seed {
		require.NoError(t, s.UpsertPerformance(ctx, goals.PerformanceRecord{
			Key: k, TargetAmount: decimal.NewFromInt(100), Performance: decimal.NewFromInt(40),
		}, 0))
	}

	month, err := s.ListPerformance(ctx, "u", 3, 2026)
	require.NoError(t, err)
	require.Len(t, month, 2)
	assert.Equal(t, goals.TargetPension, month[0].Key.Category)
	assert.Equal(t, goals.TargetRisks, month[1].Key.Category)

	year, err := s.ListPerformance(ctx, "u", 0, 2026)
	require.NoError(t, err)
	require.Len(t, year, 3)
	assert.Equal(t, 1, year[0].Key.Month)

	// WHEN: the year is reset
	n, err := s.ResetPerformance(ctx, "u", 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// THEN: performance is zeroed, targets kept, versions bumped
	got, err := s.ReadPerformance(ctx, key(goals.TargetRisks, 3, 2026))
	require.NoError(t, err)
	assert.True(t, got.Performance.IsZero())
	assert.True(t, got.TargetAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(2), got.Version)

	// AND: other years are untouched
	old, err := s.ReadPerformance(ctx, key(goals.TargetRisks, 1, 2025))
	require.NoError(t, err)
	assert.True(t, old.Performance.Equal(decimal.NewFromInt(40)))
}

func TestSQLite_AggregatorConcurrentContributions(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	agg := goals.NewAggregator(s, nil)
	agg.MaxRetries = 100
	k := goals.PerformanceKey{UserID: "u", Category: goals.TargetRisks, Month: 5, Year: 2026, MetricType: goals.MetricPremiumAmount}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := agg.Apply(ctx, goals.PerformanceDelta{Key: k, Value: decimal.NewFromInt(5)})
			assert.NoError(t, err)
			assert.True(t, res.OK)
		}()
	}
	wg.Wait()

	got, err := s.ReadPerformance(ctx, k)
	require.NoError(t, err)
	assert.True(t, got.Performance.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, int64(10), got.Version)
}
