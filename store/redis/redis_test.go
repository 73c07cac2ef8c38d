package redis_test

import (
	"context"
	"sync"
	"testing"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	perfredis "github.com/agentdesk/commission-engine/store/redis"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*perfredis.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := perfredis.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestRedis_ConnectPings(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := perfredis.Connect(context.Background(), perfredis.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestRedis_PerformanceCompareAndSwap(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	k := goals.PerformanceKey{UserID: "u", Category: goals.TargetRisks, Month: 1, Year: 2026, MetricType: goals.MetricPremiumAmount}

	got, err := s.ReadPerformance(ctx, k)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := goals.PerformanceRecord{Key: k, TargetAmount: decimal.NewFromInt(1000), Performance: decimal.RequireFromString("12.5")}
	require.NoError(t, s.UpsertPerformance(ctx, rec, 0))
	assert.ErrorIs(t, s.UpsertPerformance(ctx, rec, 0), commission.ErrConcurrentModification)

	rec.Performance = decimal.RequireFromString("99.99")
	require.NoError(t, s.UpsertPerformance(ctx, rec, 1))
	assert.ErrorIs(t, s.UpsertPerformance(ctx, rec, 1), commission.ErrConcurrentModification)

	got, err = s.ReadPerformance(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, k, got.Key)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.Performance.Equal(decimal.RequireFromString("99.99")))
	assert.True(t, got.TargetAmount.Equal(decimal.NewFromInt(1000)))
}

func TestRedis_ListAndReset(t *testing.T) {
	s, mr := newStore(t)
	ctx := context.Background()
	key := func(c goals.TargetCategory, month, year int) goals.PerformanceKey {
		return goals.PerformanceKey{UserID: "u", Category: c, Month: month, Year: year, MetricType: goals.DefaultMetric(c)}
	}
	for _, k := range []goals.PerformanceKey{
		key(goals.TargetRisks, 3, 2026),
		key(goals.TargetPension, 3, 2026),
		key(goals.TargetRisks, 1, 2026),
		key(goals.TargetRisks, 3, 2025),
	} {
		require.NoError(t, s.UpsertPerformance(ctx, goals.PerformanceRecord{
			Key: k, TargetAmount: decimal.NewFromInt(100), Performance: decimal.NewFromInt(40),
		}, 0))
	}
	assert.True(t, mr.Exists("perf-index:u:2026"))

	march, err := s.ListPerformance(ctx, "u", 3, 2026)
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, goals.TargetPension, march[0].Key.Category)
	assert.Equal(t, goals.TargetRisks, march[1].Key.Category)

	year, err := s.ListPerformance(ctx, "u", 0, 2026)
	require.NoError(t, err)
	require.Len(t, year, 3)
	assert.Equal(t, 1, year[0].Key.Month)

	// WHEN: the year is reset
	n, err := s.ResetPerformance(ctx, "u", 2026)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// THEN: performance is zero, targets stay and versions move on
	got, err := s.ReadPerformance(ctx, key(goals.TargetPension, 3, 2026))
	require.NoError(t, err)
	assert.True(t, got.Performance.IsZero())
	assert.True(t, got.TargetAmount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int64(2), got.Version)

	// AND: a stale writer from before the reset loses
	stale := goals.PerformanceRecord{Key: key(goals.TargetPension, 3, 2026), Performance: decimal.NewFromInt(41)}
	assert.ErrorIs(t, s.UpsertPerformance(ctx, stale, 1), commission.ErrConcurrentModification)

	old, err := s.ReadPerformance(ctx, key(goals.TargetRisks, 3, 2025))
	require.NoError(t, err)
	assert.True(t, old.Performance.Equal(decimal.NewFromInt(40)))

	n, err = s.ResetPerformance(ctx, "nobody", 2026)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRedis_AggregatorConcurrentContributions(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	agg := goals.NewAggregator(s, nil)
	agg.MaxRetries = 100
	k := goals.PerformanceKey{UserID: "u", Category: goals.TargetProvidentFund, Month: 8, Year: 2026, MetricType: goals.MetricDepositAmount}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := agg.Apply(ctx, goals.PerformanceDelta{Key: k, Value: decimal.NewFromInt(7)})
			assert.NoError(t, err)
			assert.True(t, res.OK)
		}()
	}
	wg.Wait()

	got, err := s.ReadPerformance(ctx, k)
	require.NoError(t, err)
	assert.True(t, got.Performance.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, int64(10), got.Version)
}
