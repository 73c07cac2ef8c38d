package goals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/shopspring/decimal"
)

// DefaultMaxRetries bounds the compare-and-swap loop.
const DefaultMaxRetries = 5

var hundred = decimal.NewFromInt(100)

// ContributionResult is the outcome of a contribution. Overflow is a result,
// not an error: OK is false, Reason is "overflow" and the stored record is
// unchanged.
type ContributionResult struct {
	OK     bool               `json:"ok"`
	Record *PerformanceRecord `json:"record,omitempty"`
	Reason string             `json:"reason,omitempty"`
}

// Aggregator applies sales to performance counters and manages goals.
type Aggregator struct {
	Store      PerformanceStore
	MaxRetries int
	Logger     *slog.Logger
}

func NewAggregator(store PerformanceStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{Store: store, MaxRetries: DefaultMaxRetries, Logger: logger}
}

// =============================================================================
// CONTRIBUTIONS
// =============================================================================

// ContributeToGoal adds a sale's volume to its goal counter.
func (a *Aggregator) ContributeToGoal(ctx context.Context, sale commission.Sale) (ContributionResult, error) {
	delta, err := Contribute(sale)
	if err != nil {
		return ContributionResult{}, err
	}
	return a.Apply(ctx, delta)
}

// Apply adds delta.Value to the counter at delta.Key.
//
// The read-compute-write cycle is retried when another writer wins the
// compare-and-swap, so concurrent contributions to the same key are never lost.
func (a *Aggregator) Apply(ctx context.Context, delta PerformanceDelta) (ContributionResult, error) {
	if err := delta.Key.Validate(); err != nil {
		return ContributionResult{}, err
	}
	if delta.Value.IsNegative() {
		return ContributionResult{}, ErrNegativeDelta
	}

	rec, err := a.update(ctx, delta.Key, func(rec *PerformanceRecord) error {
		next, err := ApplyDelta(rec.Performance, delta.Value)
		if err != nil {
			return err
		}
		rec.Performance = next
		return nil
	})
	if errors.Is(err, ErrPerformanceOverflow) {
		a.log().Warn("performance contribution rejected",
			"key", delta.Key.String(), "delta", delta.Value.StringFixed(2), "reason", OverflowReason)
		return ContributionResult{OK: false, Reason: OverflowReason}, nil
	}
	if err != nil {
		return ContributionResult{}, err
	}
	return ContributionResult{OK: true, Record: &rec}, nil
}

// update runs one optimistic read-modify-write on key.
func (a *Aggregator) update(ctx context.Context, key PerformanceKey, mutate func(*PerformanceRecord) error) (PerformanceRecord, error) {
	attempts := a.MaxRetries
	if attempts <= 0 {
		attempts = DefaultMaxRetries
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return PerformanceRecord{}, err
		}

		current, err := a.Store.ReadPerformance(ctx, key)
		if err != nil {
			return PerformanceRecord{}, fmt.Errorf("read performance %s: %w", key, err)
		}

		rec := PerformanceRecord{Key: key, TargetAmount: decimal.Zero, Performance: decimal.Zero}
		var version int64
		if current != nil {
			rec = *current
			rec.Key = key
			version = current.Version
		}

		if err := mutate(&rec); err != nil {
			return PerformanceRecord{}, err
		}

		err = a.Store.UpsertPerformance(ctx, rec, version)
		if err == nil {
			rec.Version = version + 1
			return rec, nil
		}
		if !commission.IsRetryable(err) {
			return PerformanceRecord{}, fmt.Errorf("write performance %s: %w", key, err)
		}
		a.log().Debug("performance write conflict", "key", key.String(), "attempt", attempt)
	}

	return PerformanceRecord{}, fmt.Errorf("%w: %s: %w", ErrRetriesExhausted, key, commission.ErrConcurrentModification)
}

// =============================================================================
// GOALS
// =============================================================================

// SetGoal sets the target of a category for one month on its default metric.
// Performance is untouched; setting the same target twice is a no-op in effect.
func (a *Aggregator) SetGoal(ctx context.Context, userID string, category TargetCategory, month, year int, target decimal.Decimal) (PerformanceRecord, error) {
	return a.SetGoalFor(ctx, PerformanceKey{
		UserID:     userID,
		Category:   category,
		Month:      month,
		Year:       year,
		MetricType: DefaultMetric(category),
	}, target)
}

// SetGoalFor sets the target on an explicit key.
func (a *Aggregator) SetGoalFor(ctx context.Context, key PerformanceKey, target decimal.Decimal) (PerformanceRecord, error) {
	if err := key.Validate(); err != nil {
		return PerformanceRecord{}, err
	}
	if target.IsNegative() {
		return PerformanceRecord{}, ErrNegativeTarget
	}
	return a.update(ctx, key, func(rec *PerformanceRecord) error {
		rec.TargetAmount = target.Round(2)
		return nil
	})
}

// GetAchievements sums targets and performance per category for one month.
// Categories without records are absent from the map. A zero target yields
// a zero percentage.
func (a *Aggregator) GetAchievements(ctx context.Context, userID string, month, year int) (map[TargetCategory]Achievement, error) {
	recs, err := a.Store.ListPerformance(ctx, userID, month, year)
	if err != nil {
		return nil, fmt.Errorf("list performance: %w", err)
	}

	out := make(map[TargetCategory]Achievement)
	for _, r := range recs {
		ach := out[r.Key.Category]
		ach.Target = ach.Target.Add(r.TargetAmount)
		ach.Achieved = ach.Achieved.Add(r.Performance)
		out[r.Key.Category] = ach
	}
	for c, ach := range out {
		ach.Percentage = Percentage(ach.Achieved, ach.Target)
		out[c] = ach
	}
	return out, nil
}

// Percentage returns achieved/target x 100 rounded to 2 places, or 0 for a
// non-positive target.
func Percentage(achieved, target decimal.Decimal) decimal.Decimal {
	if !target.IsPositive() {
		return decimal.Zero
	}
	return achieved.Div(target).Mul(hundred).Round(2)
}

// ResetYearly zeroes every performance counter of the year. Targets stay.
func (a *Aggregator) ResetYearly(ctx context.Context, userID string, year int) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: empty user id", ErrInvalidKey)
	}
	n, err := a.Store.ResetPerformance(ctx, userID, year)
	if err != nil {
		return 0, fmt.Errorf("reset performance %d: %w", year, err)
	}
	a.log().Info("yearly performance reset", "user_id", userID, "year", year, "records", n)
	return n, nil
}

func (a *Aggregator) log() *slog.Logger {
	if a.Logger == nil {
		return slog.Default()
	}
	return a.Logger
}
