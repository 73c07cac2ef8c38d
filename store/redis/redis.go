/*
Package redis keeps goal performance counters in Redis.

PURPOSE:
  Goal counters are the hottest write path: every recorded sale bumps one.
  Deployments that run several API instances can move just the counters to
  Redis while agreements and the ledger stay in SQL.

LAYOUT:
  perf:{user}:{year}:{month}:{category}:{metric}   hash
      user, category, month, year, metric, target, performance, version
  perf-index:{user}:{year}                          set of counter keys

OPTIMISTIC CONCURRENCY:
  UpsertPerformance WATCHes the counter hash, checks the stored version and
  writes inside MULTI/EXEC. A concurrent write aborts the transaction
  (redis.TxFailedErr), which is reported as
  commission.ErrConcurrentModification.

SEE ALSO:
  - goals/store.go: PerformanceStore contract
*/
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const resetAttempts = 5

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// Store implements goals.PerformanceStore on a Redis client.
type Store struct {
	client *redis.Client
}

var _ goals.PerformanceStore = (*Store)(nil)

// Connect opens a client and pings it.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return New(client), nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func counterKey(k goals.PerformanceKey) string {
	return fmt.Sprintf("perf:%s:%d:%d:%s:%s", k.UserID, k.Year, k.Month, k.Category, k.MetricType)
}

func indexKey(userID string, year int) string {
	return fmt.Sprintf("perf-index:%s:%d", userID, year)
}

func (s *Store) ReadPerformance(ctx context.Context, key goals.PerformanceKey) (*goals.PerformanceRecord, error) {
	fields, err := s.client.HGetAll(ctx, counterKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read performance: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	rec, err := decode(fields)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *Store) UpsertPerformance(ctx context.Context, rec goals.PerformanceRecord, expectedVersion int64) error {
	k := rec.Key
	hk := counterKey(k)

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, hk, "version").Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expectedVersion {
			return commission.ErrConcurrentModification
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, hk,
				"user", k.UserID,
				"category", string(k.Category),
				"month", k.Month,
				"year", k.Year,
				"metric", string(k.MetricType),
				"target", rec.TargetAmount.String(),
				"performance", rec.Performance.String(),
				"version", expectedVersion+1,
			)
			pipe.SAdd(ctx, indexKey(k.UserID, k.Year), hk)
			return nil
		})
		return err
	}, hk)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, commission.ErrConcurrentModification):
		return commission.ErrConcurrentModification
	default:
		return fmt.Errorf("failed to upsert performance: %w", err)
	}
}

func (s *Store) ListPerformance(ctx context.Context, userID string, month, year int) ([]goals.PerformanceRecord, error) {
	keys, err := s.client.SMembers(ctx, indexKey(userID, year)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}

	cmds := make([]*redis.StringStringMapCmd, len(keys))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, hk := range keys {
			cmds[i] = pipe.HGetAll(ctx, hk)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list performance: %w", err)
	}

	var recs []goals.PerformanceRecord
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		rec, err := decode(fields)
		if err != nil {
			return nil, err
		}
		if month != 0 && rec.Key.Month != month {
			continue
		}
		recs = append(recs, rec)
	}

	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i].Key, recs[j].Key
		if a.Month != b.Month {
			return a.Month < b.Month
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.MetricType < b.MetricType
	})
	return recs, nil
}

// ResetPerformance zeroes every counter of the year in one transaction,
// retrying when a concurrent write touches one of them.
func (s *Store) ResetPerformance(ctx context.Context, userID string, year int) (int, error) {
	keys, err := s.client.SMembers(ctx, indexKey(userID, year)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to reset performance: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	for attempt := 0; attempt < resetAttempts; attempt++ {
		err = s.client.Watch(ctx, func(tx *redis.Tx) error {
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				for _, hk := range keys {
					pipe.HSet(ctx, hk, "performance", "0")
					pipe.HIncrBy(ctx, hk, "version", 1)
				}
				return nil
			})
			return err
		}, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if errors.Is(err, redis.TxFailedErr) {
		return 0, commission.ErrConcurrentModification
	}
	if err != nil {
		return 0, fmt.Errorf("failed to reset performance: %w", err)
	}
	return len(keys), nil
}

func decode(fields map[string]string) (goals.PerformanceRecord, error) {
	var rec goals.PerformanceRecord
	var err error

	rec.Key.UserID = fields["user"]
	rec.Key.Category = goals.TargetCategory(fields["category"])
	rec.Key.MetricType = goals.MetricType(fields["metric"])
	if rec.Key.Month, err = strconv.Atoi(fields["month"]); err != nil {
		return rec, fmt.Errorf("corrupt performance month: %w", err)
	}
	if rec.Key.Year, err = strconv.Atoi(fields["year"]); err != nil {
		return rec, fmt.Errorf("corrupt performance year: %w", err)
	}
	if rec.Version, err = strconv.ParseInt(fields["version"], 10, 64); err != nil {
		return rec, fmt.Errorf("corrupt performance version: %w", err)
	}
	if rec.TargetAmount, err = decimal.NewFromString(fields["target"]); err != nil {
		return rec, fmt.Errorf("corrupt performance target: %w", err)
	}
	if rec.Performance, err = decimal.NewFromString(fields["performance"]); err != nil {
		return rec, fmt.Errorf("corrupt performance value: %w", err)
	}
	return rec, nil
}
