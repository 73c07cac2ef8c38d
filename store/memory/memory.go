// Package memory provides an in-memory implementation of every store contract.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agentdesk/commission-engine/commission"
	"github.com/agentdesk/commission-engine/goals"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Store implements commission.RateStore, commission.SaleStore and
// goals.PerformanceStore.
type Store struct {
	mu          sync.RWMutex
	agreements  map[string]commission.AgentRateAgreement
	sales       map[string][]commission.SaleRecord
	idempotency map[saleKey]bool
	performance map[goals.PerformanceKey]goals.PerformanceRecord
}

// saleKey scopes idempotency keys to one agent.
type saleKey struct {
	userID string
	key    string
}

var (
	_ commission.RateStore   = (*Store)(nil)
	_ commission.SaleStore   = (*Store)(nil)
	_ goals.PerformanceStore = (*Store)(nil)
)

func New() *Store {
	return &Store{
		agreements:  make(map[string]commission.AgentRateAgreement),
		sales:       make(map[string][]commission.SaleRecord),
		idempotency: make(map[saleKey]bool),
		performance: make(map[goals.PerformanceKey]goals.PerformanceRecord),
	}
}

// =============================================================================
// AGREEMENTS
// =============================================================================

func (s *Store) LoadAgreement(_ context.Context, userID string) (*commission.AgentRateAgreement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.agreements[userID]
	if !ok {
		return nil, nil
	}
	c := a.Clone()
	return &c, nil
}

func (s *Store) SaveAgreement(_ context.Context, userID string, agreement commission.AgentRateAgreement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := agreement.Clone()
	c.UserID = userID
	s.agreements[userID] = c
	return nil
}

// =============================================================================
// SALES (append-only)
// =============================================================================

func (s *Store) AppendSale(_ context.Context, rec commission.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := saleKey{rec.UserID, rec.IdempotencyKey}
	if rec.IdempotencyKey != "" && s.idempotency[k] {
		return commission.ErrDuplicateIdempotencyKey
	}

	recs := s.sales[rec.UserID]
	// Keep records ordered by Date; equal dates keep insertion order.
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].Date.After(rec.Date)
	})
	recs = append(recs, commission.SaleRecord{})
	copy(recs[i+1:], recs[i:])
	recs[i] = rec
	s.sales[rec.UserID] = recs

	if rec.IdempotencyKey != "" {
		s.idempotency[k] = true
	}
	return nil
}

func (s *Store) LoadSales(_ context.Context, userID string, from, to time.Time) ([]commission.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []commission.SaleRecord
	for _, r := range s.sales[userID] {
		if !r.Date.Before(from) && !r.Date.After(to) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (s *Store) FindSale(_ context.Context, userID, idempotencyKey string) (*commission.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.findSale(userID, idempotencyKey); i >= 0 {
		rec := s.sales[userID][i]
		return &rec, nil
	}
	return nil, nil
}

func (s *Store) MarkContributed(_ context.Context, userID, idempotencyKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.findSale(userID, idempotencyKey)
	if i < 0 {
		return commission.ErrNotFound
	}
	s.sales[userID][i].Contributed = true
	return nil
}

// findSale returns the index of the keyed sale in s.sales[userID], or -1.
// Caller holds the lock.
func (s *Store) findSale(userID, idempotencyKey string) int {
	if idempotencyKey == "" || !s.idempotency[saleKey{userID, idempotencyKey}] {
		return -1
	}
	for i, r := range s.sales[userID] {
		if r.IdempotencyKey == idempotencyKey {
			return i
		}
	}
	return -1
}

// =============================================================================
// PERFORMANCE (compare-and-swap)
// =============================================================================

func (s *Store) ReadPerformance(_ context.Context, key goals.PerformanceKey) (*goals.PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.performance[key]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *Store) UpsertPerformance(_ context.Context, rec goals.PerformanceRecord, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.performance[rec.Key]
	switch {
	case !ok && expectedVersion != 0:
		return commission.ErrConcurrentModification
	case ok && current.Version != expectedVersion:
		return commission.ErrConcurrentModification
	}

	rec.Version = expectedVersion + 1
	s.performance[rec.Key] = rec
	return nil
}

func (s *Store) ListPerformance(_ context.Context, userID string, month, year int) ([]goals.PerformanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []goals.PerformanceRecord
	for k, rec := range s.performance {
		if k.UserID != userID || k.Year != year || (month != 0 && k.Month != month) {
			continue
		}
		result = append(result, rec)
	}
	sortRecords(result)
	return result, nil
}

func (s *Store) ResetPerformance(_ context.Context, userID string, year int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for k, rec := range s.performance {
		if k.UserID != userID || k.Year != year {
			continue
		}
		rec.Performance = decimal.Zero
		rec.Version++
		s.performance[k] = rec
		n++
	}
	return n, nil
}

func sortRecords(recs []goals.PerformanceRecord) {
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
}
