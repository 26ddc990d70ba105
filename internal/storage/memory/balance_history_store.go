package memory

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

// BalanceHistoryStore is an in-memory implementation of storage.BalanceHistoryStore.
type BalanceHistoryStore struct {
	mu       sync.RWMutex
	readings []*domain.BalanceReading
	keys     map[historyKey]struct{}
}

type historyKey struct {
	token       domain.Address
	wallet      domain.Address
	evaluatedAt int64
}

// NewBalanceHistoryStore creates a new in-memory balance history store.
func NewBalanceHistoryStore() *BalanceHistoryStore {
	return &BalanceHistoryStore{
		keys: make(map[historyKey]struct{}),
	}
}

var _ storage.BalanceHistoryStore = (*BalanceHistoryStore)(nil)

// InsertBulk adds multiple readings. Fails the entire batch on a
// duplicate (token, wallet, evaluated_at), inserting nothing.
func (s *BalanceHistoryStore) InsertBulk(_ context.Context, readings []*domain.BalanceReading) error {
	if len(readings) == 0 {
		return nil
	}

	for _, r := range readings {
		if r == nil || r.Token == "" || r.Wallet == "" || r.Amount == nil {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[historyKey]struct{})
	for _, r := range readings {
		k := historyKey{r.Token, r.Wallet, r.EvaluatedAt}
		if _, dup := seen[k]; dup {
			return storage.ErrDuplicateKey
		}
		if _, dup := s.keys[k]; dup {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range readings {
		s.keys[historyKey{r.Token, r.Wallet, r.EvaluatedAt}] = struct{}{}
		s.readings = append(s.readings, copyReading(r))
	}
	return nil
}

// GetByToken retrieves all readings for a token, ordered by evaluation time ASC.
func (s *BalanceHistoryStore) GetByToken(_ context.Context, token domain.Address) ([]*domain.BalanceReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BalanceReading
	for _, r := range s.readings {
		if r.Token == token {
			result = append(result, copyReading(r))
		}
	}

	sortReadings(result)
	return result, nil
}

// GetByTimeRange retrieves readings for a token/wallet pair within
// [start, end] milliseconds (inclusive).
func (s *BalanceHistoryStore) GetByTimeRange(_ context.Context, token, wallet domain.Address, start, end int64) ([]*domain.BalanceReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BalanceReading
	for _, r := range s.readings {
		if r.Token == token && r.Wallet == wallet && r.EvaluatedAt >= start && r.EvaluatedAt <= end {
			result = append(result, copyReading(r))
		}
	}

	sortReadings(result)
	return result, nil
}

func sortReadings(readings []*domain.BalanceReading) {
	sort.Slice(readings, func(i, j int) bool {
		return readings[i].EvaluatedAt < readings[j].EvaluatedAt
	})
}

// copyReading deep-copies a reading so callers cannot mutate stored state
// through the shared big.Int.
func copyReading(r *domain.BalanceReading) *domain.BalanceReading {
	readingCopy := *r
	readingCopy.Amount = new(big.Int).Set(r.Amount)
	return &readingCopy
}
