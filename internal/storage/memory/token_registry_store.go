package memory

import (
	"context"
	"sort"
	"sync"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

// TokenRegistryStore is an in-memory implementation of storage.TokenRegistryStore.
type TokenRegistryStore struct {
	mu        sync.RWMutex
	byAddress map[domain.Address]*domain.TokenMetadata
}

// NewTokenRegistryStore creates a new in-memory token registry store.
func NewTokenRegistryStore() *TokenRegistryStore {
	return &TokenRegistryStore{
		byAddress: make(map[domain.Address]*domain.TokenMetadata),
	}
}

var _ storage.TokenRegistryStore = (*TokenRegistryStore)(nil)

// Insert registers a token. Returns ErrDuplicateKey if the address is
// already registered.
func (s *TokenRegistryStore) Insert(_ context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Address == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[m.Address]; exists {
		return storage.ErrDuplicateKey
	}

	metaCopy := *m
	s.byAddress[m.Address] = &metaCopy
	return nil
}

// GetByAddress retrieves a token by its canonical address.
func (s *TokenRegistryStore) GetByAddress(_ context.Context, addr domain.Address) (*domain.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byAddress[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}

	metaCopy := *m
	return &metaCopy, nil
}

// List retrieves all registered tokens, ordered by registration time ASC.
// Ties break on address for a deterministic order.
func (s *TokenRegistryStore) List(_ context.Context) ([]*domain.TokenMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.TokenMetadata, 0, len(s.byAddress))
	for _, m := range s.byAddress {
		metaCopy := *m
		result = append(result, &metaCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RegisteredAt != result[j].RegisteredAt {
			return result[i].RegisteredAt < result[j].RegisteredAt
		}
		return result[i].Address < result[j].Address
	})

	return result, nil
}

// Delete removes a token. Returns ErrNotFound if not registered.
func (s *TokenRegistryStore) Delete(_ context.Context, addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[addr]; !exists {
		return storage.ErrNotFound
	}

	delete(s.byAddress, addr)
	return nil
}
