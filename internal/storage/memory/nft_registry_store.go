package memory

import (
	"context"
	"sort"
	"sync"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

// NFTRegistryStore is an in-memory implementation of storage.NFTRegistryStore.
type NFTRegistryStore struct {
	mu        sync.RWMutex
	byAddress map[domain.Address]*domain.NFTMetadata
}

// NewNFTRegistryStore creates a new in-memory NFT registry store.
func NewNFTRegistryStore() *NFTRegistryStore {
	return &NFTRegistryStore{
		byAddress: make(map[domain.Address]*domain.NFTMetadata),
	}
}

var _ storage.NFTRegistryStore = (*NFTRegistryStore)(nil)

// Insert registers an NFT contract. Returns ErrDuplicateKey if the
// address is already registered.
func (s *NFTRegistryStore) Insert(_ context.Context, m *domain.NFTMetadata) error {
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

// GetByAddress retrieves an NFT contract by its canonical address.
func (s *NFTRegistryStore) GetByAddress(_ context.Context, addr domain.Address) (*domain.NFTMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.byAddress[addr]
	if !exists {
		return nil, storage.ErrNotFound
	}

	metaCopy := *m
	return &metaCopy, nil
}

// List retrieves all registered NFT contracts, ordered by registration time ASC.
func (s *NFTRegistryStore) List(_ context.Context) ([]*domain.NFTMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.NFTMetadata, 0, len(s.byAddress))
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

// Delete removes an NFT contract. Returns ErrNotFound if not registered.
func (s *NFTRegistryStore) Delete(_ context.Context, addr domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byAddress[addr]; !exists {
		return storage.ErrNotFound
	}

	delete(s.byAddress, addr)
	return nil
}
