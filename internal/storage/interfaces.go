package storage

import (
	"context"

	"evm-token-watch/internal/domain"
)

// TokenRegistryStore provides access to token_registry storage.
type TokenRegistryStore interface {
	// Insert registers a token. Returns ErrDuplicateKey if the address
	// is already registered.
	Insert(ctx context.Context, m *domain.TokenMetadata) error

	// GetByAddress retrieves a token by its canonical address.
	// Returns ErrNotFound if not registered.
	GetByAddress(ctx context.Context, addr domain.Address) (*domain.TokenMetadata, error)

	// List retrieves all registered tokens, ordered by registration time ASC.
	List(ctx context.Context) ([]*domain.TokenMetadata, error)

	// Delete removes a token. Returns ErrNotFound if not registered.
	Delete(ctx context.Context, addr domain.Address) error
}

// NFTRegistryStore provides access to nft_registry storage.
type NFTRegistryStore interface {
	// Insert registers an NFT contract. Returns ErrDuplicateKey if the
	// address is already registered.
	Insert(ctx context.Context, m *domain.NFTMetadata) error

	// GetByAddress retrieves an NFT contract by its canonical address.
	// Returns ErrNotFound if not registered.
	GetByAddress(ctx context.Context, addr domain.Address) (*domain.NFTMetadata, error)

	// List retrieves all registered NFT contracts, ordered by registration time ASC.
	List(ctx context.Context) ([]*domain.NFTMetadata, error)

	// Delete removes an NFT contract. Returns ErrNotFound if not registered.
	Delete(ctx context.Context, addr domain.Address) error
}

// BalanceHistoryStore provides access to balance_history storage.
// Only successful readings are recorded; failed refreshes never reach
// the history.
type BalanceHistoryStore interface {
	// InsertBulk adds multiple readings. Fails the entire batch on a
	// duplicate (token, wallet, evaluated_at).
	InsertBulk(ctx context.Context, readings []*domain.BalanceReading) error

	// GetByToken retrieves all readings for a token, ordered by
	// evaluation time ASC.
	GetByToken(ctx context.Context, token domain.Address) ([]*domain.BalanceReading, error)

	// GetByTimeRange retrieves readings for a token/wallet pair within
	// [start, end] milliseconds (inclusive).
	GetByTimeRange(ctx context.Context, token, wallet domain.Address, start, end int64) ([]*domain.BalanceReading, error)
}
