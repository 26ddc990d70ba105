package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

// NFTRegistryStore implements storage.NFTRegistryStore using PostgreSQL.
type NFTRegistryStore struct {
	pool *Pool
}

// NewNFTRegistryStore creates a new NFTRegistryStore.
func NewNFTRegistryStore(pool *Pool) *NFTRegistryStore {
	return &NFTRegistryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NFTRegistryStore = (*NFTRegistryStore)(nil)

// Insert registers an NFT contract. Returns ErrDuplicateKey if the
// address is already registered.
func (s *NFTRegistryStore) Insert(ctx context.Context, m *domain.NFTMetadata) error {
	if m == nil || m.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO nft_registry (
			address, name, symbol, registered_at
		) VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		m.Address.String(),
		m.Name,
		m.Symbol,
		m.RegisteredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert nft registry: %w", err)
	}
	return nil
}

// GetByAddress retrieves an NFT contract by its canonical address.
func (s *NFTRegistryStore) GetByAddress(ctx context.Context, addr domain.Address) (*domain.NFTMetadata, error) {
	query := `
		SELECT address, name, symbol, registered_at
		FROM nft_registry
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, addr.String())
	m, err := scanNFTMetadata(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get nft by address: %w", err)
	}
	return m, nil
}

// List retrieves all registered NFT contracts, ordered by registration time ASC.
func (s *NFTRegistryStore) List(ctx context.Context) ([]*domain.NFTMetadata, error) {
	query := `
		SELECT address, name, symbol, registered_at
		FROM nft_registry
		ORDER BY registered_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list nft registry: %w", err)
	}
	defer rows.Close()

	var result []*domain.NFTMetadata
	for rows.Next() {
		m, err := scanNFTMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan nft registry row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nft registry rows: %w", err)
	}

	return result, nil
}

// Delete removes an NFT contract. Returns ErrNotFound if not registered.
func (s *NFTRegistryStore) Delete(ctx context.Context, addr domain.Address) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM nft_registry WHERE address = $1`, addr.String())
	if err != nil {
		return fmt.Errorf("delete nft registry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanNFTMetadata scans a single row into NFTMetadata.
func scanNFTMetadata(row pgx.Row) (*domain.NFTMetadata, error) {
	var (
		m       domain.NFTMetadata
		address string
	)

	err := row.Scan(
		&address,
		&m.Name,
		&m.Symbol,
		&m.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}

	m.Address = domain.Address(address)
	return &m, nil
}
