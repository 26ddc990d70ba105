package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

// TokenRegistryStore implements storage.TokenRegistryStore using PostgreSQL.
type TokenRegistryStore struct {
	pool *Pool
}

// NewTokenRegistryStore creates a new TokenRegistryStore.
func NewTokenRegistryStore(pool *Pool) *TokenRegistryStore {
	return &TokenRegistryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRegistryStore = (*TokenRegistryStore)(nil)

// Insert registers a token. Returns ErrDuplicateKey if the address is
// already registered.
func (s *TokenRegistryStore) Insert(ctx context.Context, m *domain.TokenMetadata) error {
	if m == nil || m.Address == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO token_registry (
			address, symbol, decimals, registered_at
		) VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		m.Address.String(),
		m.Symbol,
		int16(m.Decimals),
		m.RegisteredAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token registry: %w", err)
	}
	return nil
}

// GetByAddress retrieves a token by its canonical address.
func (s *TokenRegistryStore) GetByAddress(ctx context.Context, addr domain.Address) (*domain.TokenMetadata, error) {
	query := `
		SELECT address, symbol, decimals, registered_at
		FROM token_registry
		WHERE address = $1
	`

	row := s.pool.QueryRow(ctx, query, addr.String())
	m, err := scanTokenMetadata(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token by address: %w", err)
	}
	return m, nil
}

// List retrieves all registered tokens, ordered by registration time ASC.
func (s *TokenRegistryStore) List(ctx context.Context) ([]*domain.TokenMetadata, error) {
	query := `
		SELECT address, symbol, decimals, registered_at
		FROM token_registry
		ORDER BY registered_at ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list token registry: %w", err)
	}
	defer rows.Close()

	var result []*domain.TokenMetadata
	for rows.Next() {
		m, err := scanTokenMetadata(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token registry row: %w", err)
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token registry rows: %w", err)
	}

	return result, nil
}

// Delete removes a token. Returns ErrNotFound if not registered.
func (s *TokenRegistryStore) Delete(ctx context.Context, addr domain.Address) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM token_registry WHERE address = $1`, addr.String())
	if err != nil {
		return fmt.Errorf("delete token registry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// scanTokenMetadata scans a single row into TokenMetadata.
func scanTokenMetadata(row pgx.Row) (*domain.TokenMetadata, error) {
	var (
		m        domain.TokenMetadata
		address  string
		decimals int16
	)

	err := row.Scan(
		&address,
		&m.Symbol,
		&decimals,
		&m.RegisteredAt,
	)
	if err != nil {
		return nil, err
	}

	m.Address = domain.Address(address)
	m.Decimals = uint8(decimals)
	return &m, nil
}
