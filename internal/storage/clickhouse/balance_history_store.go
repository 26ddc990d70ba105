package clickhouse

import (
	"context"
	"fmt"
	"math/big"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

// BalanceHistoryStore implements storage.BalanceHistoryStore using ClickHouse.
// Amounts are stored as UInt256, which holds the full ERC-20 range exactly.
type BalanceHistoryStore struct {
	conn *Conn
}

// NewBalanceHistoryStore creates a new BalanceHistoryStore.
func NewBalanceHistoryStore(conn *Conn) *BalanceHistoryStore {
	return &BalanceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BalanceHistoryStore = (*BalanceHistoryStore)(nil)

// InsertBulk adds multiple readings. Fails the entire batch on a
// duplicate (token, wallet, evaluated_at).
//
// ClickHouse MergeTree does not enforce uniqueness at insert time, so
// duplicates are checked explicitly before the batch is sent.
func (s *BalanceHistoryStore) InsertBulk(ctx context.Context, readings []*domain.BalanceReading) error {
	if len(readings) == 0 {
		return nil
	}

	for _, r := range readings {
		if r == nil || r.Token == "" || r.Wallet == "" || r.Amount == nil {
			return storage.ErrInvalidInput
		}
	}

	type key struct {
		token       domain.Address
		wallet      domain.Address
		evaluatedAt int64
	}
	seen := make(map[key]struct{})
	for _, r := range readings {
		k := key{r.Token, r.Wallet, r.EvaluatedAt}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	for _, r := range readings {
		exists, err := s.exists(ctx, r.Token, r.Wallet, r.EvaluatedAt)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO balance_history (
			token, wallet, amount, evaluated_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range readings {
		err = batch.Append(
			r.Token.String(), r.Wallet.String(), r.Amount, uint64(r.EvaluatedAt),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByToken retrieves all readings for a token, ordered by evaluation time ASC.
func (s *BalanceHistoryStore) GetByToken(ctx context.Context, token domain.Address) ([]*domain.BalanceReading, error) {
	query := `
		SELECT token, wallet, amount, evaluated_at
		FROM balance_history
		WHERE token = ?
		ORDER BY evaluated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, token.String())
	if err != nil {
		return nil, fmt.Errorf("query by token: %w", err)
	}
	defer rows.Close()

	return scanBalanceReadings(rows)
}

// GetByTimeRange retrieves readings for a token/wallet pair within
// [start, end] milliseconds (inclusive).
func (s *BalanceHistoryStore) GetByTimeRange(ctx context.Context, token, wallet domain.Address, start, end int64) ([]*domain.BalanceReading, error) {
	query := `
		SELECT token, wallet, amount, evaluated_at
		FROM balance_history
		WHERE token = ? AND wallet = ? AND evaluated_at >= ? AND evaluated_at <= ?
		ORDER BY evaluated_at ASC
	`

	rows, err := s.conn.Query(ctx, query, token.String(), wallet.String(), uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBalanceReadings(rows)
}

// exists checks if a reading with the given key exists.
func (s *BalanceHistoryStore) exists(ctx context.Context, token, wallet domain.Address, evaluatedAt int64) (bool, error) {
	query := `
		SELECT count(*) FROM balance_history
		WHERE token = ? AND wallet = ? AND evaluated_at = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, token.String(), wallet.String(), uint64(evaluatedAt)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// chRows is the subset of driver.Rows the scanners need.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// scanBalanceReadings scans multiple rows. Stored readings are always
// successful evaluations, so Available is true.
func scanBalanceReadings(rows chRows) ([]*domain.BalanceReading, error) {
	var readings []*domain.BalanceReading

	for rows.Next() {
		var (
			token, wallet string
			amount        big.Int
			evaluatedAt   uint64
		)

		if err := rows.Scan(&token, &wallet, &amount, &evaluatedAt); err != nil {
			return nil, fmt.Errorf("scan balance history row: %w", err)
		}

		readings = append(readings, &domain.BalanceReading{
			Token:       domain.Address(token),
			Wallet:      domain.Address(wallet),
			Amount:      &amount,
			Available:   true,
			EvaluatedAt: int64(evaluatedAt),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance history rows: %w", err)
	}

	return readings, nil
}
