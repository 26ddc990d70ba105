package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/storage"
)

func TestNFTRegistryStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewNFTRegistryStore(pool)

	meta := &domain.NFTMetadata{
		Address:      "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d",
		Name:         "BoredApeYachtClub",
		Symbol:       "BAYC",
		RegisteredAt: 1700000000000,
	}

	err := store.Insert(ctx, meta)
	require.NoError(t, err)

	retrieved, err := store.GetByAddress(ctx, meta.Address)
	require.NoError(t, err)

	assert.Equal(t, meta.Address, retrieved.Address)
	assert.Equal(t, "BoredApeYachtClub", retrieved.Name)
	assert.Equal(t, "BAYC", retrieved.Symbol)
}

func TestNFTRegistryStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewNFTRegistryStore(pool)

	meta := &domain.NFTMetadata{
		Address:      "0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d",
		Name:         "BoredApeYachtClub",
		Symbol:       "BAYC",
		RegisteredAt: 1700000000000,
	}

	require.NoError(t, store.Insert(ctx, meta))

	err := store.Insert(ctx, meta)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestNFTRegistryStore_PlaceholderFields(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewNFTRegistryStore(pool)

	// Records where both lookups failed are still complete
	meta := &domain.NFTMetadata{
		Address:      "0x4444444444444444444444444444444444444444",
		Name:         "?",
		Symbol:       "?",
		RegisteredAt: 1700000000000,
	}

	require.NoError(t, store.Insert(ctx, meta))

	retrieved, err := store.GetByAddress(ctx, meta.Address)
	require.NoError(t, err)
	assert.Equal(t, "?", retrieved.Name)
	assert.Equal(t, "?", retrieved.Symbol)
}

func TestNFTRegistryStore_ListAndDelete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewNFTRegistryStore(pool)

	first := &domain.NFTMetadata{Address: "0x1111111111111111111111111111111111111111", Name: "First", Symbol: "F", RegisteredAt: 1000}
	second := &domain.NFTMetadata{Address: "0x2222222222222222222222222222222222222222", Name: "Second", Symbol: "S", RegisteredAt: 2000}

	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, first))

	result, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, "First", result[0].Name)

	require.NoError(t, store.Delete(ctx, first.Address))

	result, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "Second", result[0].Name)

	err = store.Delete(ctx, first.Address)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
