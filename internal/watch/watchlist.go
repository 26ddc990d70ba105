// Package watch maintains the watchlist: registered tokens and NFT
// contracts, per-token wallets, and the latest balance reading per
// token. Registration validates and deduplicates before any network
// call; balance refreshes are guarded by per-token generation counters
// so an in-flight result whose watchlist entry changed underneath it
// is discarded instead of written.
package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/observability"
	"evm-token-watch/internal/storage"
	"evm-token-watch/internal/token"
)

var (
	// ErrNotRegistered is returned when an operation references a token
	// that is not on the watchlist.
	ErrNotRegistered = errors.New("token not registered")

	// ErrNoWallet is returned when a refresh is requested for a token
	// that has no wallet assigned.
	ErrNoWallet = errors.New("no wallet assigned")
)

// Controller owns the watchlist. All mutation goes through its mutex;
// network fetches happen outside the lock.
type Controller struct {
	service *token.Service
	tokens  storage.TokenRegistryStore
	nfts    storage.NFTRegistryStore

	// history, when set, records every successful balance evaluation.
	history storage.BalanceHistoryStore

	mu          sync.Mutex
	wallets     map[domain.Address]domain.Address
	balances    map[domain.Address]*domain.BalanceReading
	generations map[domain.Address]uint64
	active      domain.Address

	nowMs func() int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithHistory records successful balance readings to the given store.
func WithHistory(h storage.BalanceHistoryStore) Option {
	return func(c *Controller) { c.history = h }
}

// WithClock overrides the timestamp source. Tests use it for
// deterministic evaluation times.
func WithClock(nowMs func() int64) Option {
	return func(c *Controller) { c.nowMs = nowMs }
}

// NewController creates a watchlist controller over the given query
// service and registry stores.
func NewController(service *token.Service, tokens storage.TokenRegistryStore, nfts storage.NFTRegistryStore, opts ...Option) *Controller {
	c := &Controller{
		service:     service,
		tokens:      tokens,
		nfts:        nfts,
		wallets:     make(map[domain.Address]domain.Address),
		balances:    make(map[domain.Address]*domain.BalanceReading),
		generations: make(map[domain.Address]uint64),
		nowMs:       func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterToken validates the address, rejects duplicates, fetches
// fungible metadata, and stores the record. The duplicate check runs
// before any network call. A metadata fetch failure (decimals
// unavailable) leaves the watchlist unchanged.
func (c *Controller) RegisterToken(ctx context.Context, rawAddr string) (*domain.TokenMetadata, error) {
	addr, err := domain.NormalizeAddress(rawAddr)
	if err != nil {
		return nil, err
	}

	if _, err := c.tokens.GetByAddress(ctx, addr); err == nil {
		return nil, storage.ErrDuplicateKey
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check token registry: %w", err)
	}

	meta, err := c.service.FetchTokenMetadata(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata: %w", err)
	}

	if err := c.tokens.Insert(ctx, meta); err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}

	observability.RecordTokenRegistered()
	c.updateRegistrySizes(ctx)
	return meta, nil
}

// RegisterNFT validates the address, rejects duplicates, and stores the
// record. Metadata lookups are best-effort; registration succeeds even
// when every field is unknown.
func (c *Controller) RegisterNFT(ctx context.Context, rawAddr string) (*domain.NFTMetadata, error) {
	addr, err := domain.NormalizeAddress(rawAddr)
	if err != nil {
		return nil, err
	}

	if _, err := c.nfts.GetByAddress(ctx, addr); err == nil {
		return nil, storage.ErrDuplicateKey
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("check nft registry: %w", err)
	}

	meta, err := c.service.FetchNFTMetadata(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("fetch nft metadata: %w", err)
	}

	if err := c.nfts.Insert(ctx, meta); err != nil {
		return nil, fmt.Errorf("insert nft: %w", err)
	}

	observability.RecordNFTRegistered()
	c.updateRegistrySizes(ctx)
	return meta, nil
}

// RemoveToken deletes a token from the registry and drops its wallet,
// balance, and active status. The generation bump invalidates any
// refresh still in flight for this token.
func (c *Controller) RemoveToken(ctx context.Context, rawAddr string) error {
	addr, err := domain.NormalizeAddress(rawAddr)
	if err != nil {
		return err
	}

	if err := c.tokens.Delete(ctx, addr); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("delete token: %w", err)
	}

	c.mu.Lock()
	c.generations[addr]++
	delete(c.wallets, addr)
	delete(c.balances, addr)
	if c.active == addr {
		c.active = ""
	}
	c.mu.Unlock()

	c.updateRegistrySizes(ctx)
	return nil
}

// RemoveNFT deletes an NFT contract from the registry.
func (c *Controller) RemoveNFT(ctx context.Context, rawAddr string) error {
	addr, err := domain.NormalizeAddress(rawAddr)
	if err != nil {
		return err
	}

	if err := c.nfts.Delete(ctx, addr); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("delete nft: %w", err)
	}

	c.updateRegistrySizes(ctx)
	return nil
}

// SetWallet assigns the wallet observed for a token. Changing the
// wallet bumps the token's generation: readings fetched against the
// old wallet are stale and must not land.
func (c *Controller) SetWallet(ctx context.Context, rawToken, rawWallet string) error {
	tokenAddr, err := domain.NormalizeAddress(rawToken)
	if err != nil {
		return err
	}
	walletAddr, err := domain.NormalizeAddress(rawWallet)
	if err != nil {
		return err
	}

	if _, err := c.tokens.GetByAddress(ctx, tokenAddr); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("check token registry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wallets[tokenAddr] == walletAddr {
		return nil
	}
	c.wallets[tokenAddr] = walletAddr
	c.generations[tokenAddr]++
	delete(c.balances, tokenAddr)
	return nil
}

// SetActiveToken marks a token as the one currently displayed. The
// previously active token's generation is bumped so a refresh started
// for the old selection cannot overwrite state after the switch.
func (c *Controller) SetActiveToken(ctx context.Context, rawAddr string) error {
	addr, err := domain.NormalizeAddress(rawAddr)
	if err != nil {
		return err
	}

	if _, err := c.tokens.GetByAddress(ctx, addr); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNotRegistered
		}
		return fmt.Errorf("check token registry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == addr {
		return nil
	}
	if c.active != "" {
		c.generations[c.active]++
	}
	c.active = addr
	return nil
}

// Active returns the currently active token, if any.
func (c *Controller) Active() (domain.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active, c.active != ""
}

// Wallet returns the wallet assigned to a token, if any.
func (c *Controller) Wallet(tokenAddr domain.Address) (domain.Address, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.wallets[tokenAddr]
	return w, ok
}

// Balance returns the latest reading for a token, if one has landed.
func (c *Controller) Balance(tokenAddr domain.Address) (*domain.BalanceReading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.balances[tokenAddr]
	if !ok {
		return nil, false
	}
	readingCopy := *r
	return &readingCopy, true
}

// RefreshBalance fetches the token's balance for its assigned wallet
// and stores the reading. The generation captured before the fetch is
// re-checked immediately before the write; on mismatch the result is
// discarded. A fetch failure is recorded as an unavailable reading,
// subject to the same staleness and newer-only rules.
func (c *Controller) RefreshBalance(ctx context.Context, tokenAddr domain.Address) error {
	c.mu.Lock()
	wallet, ok := c.wallets[tokenAddr]
	gen := c.generations[tokenAddr]
	c.mu.Unlock()

	if !ok {
		return ErrNoWallet
	}

	amount, fetchErr := c.service.FetchBalance(ctx, tokenAddr, wallet)

	reading := &domain.BalanceReading{
		Token:       tokenAddr,
		Wallet:      wallet,
		Amount:      amount,
		Available:   fetchErr == nil,
		EvaluatedAt: c.nowMs(),
	}

	c.mu.Lock()
	if c.generations[tokenAddr] != gen {
		c.mu.Unlock()
		observability.RecordStaleResultDropped()
		return nil
	}
	stored := false
	if prev, exists := c.balances[tokenAddr]; !exists || reading.EvaluatedAt >= prev.EvaluatedAt {
		c.balances[tokenAddr] = reading
		stored = true
	}
	c.mu.Unlock()

	if fetchErr != nil {
		observability.RecordRefreshFailure()
		return fmt.Errorf("refresh balance %s: %w", tokenAddr, fetchErr)
	}

	observability.RecordBalanceRefreshed(float64(reading.EvaluatedAt) / 1000)
	if stored && c.history != nil {
		readingCopy := *reading
		if err := c.history.InsertBulk(ctx, []*domain.BalanceReading{&readingCopy}); err != nil {
			return fmt.Errorf("record balance history: %w", err)
		}
	}
	return nil
}

// RefreshAll refreshes every token that has a wallet assigned and
// returns the first error encountered, after attempting all tokens.
func (c *Controller) RefreshAll(ctx context.Context) error {
	c.mu.Lock()
	addrs := make([]domain.Address, 0, len(c.wallets))
	for addr := range c.wallets {
		addrs = append(addrs, addr)
	}
	c.mu.Unlock()

	var firstErr error
	for _, addr := range addrs {
		if err := c.RefreshBalance(ctx, addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Tokens lists the registered fungible tokens.
func (c *Controller) Tokens(ctx context.Context) ([]*domain.TokenMetadata, error) {
	return c.tokens.List(ctx)
}

// NFTs lists the registered NFT contracts.
func (c *Controller) NFTs(ctx context.Context) ([]*domain.NFTMetadata, error) {
	return c.nfts.List(ctx)
}

func (c *Controller) updateRegistrySizes(ctx context.Context) {
	if tokens, err := c.tokens.List(ctx); err == nil {
		observability.UpdateRegistrySize("token", len(tokens))
	}
	if nfts, err := c.nfts.List(ctx); err == nil {
		observability.UpdateRegistrySize("nft", len(nfts))
	}
}
