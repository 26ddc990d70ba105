// Package main provides the long-running watcher: it registers tokens
// from the command line, assigns wallets, and refreshes balances on a
// periodic ticker and (optionally) on every new chain head delivered
// over WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"evm-token-watch/internal/ethrpc"
	"evm-token-watch/internal/format"
	"evm-token-watch/internal/hexenc"
	"evm-token-watch/internal/observability"
	"evm-token-watch/internal/storage"
	chstore "evm-token-watch/internal/storage/clickhouse"
	"evm-token-watch/internal/storage/memory"
	"evm-token-watch/internal/storage/migrations"
	pgstore "evm-token-watch/internal/storage/postgres"
	"evm-token-watch/internal/token"
	"evm-token-watch/internal/watch"
)

type stores struct {
	tokens  storage.TokenRegistryStore
	nfts    storage.NFTRegistryStore
	history storage.BalanceHistoryStore
}

func main() {
	loadEnvFile()

	// Parse flags (env vars as defaults)
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum JSON-RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("ETH_WS_ENDPOINT"), "Ethereum WebSocket endpoint (enables newHeads refresh trigger)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for the registries")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for balance history")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	tokens := flag.String("tokens", "", "Comma-separated token=wallet pairs to watch")
	nfts := flag.String("nfts", "", "Comma-separated NFT contract addresses to register")
	refreshInterval := flag.Duration("refresh-interval", 30*time.Second, "Periodic balance refresh interval")
	rpcTimeout := flag.Duration("rpc-timeout", ethrpc.DefaultTimeout, "HTTP request timeout")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	pairs, err := parseWatchPairs(*tokens)
	if err != nil {
		logger.Fatalf("Invalid --tokens: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	transport := ethrpc.NewClient(*rpcEndpoint, ethrpc.WithTimeout(*rpcTimeout))
	service := token.NewService(transport)
	controller := watch.NewController(service, st.tokens, st.nfts, watch.WithHistory(st.history))

	// Register the requested watchlist up front; a token that is already
	// in the registry (previous run against the same database) is fine.
	for _, p := range pairs {
		if _, err := controller.RegisterToken(ctx, p.token); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatalf("Register token %s: %v", p.token, err)
		}
		if err := controller.SetWallet(ctx, p.token, p.wallet); err != nil {
			logger.Fatalf("Set wallet for %s: %v", p.token, err)
		}
	}
	for _, addr := range splitList(*nfts) {
		if _, err := controller.RegisterNFT(ctx, addr); err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			logger.Fatalf("Register NFT %s: %v", addr, err)
		}
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	go startHTTPServer(logger, *metricsAddr)

	if err := run(ctx, logger, transport, controller, *wsEndpoint, *refreshInterval); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Watcher error: %v", err)
	}

	logger.Println("Shutdown complete")
}

type watchPair struct {
	token  string
	wallet string
}

// parseWatchPairs parses "token=wallet,token=wallet" flag syntax.
func parseWatchPairs(raw string) ([]watchPair, error) {
	var pairs []watchPair
	for _, entry := range splitList(raw) {
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("expected token=wallet, got %q", entry)
		}
		pairs = append(pairs, watchPair{
			token:  strings.TrimSpace(parts[0]),
			wallet: strings.TrimSpace(parts[1]),
		})
	}
	return pairs, nil
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// createStores selects the storage backends and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		return &stores{
			tokens:  memory.NewTokenRegistryStore(),
			nfts:    memory.NewNFTRegistryStore(),
			history: memory.NewBalanceHistoryStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	st := &stores{
		tokens:  pgstore.NewTokenRegistryStore(pool),
		nfts:    pgstore.NewNFTRegistryStore(pool),
		history: chstore.NewBalanceHistoryStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

// run refreshes all watched balances on every tick and, when a WS
// endpoint is configured, on every new chain head as well.
func run(ctx context.Context, logger *log.Logger, transport *ethrpc.Client, controller *watch.Controller, wsEndpoint string, refreshInterval time.Duration) error {
	// nil channel: the heads case never fires without a WS endpoint
	var heads <-chan ethrpc.Head
	if wsEndpoint != "" {
		sub, err := ethrpc.NewHeadSubscriber(ctx, wsEndpoint, nil)
		if err != nil {
			return fmt.Errorf("subscribe to newHeads: %w", err)
		}
		defer sub.Close()
		heads = sub.Heads()
		logger.Printf("Subscribed to newHeads on %s", wsEndpoint)
	}

	logBlockNumber(ctx, logger, transport)

	// Refresh once on startup so balances are populated immediately
	refresh(ctx, logger, controller)

	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case head, ok := <-heads:
			if !ok {
				return errors.New("head subscription closed")
			}
			logger.Printf("New head %s", head.Number)
			refresh(ctx, logger, controller)
		case <-ticker.C:
			refresh(ctx, logger, controller)
		}
	}
}

func refresh(ctx context.Context, logger *log.Logger, controller *watch.Controller) {
	if err := controller.RefreshAll(ctx); err != nil {
		logger.Printf("Refresh error: %v", err)
	}

	tokens, err := controller.Tokens(ctx)
	if err != nil {
		logger.Printf("List tokens error: %v", err)
		return
	}
	for _, meta := range tokens {
		reading, ok := controller.Balance(meta.Address)
		if !ok {
			continue
		}
		if !reading.Available {
			logger.Printf("%s %s: unavailable", meta.Symbol, meta.Address)
			continue
		}
		logger.Printf("%s %s: %s", meta.Symbol, meta.Address, format.Units(reading.Amount, int(meta.Decimals)))
	}
}

// logBlockNumber logs the current chain head as a liveness check.
func logBlockNumber(ctx context.Context, logger *log.Logger, transport *ethrpc.Client) {
	raw, err := transport.Call(ctx, ethrpc.Request{Method: "eth_blockNumber"})
	if err != nil {
		logger.Printf("eth_blockNumber failed: %v", err)
		return
	}
	hexNum, err := ethrpc.ResultString(raw)
	if err != nil {
		logger.Printf("eth_blockNumber malformed: %v", err)
		return
	}
	if n, err := hexenc.ParseBig(hexNum); err == nil {
		logger.Printf("Connected, current block %s", n)
	}
}

func startHTTPServer(logger *log.Logger, addr string) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())

	logger.Printf("Starting HTTP server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Printf("HTTP server error: %v", err)
	}
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
