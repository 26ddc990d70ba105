// Package main provides a one-shot balance query: fetch a token's
// metadata and a wallet's balance, print the formatted amount, exit.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/ethrpc"
	"evm-token-watch/internal/format"
	"evm-token-watch/internal/token"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("ETH_RPC_ENDPOINT"), "Ethereum JSON-RPC HTTP endpoint")
	tokenAddr := flag.String("token", "", "Token contract address (omit for the native ETH balance)")
	walletAddr := flag.String("wallet", "", "Wallet address")
	rpcTimeout := flag.Duration("rpc-timeout", ethrpc.DefaultTimeout, "HTTP request timeout")

	flag.Parse()

	logger := log.New(os.Stderr, "[balance] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *walletAddr == "" {
		logger.Fatal("--wallet is required")
	}

	wallet, err := domain.NormalizeAddress(*walletAddr)
	if err != nil {
		logger.Fatalf("Invalid wallet address %q: %v", *walletAddr, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*(*rpcTimeout))
	defer cancel()

	transport := ethrpc.NewClient(*rpcEndpoint, ethrpc.WithTimeout(*rpcTimeout))
	service := token.NewService(transport)

	// Native balance when no token is given. ETH has 18 decimals.
	if *tokenAddr == "" {
		amount, err := service.FetchNativeBalance(ctx, wallet)
		if err != nil {
			logger.Fatalf("Fetch native balance: %v", err)
		}
		fmt.Printf("%s ETH\n", format.Units(amount, 18))
		return
	}

	contract, err := domain.NormalizeAddress(*tokenAddr)
	if err != nil {
		logger.Fatalf("Invalid token address %q: %v", *tokenAddr, err)
	}

	start := time.Now()
	meta, err := service.FetchTokenMetadata(ctx, contract)
	if err != nil {
		logger.Fatalf("Fetch token metadata: %v", err)
	}

	amount, err := service.FetchBalance(ctx, contract, wallet)
	if err != nil {
		logger.Fatalf("Fetch balance: %v", err)
	}

	logger.Printf("Queried %s in %v", contract, time.Since(start))
	fmt.Printf("%s %s\n", format.Units(amount, int(meta.Decimals)), meta.Symbol)
}
