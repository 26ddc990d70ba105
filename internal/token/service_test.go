package token

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"testing"

	"evm-token-watch/internal/abi"
	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/ethrpc/stub"
)

const (
	tokenAddr  = domain.Address("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	walletAddr = domain.Address("0x1111111111111111111111111111111111111111")
)

func word(n int64) string {
	digits := big.NewInt(n).Text(16)
	return strings.Repeat("0", 64-len(digits)) + digits
}

// dynamicString encodes a string return in the standard dynamic layout.
func dynamicString(s string) string {
	padded := hex.EncodeToString([]byte(s))
	if rem := len(padded) % 64; rem != 0 {
		padded += strings.Repeat("0", 64-rem)
	}
	return "0x" + word(32) + word(int64(len(s))) + padded
}

// fixedString encodes a string return in the legacy bytes32 layout.
func fixedString(s string) string {
	return "0x" + hex.EncodeToString([]byte(s)) + strings.Repeat("00", 32-len(s))
}

func TestService_FetchTokenMetadata(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorDecimals, "0x"+word(6))
	transport.RespondCall(tokenAddr.String(), abi.SelectorSymbol, dynamicString("USDC"))

	svc := NewService(transport)

	meta, err := svc.FetchTokenMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("FetchTokenMetadata: %v", err)
	}

	if meta.Address != tokenAddr {
		t.Errorf("address mismatch: %s", meta.Address)
	}
	if meta.Decimals != 6 {
		t.Errorf("expected decimals 6, got %d", meta.Decimals)
	}
	if meta.Symbol != "USDC" {
		t.Errorf("expected symbol USDC, got %q", meta.Symbol)
	}
	if meta.RegisteredAt == 0 {
		t.Error("expected RegisteredAt to be set")
	}
}

func TestService_FetchTokenMetadata_Bytes32Symbol(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorDecimals, "0x"+word(18))
	transport.RespondCall(tokenAddr.String(), abi.SelectorSymbol, fixedString("MKR"))

	svc := NewService(transport)

	meta, err := svc.FetchTokenMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("FetchTokenMetadata: %v", err)
	}
	if meta.Symbol != "MKR" {
		t.Errorf("expected symbol MKR, got %q", meta.Symbol)
	}
}

func TestService_FetchTokenMetadata_SymbolBestEffort(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorDecimals, "0x"+word(8))
	transport.FailCall(tokenAddr.String(), abi.SelectorSymbol, errors.New("execution reverted"))

	svc := NewService(transport)

	meta, err := svc.FetchTokenMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("symbol failure must not fail the fetch: %v", err)
	}
	if meta.Symbol != Unknown {
		t.Errorf("expected %q, got %q", Unknown, meta.Symbol)
	}
	if meta.Decimals != 8 {
		t.Errorf("expected decimals 8, got %d", meta.Decimals)
	}
}

func TestService_FetchTokenMetadata_DecimalsRequired(t *testing.T) {
	transport := stub.NewTransport()
	transport.FailCall(tokenAddr.String(), abi.SelectorDecimals, errors.New("execution reverted"))
	transport.RespondCall(tokenAddr.String(), abi.SelectorSymbol, dynamicString("USDC"))

	svc := NewService(transport)

	if _, err := svc.FetchTokenMetadata(context.Background(), tokenAddr); err == nil {
		t.Fatal("decimals failure must fail the fetch")
	}
}

func TestService_FetchTokenMetadata_UndecodableDecimalsDefaults(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorDecimals, "0xnothex")
	transport.RespondCall(tokenAddr.String(), abi.SelectorSymbol, dynamicString("WEIRD"))

	svc := NewService(transport)

	meta, err := svc.FetchTokenMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("undecodable decimals must not fail the fetch: %v", err)
	}
	if meta.Decimals != DefaultDecimals {
		t.Errorf("expected default decimals %d, got %d", DefaultDecimals, meta.Decimals)
	}
}

func TestService_FetchTokenMetadata_OversizeDecimalsDefaults(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorDecimals, "0x"+word(4096))
	transport.RespondCall(tokenAddr.String(), abi.SelectorSymbol, dynamicString("BIG"))

	svc := NewService(transport)

	meta, err := svc.FetchTokenMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("FetchTokenMetadata: %v", err)
	}
	if meta.Decimals != DefaultDecimals {
		t.Errorf("expected default decimals %d, got %d", DefaultDecimals, meta.Decimals)
	}
}

func TestService_FetchNFTMetadata(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorName, dynamicString("CryptoThing"))
	transport.RespondCall(tokenAddr.String(), abi.SelectorSymbol, dynamicString("CT"))

	svc := NewService(transport)

	meta, err := svc.FetchNFTMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("FetchNFTMetadata: %v", err)
	}
	if meta.Name != "CryptoThing" || meta.Symbol != "CT" {
		t.Errorf("unexpected metadata: %+v", meta)
	}
}

func TestService_FetchNFTMetadata_AllBestEffort(t *testing.T) {
	transport := stub.NewTransport()
	transport.FailCall(tokenAddr.String(), abi.SelectorName, errors.New("execution reverted"))
	// symbol deliberately not scripted: unscripted slots fail too.

	svc := NewService(transport)

	meta, err := svc.FetchNFTMetadata(context.Background(), tokenAddr)
	if err != nil {
		t.Fatalf("NFT metadata fetch must never fail: %v", err)
	}
	if meta.Name != Unknown || meta.Symbol != Unknown {
		t.Errorf("expected both fields %q, got %+v", Unknown, meta)
	}
}

func TestService_FetchBalance(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorBalanceOf, "0x"+word(123456789))

	svc := NewService(transport)

	bal, err := svc.FetchBalance(context.Background(), tokenAddr, walletAddr)
	if err != nil {
		t.Fatalf("FetchBalance: %v", err)
	}
	if bal.Cmp(big.NewInt(123456789)) != 0 {
		t.Errorf("expected 123456789, got %s", bal)
	}
}

func TestService_FetchBalance_Zero(t *testing.T) {
	transport := stub.NewTransport()
	transport.RespondCall(tokenAddr.String(), abi.SelectorBalanceOf, "0x"+strings.Repeat("0", 64))

	svc := NewService(transport)

	bal, err := svc.FetchBalance(context.Background(), tokenAddr, walletAddr)
	if err != nil {
		t.Fatalf("a zero balance is not a failure: %v", err)
	}
	if bal.Sign() != 0 {
		t.Errorf("expected 0, got %s", bal)
	}
}

func TestService_FetchBalance_Propagates(t *testing.T) {
	transport := stub.NewTransport()
	transport.FailCall(tokenAddr.String(), abi.SelectorBalanceOf, errors.New("connection refused"))

	svc := NewService(transport)

	if _, err := svc.FetchBalance(context.Background(), tokenAddr, walletAddr); err == nil {
		t.Fatal("balance failures must propagate")
	}
}

func TestService_FetchNativeBalance(t *testing.T) {
	transport := stub.NewTransport()
	transport.Respond("eth_getBalance", walletAddr.String(), "0xde0b6b3a7640000")

	svc := NewService(transport)

	bal, err := svc.FetchNativeBalance(context.Background(), walletAddr)
	if err != nil {
		t.Fatalf("FetchNativeBalance: %v", err)
	}
	want := new(big.Int)
	want.SetString("de0b6b3a7640000", 16)
	if bal.Cmp(want) != 0 {
		t.Errorf("expected %s, got %s", want, bal)
	}
}
