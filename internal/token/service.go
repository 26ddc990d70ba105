// Package token answers the three domain queries against token
// contracts: fungible metadata (symbol, decimals), NFT metadata
// (name, symbol), and balanceOf. It composes the ABI codec with the
// RPC transport; it never validates addresses itself and expects
// callers to pass pre-validated, normalized addresses.
package token

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"evm-token-watch/internal/abi"
	"evm-token-watch/internal/domain"
	"evm-token-watch/internal/ethrpc"
	"evm-token-watch/internal/observability"
)

// Unknown is the sentinel rendered for best-effort metadata fields
// whose query failed or produced nothing decodable.
const Unknown = "?"

// DefaultDecimals is assumed when a decimals() reply cannot be
// interpreted as a number in uint8 range. 18 is the overwhelmingly
// common value for ERC-20 deployments.
const DefaultDecimals = 18

// Service runs token queries over a Transport.
type Service struct {
	transport ethrpc.Transport
}

// NewService creates a query service on the given transport.
func NewService(transport ethrpc.Transport) *Service {
	return &Service{transport: transport}
}

// FetchTokenMetadata queries decimals() and symbol() for a fungible
// token in one batch. decimals is required: a transport or node
// failure for it fails the whole fetch. symbol is best-effort and
// degrades to Unknown. An undecodable decimals payload degrades to
// DefaultDecimals rather than failing.
func (s *Service) FetchTokenMetadata(ctx context.Context, addr domain.Address) (*domain.TokenMetadata, error) {
	reqs, err := callRequests(addr, abi.SelectorDecimals, abi.SelectorSymbol)
	if err != nil {
		return nil, err
	}

	results, err := s.transport.CallBatch(ctx, reqs)
	if err != nil {
		return nil, fmt.Errorf("fetch token metadata: %w", err)
	}

	if results[0].Err != nil {
		return nil, fmt.Errorf("fetch decimals: %w", results[0].Err)
	}
	decimals := decodeDecimals(results[0].Value)

	symbol := decodeText(results[1], "symbol")

	return &domain.TokenMetadata{
		Address:      addr,
		Symbol:       symbol,
		Decimals:     decimals,
		RegisteredAt: time.Now().UnixMilli(),
	}, nil
}

// FetchNFTMetadata queries name() and symbol() for an ERC-721-like
// contract in one batch. Both fields are best-effort: any failure
// (transport, node, or decode) leaves the field as Unknown, and the
// record is still complete.
func (s *Service) FetchNFTMetadata(ctx context.Context, addr domain.Address) (*domain.NFTMetadata, error) {
	reqs, err := callRequests(addr, abi.SelectorName, abi.SelectorSymbol)
	if err != nil {
		return nil, err
	}

	meta := &domain.NFTMetadata{
		Address:      addr,
		Name:         Unknown,
		Symbol:       Unknown,
		RegisteredAt: time.Now().UnixMilli(),
	}

	results, err := s.transport.CallBatch(ctx, reqs)
	if err != nil {
		// Whole-batch delivery failure degrades both fields.
		return meta, nil
	}

	meta.Name = decodeText(results[0], "name")
	meta.Symbol = decodeText(results[1], "symbol")
	return meta, nil
}

// FetchBalance queries balanceOf(wallet) on the token contract.
// Failures propagate; a legitimate zero balance decodes to 0.
func (s *Service) FetchBalance(ctx context.Context, tokenAddr, wallet domain.Address) (*big.Int, error) {
	data, err := abi.EncodeCall(abi.SelectorBalanceOf, wallet.String())
	if err != nil {
		return nil, err
	}

	raw, err := s.transport.Call(ctx, ethrpc.EthCallRequest(tokenAddr.String(), data))
	if err != nil {
		return nil, fmt.Errorf("fetch balance: %w", err)
	}

	payload, err := ethrpc.ResultString(raw)
	if err != nil {
		return nil, err
	}

	n, err := abi.DecodeBig(payload)
	if err != nil {
		observability.RecordDecodeFailure("balance")
		return nil, fmt.Errorf("decode balance: %w", err)
	}
	return n, nil
}

// FetchNativeBalance queries the chain-native balance of a wallet via
// eth_getBalance.
func (s *Service) FetchNativeBalance(ctx context.Context, wallet domain.Address) (*big.Int, error) {
	raw, err := s.transport.Call(ctx, ethrpc.GetBalanceRequest(wallet.String()))
	if err != nil {
		return nil, fmt.Errorf("fetch native balance: %w", err)
	}

	payload, err := ethrpc.ResultString(raw)
	if err != nil {
		return nil, err
	}

	n, err := abi.DecodeBig(payload)
	if err != nil {
		observability.RecordDecodeFailure("balance")
		return nil, fmt.Errorf("decode native balance: %w", err)
	}
	return n, nil
}

// callRequests builds one no-parameter eth_call per selector.
func callRequests(addr domain.Address, selectors ...string) ([]ethrpc.Request, error) {
	reqs := make([]ethrpc.Request, len(selectors))
	for i, sel := range selectors {
		data, err := abi.EncodeCall(sel)
		if err != nil {
			return nil, err
		}
		reqs[i] = ethrpc.EthCallRequest(addr.String(), data)
	}
	return reqs, nil
}

// decodeDecimals interprets a decimals() payload, coercing anything
// outside uint8 range or undecodable to DefaultDecimals.
func decodeDecimals(raw []byte) uint8 {
	payload, err := ethrpc.ResultString(raw)
	if err != nil {
		observability.RecordDecodeFailure("decimals")
		return DefaultDecimals
	}
	n, err := abi.DecodeBig(payload)
	if err != nil {
		observability.RecordDecodeFailure("decimals")
		return DefaultDecimals
	}
	if !n.IsUint64() || n.Uint64() > 255 {
		observability.RecordDecodeFailure("decimals")
		return DefaultDecimals
	}
	return uint8(n.Uint64())
}

// decodeText interprets one best-effort string slot, degrading to
// Unknown on any failure or empty run.
func decodeText(res ethrpc.Result, field string) string {
	if res.Err != nil {
		return Unknown
	}
	payload, err := ethrpc.ResultString(res.Value)
	if err != nil {
		observability.RecordDecodeFailure(field)
		return Unknown
	}
	decoded, err := abi.DecodeString(payload)
	if err != nil {
		observability.RecordDecodeFailure(field)
		return Unknown
	}
	s := cleanText(decoded.Value)
	if s == "" {
		return Unknown
	}
	return s
}

// cleanText strips stray NUL bytes and surrounding whitespace that
// badly-encoded contracts leave in string returns.
func cleanText(s string) string {
	s = strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
