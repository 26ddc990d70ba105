// Package abi is a hand-rolled micro-codec for the small slice of the
// Ethereum ABI this project needs: encoding selector calls with static
// address parameters, and decoding uint256 and string return values.
// It deliberately does not implement the general ABI type system
// (arrays, tuples, nested dynamic types are out of scope).
package abi

import (
	"fmt"
	"strings"

	"evm-token-watch/internal/hexenc"
)

// Function selectors used by the token queries. These are protocol
// constants (first 4 bytes of the keccak256 signature hash), never
// computed at runtime.
const (
	SelectorBalanceOf = "0x70a08231" // balanceOf(address)
	SelectorDecimals  = "0x313ce567" // decimals()
	SelectorSymbol    = "0x95d89b41" // symbol()
	SelectorName      = "0x06fdde03" // name()
)

// selectorHexLen is the selector length in hex digits after the prefix.
const selectorHexLen = 8

// EncodeCall builds eth_call calldata: the 4-byte selector followed by
// one 32-byte-aligned word per address parameter. A call with no
// parameters is exactly the selector. Addresses are lowercased before
// padding.
func EncodeCall(selector string, addrParams ...string) (string, error) {
	if len(selector) != 2+selectorHexLen || !strings.HasPrefix(selector, "0x") {
		return "", fmt.Errorf("abi: invalid selector %q", selector)
	}

	var b strings.Builder
	b.WriteString(selector)

	for _, addr := range addrParams {
		digits := strings.TrimPrefix(strings.ToLower(addr), "0x")
		if len(digits) != 40 {
			return "", fmt.Errorf("abi: address parameter must be 40 hex digits, got %d", len(digits))
		}
		word, err := hexenc.PadLeft32(digits)
		if err != nil {
			return "", fmt.Errorf("abi: pad address parameter: %w", err)
		}
		b.WriteString(word)
	}

	return b.String(), nil
}
