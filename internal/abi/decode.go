package abi

import (
	"errors"
	"fmt"
	"math/big"

	"evm-token-watch/internal/hexenc"
)

// ErrDecode is returned (possibly wrapped) for any return payload that
// cannot be decoded: odd-length hex, truncated buffers, or length
// headers that do not fit the buffer. Callers treat it as "no value
// available", distinct from a transport-layer failure.
var ErrDecode = errors.New("abi: undecodable payload")

// StringKind identifies which of the two deployed string-return
// conventions a payload used.
type StringKind int

const (
	// FixedBytes32 is the legacy convention: a single right-padded
	// 32-byte word holding a zero-terminated ASCII run.
	FixedBytes32 StringKind = iota

	// DynamicString is the standard convention: offset word, length
	// word, then the byte payload.
	DynamicString
)

// DecodedString is the tagged result of decoding a string-typed return
// value. Value is empty when the payload held no characters.
type DecodedString struct {
	Kind  StringKind
	Value string
}

// DecodeString decodes a raw eth_call return payload as a string,
// tolerating both deployed conventions. A payload of exactly 32 bytes
// is treated as a fixed bytes32 run; anything else as a dynamic string.
//
// For dynamic strings the first (offset) word is ignored and the data
// is read immediately after the two header words. That is correct only
// for single, non-nested dynamic returns, which is all this codec
// supports.
func DecodeString(payload string) (DecodedString, error) {
	data, err := hexenc.DecodeBytes(payload)
	if err != nil {
		return DecodedString{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	if len(data) == 32 {
		return DecodedString{Kind: FixedBytes32, Value: fixedRun(data)}, nil
	}

	if len(data) < 64 {
		return DecodedString{}, fmt.Errorf("%w: dynamic payload shorter than header (%d bytes)", ErrDecode, len(data))
	}

	length := new(big.Int).SetBytes(data[32:64])
	if !length.IsInt64() {
		return DecodedString{}, fmt.Errorf("%w: implausible length header", ErrDecode)
	}
	n := length.Int64()
	if n < 0 || int64(len(data)-64) < n {
		return DecodedString{}, fmt.Errorf("%w: length %d exceeds payload", ErrDecode, n)
	}

	return DecodedString{Kind: DynamicString, Value: string(data[64 : 64+n])}, nil
}

// fixedRun reads bytes left to right, stopping at the first zero byte.
func fixedRun(word []byte) string {
	end := len(word)
	for i, b := range word {
		if b == 0 {
			end = i
			break
		}
	}
	return string(word[:end])
}

// DecodeBig decodes a uint256 return payload. A call that legitimately
// returns zero decodes to 0, not to a failure.
func DecodeBig(payload string) (*big.Int, error) {
	n, err := hexenc.ParseBig(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return n, nil
}
