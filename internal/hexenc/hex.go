// Package hexenc converts between 0x-prefixed hex strings and unsigned
// big integers or byte sequences. It has no dependency above the
// standard library and is shared by the ABI codec and the RPC layer.
package hexenc

import (
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
)

var (
	// ErrMalformedHex is returned when a string is not valid
	// 0x-prefixed hexadecimal.
	ErrMalformedHex = errors.New("malformed hex string")

	// ErrOversizeValue is returned when a hex digit string does not fit
	// into a single 32-byte word.
	ErrOversizeValue = errors.New("value exceeds 32 bytes")
)

// wordHexLen is the length of one ABI word in hex digits.
const wordHexLen = 64

// ParseBig parses a 0x-prefixed hex string of arbitrary length as a
// big-endian unsigned integer. A bare "0x" parses as zero.
func ParseBig(s string) (*big.Int, error) {
	digits, ok := stripPrefix(s)
	if !ok {
		return nil, ErrMalformedHex
	}
	if digits == "" {
		return new(big.Int), nil
	}
	for i := 0; i < len(digits); i++ {
		if !isHexDigit(digits[i]) {
			return nil, ErrMalformedHex
		}
	}
	n, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, ErrMalformedHex
	}
	return n, nil
}

// PadLeft32 left-pads a hex digit string (no 0x prefix) with zeros to
// exactly 64 digits. Returns ErrOversizeValue if the input is already
// longer than 64 digits.
func PadLeft32(digits string) (string, error) {
	if len(digits) > wordHexLen {
		return "", ErrOversizeValue
	}
	if len(digits) == wordHexLen {
		return digits, nil
	}
	return strings.Repeat("0", wordHexLen-len(digits)) + digits, nil
}

// DecodeBytes decodes a 0x-prefixed hex payload into raw bytes.
// Odd-length or non-hex input returns ErrMalformedHex.
func DecodeBytes(s string) ([]byte, error) {
	digits, ok := stripPrefix(s)
	if !ok {
		return nil, ErrMalformedHex
	}
	b, err := hex.DecodeString(digits)
	if err != nil {
		return nil, ErrMalformedHex
	}
	return b, nil
}

// stripPrefix removes a 0x/0X prefix, reporting whether one was present.
func stripPrefix(s string) (string, bool) {
	if len(s) < 2 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return "", false
	}
	return s[2:], true
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
