package domain

import (
	"errors"
	"strings"
)

// ErrInvalidAddress is returned when an address string is not a
// 0x-prefixed 40-hex-digit EVM address.
var ErrInvalidAddress = errors.New("invalid address")

// Address is a 20-byte EVM account address in 0x-prefixed hex form.
// The canonical form is lowercase; all registry and balance map keys
// use the canonical form.
type Address string

// String returns the address as a string.
func (a Address) String() string { return string(a) }

// ValidAddress reports whether s is exactly "0x" followed by 40 hex digits.
// Mixed case is accepted.
func ValidAddress(s string) bool {
	if len(s) != 42 {
		return false
	}
	if s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return false
	}
	for i := 2; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// NormalizeAddress validates s and returns its canonical lowercase form.
// Returns ErrInvalidAddress if s is not a valid address.
func NormalizeAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !ValidAddress(s) {
		return "", ErrInvalidAddress
	}
	return Address(strings.ToLower(s)), nil
}
