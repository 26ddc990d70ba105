// Package format renders raw token amounts as human-readable
// fixed-point strings.
package format

import (
	"math/big"
	"strings"
)

// Units renders amount scaled down by 10^decimals. The fractional part
// is zero-padded to exactly decimals digits and then stripped of
// trailing zeros; a fully-stripped fraction leaves no decimal point.
// Arithmetic is exact big-integer math, valid for amounts up to
// 2^256-1 and decimals values of at least 18.
func Units(amount *big.Int, decimals int) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}
	if decimals <= 0 {
		return amount.String()
	}

	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole := new(big.Int).Quo(amount, denom)
	frac := new(big.Int).Mod(amount, denom)

	if frac.Sign() == 0 {
		return whole.String()
	}

	fracStr := frac.Text(10)
	if len(fracStr) < decimals {
		fracStr = strings.Repeat("0", decimals-len(fracStr)) + fracStr
	}
	fracStr = strings.TrimRight(fracStr, "0")
	return whole.String() + "." + fracStr
}
