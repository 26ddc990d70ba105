package format

import (
	"math/big"
	"strings"
	"testing"
)

func TestUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string // decimal
		decimals int
		want     string
	}{
		{"eighteen decimals", "1234567890123456789", 18, "1.234567890123456789"},
		{"whole value", "1000000000000000000", 18, "1"},
		{"zero", "0", 18, "0"},
		{"no decimals", "5", 0, "5"},
		{"trailing zeros trimmed", "1500000000000000000", 18, "1.5"},
		{"sub-one value", "5000", 6, "0.005"},
		{"six decimals usdc-like", "12345678", 6, "12.345678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, ok := new(big.Int).SetString(tt.amount, 10)
			if !ok {
				t.Fatalf("bad test amount %s", tt.amount)
			}
			if got := Units(amount, tt.decimals); got != tt.want {
				t.Errorf("Units(%s, %d) = %q, want %q", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestUnits_MaxUint256Exact(t *testing.T) {
	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

	got := Units(max, 18)

	// 2^256-1 = 115792089237316195423570985008687907853269984665640564039457.584007913129639935 * 10^18
	want := "115792089237316195423570985008687907853269984665640564039457.584007913129639935"
	if got != want {
		t.Errorf("Units(2^256-1, 18) = %q, want %q", got, want)
	}
	if strings.Contains(got, "e") {
		t.Error("output must never use scientific notation")
	}
}

func TestUnits_Nil(t *testing.T) {
	if got := Units(nil, 18); got != "0" {
		t.Errorf("Units(nil) = %q, want 0", got)
	}
}
