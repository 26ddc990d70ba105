package hexenc

import (
	"errors"
	"math/big"
	"strings"
	"testing"
)

func TestParseBig(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // decimal
	}{
		{"zero word", "0x0000000000000000000000000000000000000000000000000000000000000000", "0"},
		{"bare prefix", "0x", "0"},
		{"one", "0x1", "1"},
		{"mixed case", "0xDeadBeef", "3735928559"},
		{"max uint256", "0x" + strings.Repeat("f", 64), new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)).String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := ParseBig(tt.input)
			if err != nil {
				t.Fatalf("ParseBig(%q): %v", tt.input, err)
			}
			if n.String() != tt.want {
				t.Errorf("ParseBig(%q) = %s, want %s", tt.input, n.String(), tt.want)
			}
		})
	}
}

func TestParseBig_Malformed(t *testing.T) {
	inputs := []string{"", "0", "1234", "0xzz", "0x12g4", "deadbeef", "-0x1", "0x-1"}

	for _, input := range inputs {
		if _, err := ParseBig(input); !errors.Is(err, ErrMalformedHex) {
			t.Errorf("ParseBig(%q): expected ErrMalformedHex, got %v", input, err)
		}
	}
}

func TestPadLeft32(t *testing.T) {
	got, err := PadLeft32("abc")
	if err != nil {
		t.Fatalf("PadLeft32: %v", err)
	}
	if len(got) != 64 {
		t.Fatalf("expected 64 digits, got %d", len(got))
	}
	if !strings.HasSuffix(got, "abc") || !strings.HasPrefix(got, "0") {
		t.Errorf("unexpected padding: %s", got)
	}

	full := strings.Repeat("1", 64)
	got, err = PadLeft32(full)
	if err != nil {
		t.Fatalf("PadLeft32 full word: %v", err)
	}
	if got != full {
		t.Errorf("full word should pass through unchanged")
	}
}

func TestPadLeft32_Oversize(t *testing.T) {
	if _, err := PadLeft32(strings.Repeat("1", 65)); !errors.Is(err, ErrOversizeValue) {
		t.Errorf("expected ErrOversizeValue, got %v", err)
	}
}

func TestDecodeBytes(t *testing.T) {
	b, err := DecodeBytes("0x48656c6c6f")
	if err != nil {
		t.Fatalf("DecodeBytes: %v", err)
	}
	if string(b) != "Hello" {
		t.Errorf("expected Hello, got %q", string(b))
	}

	if _, err := DecodeBytes("0x123"); !errors.Is(err, ErrMalformedHex) {
		t.Errorf("odd-length input: expected ErrMalformedHex, got %v", err)
	}
	if _, err := DecodeBytes("48656c"); !errors.Is(err, ErrMalformedHex) {
		t.Errorf("missing prefix: expected ErrMalformedHex, got %v", err)
	}
}
