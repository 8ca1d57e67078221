package pymarshal

import (
	"errors"
	"math/big"
	"testing"
)

func TestLongDigits(t *testing.T) {
	tests := []struct {
		value  string
		digits []uint16
		neg    bool
	}{
		{"0", nil, false},
		{"1", []uint16{1}, false},
		{"-1", []uint16{1}, true},
		{"32767", []uint16{32767}, false},     // largest 1-digit value
		{"32768", []uint16{0, 1}, false},      // smallest 2-digit value
		{"32769", []uint16{1, 1}, false},
		{"-32768", []uint16{0, 1}, true},
		{"1073741824", []uint16{0, 0, 1}, false}, // 2^30
		{"1099511627776", []uint16{0, 0, 1024}, false},
		{"340282366920938463463374607431768211456", // 2^128
			[]uint16{0, 0, 0, 0, 0, 0, 0, 0, 256}, false},
	}
	for _, tt := range tests {
		v := bigInt(tt.value)

		digits, neg := digitsFromLong(v)
		if !equalDigits(digits, tt.digits) || neg != tt.neg {
			t.Errorf("digitsFromLong(%s) = %v/%v, want %v/%v",
				tt.value, digits, neg, tt.digits, tt.neg)
		}

		back, err := longFromDigits(tt.digits, tt.neg)
		if err != nil {
			t.Errorf("longFromDigits(%v) error: %v", tt.digits, err)
			continue
		}
		if back.Cmp(v) != 0 {
			t.Errorf("longFromDigits(%v) = %s, want %s", tt.digits, back, tt.value)
		}
	}
}

func equalDigits(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLongFromDigitsErrors(t *testing.T) {
	// digit value 2^15 is one past the top of the digit range
	if _, err := longFromDigits([]uint16{1 << 15}, false); !errors.Is(err, ErrBadDigit) {
		t.Errorf("digit 2^15: got %v, want ErrBadDigit", err)
	}
	if _, err := longFromDigits([]uint16{0xffff}, false); !errors.Is(err, ErrBadDigit) {
		t.Errorf("digit 0xffff: got %v, want ErrBadDigit", err)
	}
	// a zero most significant digit has a shorter equal spelling
	if _, err := longFromDigits([]uint16{1, 0}, false); !errors.Is(err, ErrUnnormalizedLong) {
		t.Errorf("trailing zero digit: got %v, want ErrUnnormalizedLong", err)
	}
	if _, err := longFromDigits([]uint16{0}, false); !errors.Is(err, ErrUnnormalizedLong) {
		t.Errorf("single zero digit: got %v, want ErrUnnormalizedLong", err)
	}
	// the boundary digit itself is fine
	if v, err := longFromDigits([]uint16{1<<15 - 1}, false); err != nil || v.Int64() != 32767 {
		t.Errorf("digit 2^15-1: got %v, %v", v, err)
	}
}

func TestFloatText(t *testing.T) {
	for _, s := range []string{"1.5", "-0.25", "1e300", "0.0", "-0.0", "inf", "-inf"} {
		f, err := parseFloatText(s)
		if err != nil {
			t.Errorf("parseFloatText(%q): %v", s, err)
			continue
		}
		back, err := parseFloatText(formatFloatText(f))
		if err != nil || back != f {
			t.Errorf("formatFloatText(%v) does not parse back: %v %v", f, back, err)
		}
	}

	for _, s := range []string{"", "abc", "1.5x", "0x10"} {
		if _, err := parseFloatText(s); !errors.Is(err, ErrBadFloat) {
			t.Errorf("parseFloatText(%q): got %v, want ErrBadFloat", s, err)
		}
	}
}

func TestLongKindSelection(t *testing.T) {
	tests := []struct {
		value *big.Int
		want  Kind
	}{
		{big.NewInt(0), KindInt},
		{big.NewInt(2147483647), KindInt},
		{big.NewInt(-2147483648), KindInt},
		{big.NewInt(2147483648), KindLong},
		{big.NewInt(-2147483649), KindLong},
		{bigInt("18446744073709551616"), KindLong},
	}
	for _, tt := range tests {
		if got := (Long{Value: tt.value}).longKind(); got != tt.want {
			t.Errorf("longKind(%s) = %v, want %v", tt.value, got, tt.want)
		}
	}

	// explicit provenance wins over the canonical choice
	l := Long{Value: big.NewInt(1), Kind: KindInt64}
	if got := l.longKind(); got != KindInt64 {
		t.Errorf("longKind with provenance = %v, want int64", got)
	}
}
