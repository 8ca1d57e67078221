package pymarshal

import (
	"math/big"
	"strconv"
)

// Arbitrary ints travel as a digit vector in base 2^15: a signed
// 32-bit digit count whose sign is the sign of the value, then the
// digits as little-endian uint16 words, least significant first. A
// count of zero means the value zero, and the most significant digit
// of a nonzero value must itself be nonzero.

const (
	longShift = 15
	longBase  = 1 << longShift
	longMask  = longBase - 1
)

// longFromDigits reconstructs a big.Int from the wire digit vector.
// negative tells whether the digit count carried a minus sign.
func longFromDigits(digits []uint16, negative bool) (*big.Int, error) {
	v := new(big.Int)
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if d >= longBase {
			return nil, ErrBadDigit
		}
		v.Lsh(v, longShift)
		v.Or(v, big.NewInt(int64(d)))
	}
	if len(digits) > 0 && digits[len(digits)-1] == 0 {
		return nil, ErrUnnormalizedLong
	}
	if negative {
		v.Neg(v)
	}
	return v, nil
}

// digitsFromLong splits v into the wire digit vector. The returned
// slice is empty for zero.
func digitsFromLong(v *big.Int) (digits []uint16, negative bool) {
	negative = v.Sign() < 0
	abs := new(big.Int).Abs(v)
	mask := big.NewInt(longMask)
	d := new(big.Int)
	for abs.Sign() != 0 {
		d.And(abs, mask)
		digits = append(digits, uint16(d.Uint64()))
		abs.Rsh(abs, longShift)
	}
	return digits, negative
}

// parseFloatText parses the ASCII spelling of a text-form float.
func parseFloatText(s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrBadFloat
	}
	return f, nil
}

// formatFloatText returns the ASCII spelling to write for a text-form
// float whose source digits were not retained.
func formatFloatText(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
