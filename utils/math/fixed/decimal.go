// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixed

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

var (
	ErrInvalidDecimalFormat = errors.New("invalid decimal format")
	ErrUint256Overflow      = errors.New("value does not fit in 256 bits")
)

// ToDecimal renders a scaled integer as a decimal string with trailing
// fractional zeros trimmed, e.g. 1_500000000000000000 -> "1.5". Negative
// values are prefixed with "-".
func (m *Math) ToDecimal(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0"
	}

	digits := new(big.Int).Abs(v).String()
	width := int(m.decimals)
	if len(digits) <= width {
		digits = strings.Repeat("0", width-len(digits)+1) + digits
	}

	whole := digits[:len(digits)-width]
	frac := strings.TrimRight(digits[len(digits)-width:], "0")

	var sb strings.Builder
	if v.Sign() < 0 {
		sb.WriteByte('-')
	}
	sb.WriteString(whole)
	if frac != "" {
		sb.WriteByte('.')
		sb.WriteString(frac)
	}
	return sb.String()
}

// FromDecimal parses an unsigned decimal string into a scaled integer.
// Fractional digits beyond the scale are truncated, not rounded. Signed
// strings are rejected; see FromSignedDecimal.
func (m *Math) FromDecimal(s string) (*big.Int, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimalFormat, s)
	}
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimalFormat, s)
	}
	width := int(m.decimals)
	if len(frac) > width {
		frac = frac[:width]
	}
	frac += strings.Repeat("0", width-len(frac))

	v, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimalFormat, s)
	}
	return v, nil
}

// FromSignedDecimal is FromDecimal with an optional leading "-", the inverse
// of ToDecimal for negative values such as net worth.
func (m *Math) FromSignedDecimal(s string) (*big.Int, error) {
	unsigned, negative := strings.CutPrefix(s, "-")
	v, err := m.FromDecimal(unsigned)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDecimalFormat, s)
	}
	if negative {
		v.Neg(v)
	}
	return v, nil
}

// MustFromDecimal is like FromDecimal but panics on malformed input. It is
// intended for constants and tests.
func (m *Math) MustFromDecimal(s string) *big.Int {
	v, err := m.FromDecimal(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromUint256 converts an on-chain word into a big integer.
func FromUint256(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

// ToUint256 converts a non-negative big integer into an on-chain word.
func ToUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %s", ErrUint256Overflow, v)
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrUint256Overflow, v)
	}
	return word, nil
}

// isDigits reports whether s only contains ASCII digits. The empty string is
// accepted so callers can check each side of the decimal point.
func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
