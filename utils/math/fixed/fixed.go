// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixed implements scaled-integer arithmetic with explicit rounding
// direction. Every monetary or rate quantity in the lending packages is a
// *big.Int scaled by Math.Scale().
package fixed

import (
	"errors"
	"math/big"
)

// DefaultDecimals is the WAD precision used by the protocol contracts.
const DefaultDecimals = 18

var (
	ErrDivisionByZero  = errors.New("division by zero")
	ErrInvalidDecimals = errors.New("invalid decimals")

	bigOne = big.NewInt(1)
)

// WAD is the default 1e18 arithmetic.
var WAD = MustNew(DefaultDecimals)

// Math performs fixed-point operations against a single scale factor of
// 10^decimals. A Math is immutable and safe for concurrent use.
type Math struct {
	decimals uint8
	scale    *big.Int
}

// New returns a Math with a scale of 10^decimals.
func New(decimals uint8) (*Math, error) {
	if decimals == 0 || decimals > 77 {
		return nil, ErrInvalidDecimals
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	return &Math{
		decimals: decimals,
		scale:    scale,
	}, nil
}

// MustNew is like New but panics on invalid decimals.
func MustNew(decimals uint8) *Math {
	m, err := New(decimals)
	if err != nil {
		panic(err)
	}
	return m
}

// Decimals returns the number of fractional decimal digits.
func (m *Math) Decimals() uint8 {
	return m.decimals
}

// Scale returns a copy of the scale factor.
func (m *Math) Scale() *big.Int {
	return new(big.Int).Set(m.scale)
}

// One returns the scaled representation of 1.
func (m *Math) One() *big.Int {
	return m.Scale()
}

// FromInt returns v scaled, e.g. FromInt(2) == 2e18 for WAD.
func (m *Math) FromInt(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), m.scale)
}

// MulDown returns floor(a*b/scale).
func (m *Math) MulDown(a, b *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	return floorDiv(product, m.scale)
}

// MulUp returns ceil(a*b/scale). A zero product rounds to zero.
func (m *Math) MulUp(a, b *big.Int) *big.Int {
	product := new(big.Int).Mul(a, b)
	if product.Sign() == 0 {
		return new(big.Int)
	}
	return ceilDiv(product, m.scale)
}

// DivDown returns floor(a*scale/b).
//
// A zero numerator returns zero without inspecting b.
func (m *Math) DivDown(a, b *big.Int) (*big.Int, error) {
	if a.Sign() == 0 {
		return new(big.Int), nil
	}
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	inflated := new(big.Int).Mul(a, m.scale)
	return floorDiv(inflated, b), nil
}

// DivUp returns ceil(a*scale/b).
//
// A zero numerator returns zero without inspecting b.
func (m *Math) DivUp(a, b *big.Int) (*big.Int, error) {
	if a.Sign() == 0 {
		return new(big.Int), nil
	}
	if b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	inflated := new(big.Int).Mul(a, m.scale)
	return ceilDiv(inflated, b), nil
}

// Sum adds the values, treating nil as zero.
func Sum(values ...*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}

// Clone returns a copy of v, mapping nil to zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// floorDiv rounds toward negative infinity for any sign combination.
func floorDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && (r.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, bigOne)
	}
	return q
}

// ceilDiv rounds toward positive infinity for any sign combination.
func ceilDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && (r.Sign() > 0) == (y.Sign() > 0) {
		q.Add(q, bigOne)
	}
	return q
}
