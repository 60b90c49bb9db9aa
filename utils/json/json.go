// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package json provides JSON encodings for the numeric types carried in
// snapshot records. Every value is encoded as a decimal string so large
// integers survive JavaScript clients.
package json

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/holiman/uint256"
)

const Null = "null"

var ErrNotUint256 = errors.New("not an unsigned 256-bit integer")

// Uint64 is a uint64 that can be JSON marshaled as a string.
type Uint64 uint64

func (u Uint64) MarshalJSON() ([]byte, error) {
	return []byte(`"` + strconv.FormatUint(uint64(u), 10) + `"`), nil
}

func (u *Uint64) UnmarshalJSON(b []byte) error {
	str := unquote(b)
	if str == Null {
		return nil
	}
	val, err := strconv.ParseUint(str, 10, 64)
	*u = Uint64(val)
	return err
}

// BigInt is an unsigned 256-bit integer encoded as a base-10 string. The zero
// value is zero.
type BigInt struct {
	v *big.Int
}

// NewBigInt copies v into a BigInt.
func NewBigInt(v *big.Int) BigInt {
	if v == nil {
		return BigInt{}
	}
	return BigInt{v: new(big.Int).Set(v)}
}

// Int returns a copy of the value. A zero BigInt returns 0.
func (b BigInt) Int() *big.Int {
	if b.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.v)
}

func (b BigInt) String() string {
	if b.v == nil {
		return "0"
	}
	return b.v.String()
}

func (b BigInt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

func (b *BigInt) UnmarshalJSON(data []byte) error {
	str := unquote(data)
	if str == Null {
		return nil
	}
	if str == "" {
		return fmt.Errorf("%w: empty string", ErrNotUint256)
	}
	word, err := uint256.FromDecimal(str)
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrNotUint256, str, err)
	}
	b.v = word.ToBig()
	return nil
}

func unquote(b []byte) string {
	str := string(b)
	if len(str) >= 2 {
		if lastIndex := len(str) - 1; str[0] == '"' && str[lastIndex] == '"' {
			str = str[1:lastIndex]
		}
	}
	return str
}
