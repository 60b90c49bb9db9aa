// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package math provides underflow-checked arithmetic for the unsigned
// counters that sit next to the big-integer amounts, such as unix
// timestamps and elapsed seconds.
package math

import "errors"

// Unsigned is a constraint that permits any unsigned integer type.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

var ErrUnderflow = errors.New("underflow")

// Sub returns a - b, or ErrUnderflow when b > a.
func Sub[T Unsigned](a, b T) (T, error) {
	if a < b {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// Elapsed returns the number of units between since and now, or zero if now
// is not after since. Clocks that move backwards never produce a negative
// interval.
func Elapsed[T Unsigned](since, now T) T {
	delta, err := Sub(now, since)
	if err != nil {
		return 0
	}
	return delta
}
