// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ratemodel prices borrowing and supplying as a function of how much
// of a market's liquidity is lent out.
package ratemodel

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/lending/utils/math/fixed"
	"github.com/luxfi/lending/utils/units"
)

// SecondsPerYear is used to annualize per-second rates. Leap years are
// ignored.
const SecondsPerYear = units.Year

var (
	_ Model = (*DoubleJump)(nil)

	ErrInvalidParams = errors.New("invalid rate model params")
	ErrInvalidState  = errors.New("invalid rate model state")
)

// State is the slice of market accounting a rate model reads.
type State struct {
	Cash          *big.Int
	TotalBorrows  *big.Int
	TotalReserves *big.Int
	ReserveFactor *big.Int
}

// Model computes per-second rates from market state. Implementations must not
// retain or mutate the State they are given.
type Model interface {
	Utilization(State) (*big.Int, error)
	BorrowRate(State) (*big.Int, error)
	SupplyRate(State) (*big.Int, error)
}

// Params configures a double-kink curve. Rates and multipliers are scaled
// per-second values, kinks are scaled utilization fractions.
type Params struct {
	BaseRatePerSecond             *big.Int `json:"baseRatePerSecond"`
	MultiplierPerSecond           *big.Int `json:"multiplierPerSecond"`
	FirstJumpMultiplierPerSecond  *big.Int `json:"firstJumpMultiplierPerSecond"`
	SecondJumpMultiplierPerSecond *big.Int `json:"secondJumpMultiplierPerSecond"`
	FirstKink                     *big.Int `json:"firstKink"`
	SecondKink                    *big.Int `json:"secondKink"`
}

// Clone returns a deep copy of p.
func (p Params) Clone() Params {
	return Params{
		BaseRatePerSecond:             fixed.Clone(p.BaseRatePerSecond),
		MultiplierPerSecond:           fixed.Clone(p.MultiplierPerSecond),
		FirstJumpMultiplierPerSecond:  fixed.Clone(p.FirstJumpMultiplierPerSecond),
		SecondJumpMultiplierPerSecond: fixed.Clone(p.SecondJumpMultiplierPerSecond),
		FirstKink:                     fixed.Clone(p.FirstKink),
		SecondKink:                    fixed.Clone(p.SecondKink),
	}
}

// Verify rejects negative values and kinks that are out of order.
func (p Params) Verify() error {
	fields := []struct {
		name  string
		value *big.Int
	}{
		{"baseRatePerSecond", p.BaseRatePerSecond},
		{"multiplierPerSecond", p.MultiplierPerSecond},
		{"firstJumpMultiplierPerSecond", p.FirstJumpMultiplierPerSecond},
		{"secondJumpMultiplierPerSecond", p.SecondJumpMultiplierPerSecond},
		{"firstKink", p.FirstKink},
		{"secondKink", p.SecondKink},
	}
	for _, f := range fields {
		if f.value != nil && f.value.Sign() < 0 {
			return fmt.Errorf("%w: negative %s", ErrInvalidParams, f.name)
		}
	}
	if fixed.Clone(p.FirstKink).Cmp(fixed.Clone(p.SecondKink)) > 0 {
		return fmt.Errorf("%w: firstKink %s > secondKink %s", ErrInvalidParams, p.FirstKink, p.SecondKink)
	}
	return nil
}

// DoubleJump is a piecewise linear curve with two kinks. The marginal rate
// steps up past each kink and the curve is continuous at both.
type DoubleJump struct {
	math   *fixed.Math
	params Params
}

// NewDoubleJump copies params so later changes by the caller are not observed.
func NewDoubleJump(math *fixed.Math, params Params) *DoubleJump {
	return &DoubleJump{
		math:   math,
		params: params.Clone(),
	}
}

// Utilization returns borrows / (cash + borrows - reserves), or zero when
// nothing is borrowed. Reserves must leave positive liquidity.
func (d *DoubleJump) Utilization(s State) (*big.Int, error) {
	borrows := fixed.Clone(s.TotalBorrows)
	if borrows.Sign() == 0 {
		return new(big.Int), nil
	}
	liquidity := fixed.Sum(s.Cash, borrows)
	liquidity.Sub(liquidity, fixed.Clone(s.TotalReserves))
	if liquidity.Sign() <= 0 {
		return nil, fmt.Errorf("%w: reserves %s leave no liquidity", ErrInvalidState, s.TotalReserves)
	}
	util, err := d.math.DivDown(borrows, liquidity)
	if err != nil {
		return nil, fmt.Errorf("utilization: %w", err)
	}
	return util, nil
}

func (d *DoubleJump) BorrowRate(s State) (*big.Int, error) {
	util, err := d.Utilization(s)
	if err != nil {
		return nil, err
	}
	return d.borrowRateAt(util), nil
}

// borrowRateAt evaluates the curve at a given utilization.
func (d *DoubleJump) borrowRateAt(util *big.Int) *big.Int {
	p := d.params
	firstKink := fixed.Clone(p.FirstKink)
	secondKink := fixed.Clone(p.SecondKink)

	rate := fixed.Clone(p.BaseRatePerSecond)
	if util.Cmp(firstKink) <= 0 {
		return rate.Add(rate, d.math.MulDown(util, fixed.Clone(p.MultiplierPerSecond)))
	}

	rate.Add(rate, d.math.MulDown(firstKink, fixed.Clone(p.MultiplierPerSecond)))
	if util.Cmp(secondKink) <= 0 {
		excess := new(big.Int).Sub(util, firstKink)
		return rate.Add(rate, d.math.MulDown(excess, fixed.Clone(p.FirstJumpMultiplierPerSecond)))
	}

	between := new(big.Int).Sub(secondKink, firstKink)
	rate.Add(rate, d.math.MulDown(between, fixed.Clone(p.FirstJumpMultiplierPerSecond)))

	excess := new(big.Int).Sub(util, secondKink)
	return rate.Add(rate, d.math.MulDown(excess, fixed.Clone(p.SecondJumpMultiplierPerSecond)))
}

// SupplyRate returns the share of borrower interest paid to suppliers after
// the reserve cut: util * (borrowRate * (1 - reserveFactor)).
func (d *DoubleJump) SupplyRate(s State) (*big.Int, error) {
	util, err := d.Utilization(s)
	if err != nil {
		return nil, err
	}
	borrowRate := d.borrowRateAt(util)

	oneMinusReserveFactor := d.math.One()
	if fixed.Clone(s.ReserveFactor).Cmp(oneMinusReserveFactor) > 0 {
		return nil, fmt.Errorf("%w: reserve factor %s above one", ErrInvalidState, s.ReserveFactor)
	}
	oneMinusReserveFactor.Sub(oneMinusReserveFactor, fixed.Clone(s.ReserveFactor))

	toPool := d.math.MulDown(borrowRate, oneMinusReserveFactor)
	return d.math.MulDown(util, toPool), nil
}

// APY annualizes a per-second rate without compounding.
func APY(ratePerSecond *big.Int, secondsPerYear uint64) *big.Int {
	return new(big.Int).Mul(fixed.Clone(ratePerSecond), new(big.Int).SetUint64(secondsPerYear))
}
