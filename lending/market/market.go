// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package market holds lending market and position snapshots and the engine
// that accrues interest on them.
package market

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lending/lending/ratemodel"
	"github.com/luxfi/lending/utils/math/fixed"
	"github.com/luxfi/lending/utils/wrappers"
)

var (
	ErrInvalidMarket   = errors.New("invalid market")
	ErrInvalidPosition = errors.New("invalid position")
)

// Risk holds the per-market collateral and liquidation parameters. All values
// are scaled fractions.
type Risk struct {
	CollateralFactor     *big.Int `json:"collateralFactor"`
	LiquidationThreshold *big.Int `json:"liquidationThreshold"`
	LiquidationIncentive *big.Int `json:"liquidationIncentive"`
	ReserveFactor        *big.Int `json:"reserveFactor"`
	ProtocolSeizeShare   *big.Int `json:"protocolSeizeShare"`
	CloseFactor          *big.Int `json:"closeFactor"`
}

func (r Risk) Clone() Risk {
	return Risk{
		CollateralFactor:     fixed.Clone(r.CollateralFactor),
		LiquidationThreshold: fixed.Clone(r.LiquidationThreshold),
		LiquidationIncentive: fixed.Clone(r.LiquidationIncentive),
		ReserveFactor:        fixed.Clone(r.ReserveFactor),
		ProtocolSeizeShare:   fixed.Clone(r.ProtocolSeizeShare),
		CloseFactor:          fixed.Clone(r.CloseFactor),
	}
}

// Pauses mirrors the guardian switches of the market contract.
type Pauses struct {
	Mint     bool `json:"mint"`
	Borrow   bool `json:"borrow"`
	Transfer bool `json:"transfer"`
	Seize    bool `json:"seize"`
}

// Rates are derived from the accounting state by Engine.Refresh.
type Rates struct {
	ExchangeRate        *big.Int `json:"exchangeRate"`
	Utilization         *big.Int `json:"utilization"`
	BorrowRatePerSecond *big.Int `json:"borrowRatePerSecond"`
	SupplyRatePerSecond *big.Int `json:"supplyRatePerSecond"`
	BorrowRateAPY       *big.Int `json:"borrowRateAPY"`
	SupplyRateAPY       *big.Int `json:"supplyRateAPY"`
}

// Clone returns a deep copy of r. Rates that were never derived stay nil.
func (r Rates) Clone() Rates {
	return Rates{
		ExchangeRate:        cloneOrNil(r.ExchangeRate),
		Utilization:         cloneOrNil(r.Utilization),
		BorrowRatePerSecond: cloneOrNil(r.BorrowRatePerSecond),
		SupplyRatePerSecond: cloneOrNil(r.SupplyRatePerSecond),
		BorrowRateAPY:       cloneOrNil(r.BorrowRateAPY),
		SupplyRateAPY:       cloneOrNil(r.SupplyRateAPY),
	}
}

func cloneOrNil(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// Market is a point-in-time view of one lending pool.
type Market struct {
	ID         string         `json:"id"`
	ProtocolID string         `json:"protocolId"`
	Address    common.Address `json:"address"`
	Underlying common.Address `json:"underlying"`
	Symbol     string         `json:"symbol"`
	Decimals   uint8          `json:"decimals"`

	RateModel ratemodel.Params `json:"rateModel"`
	Risk      Risk             `json:"risk"`

	SupplyCap *big.Int `json:"supplyCap"`
	BorrowCap *big.Int `json:"borrowCap"`

	Cash          *big.Int `json:"cash"`
	TotalBorrows  *big.Int `json:"totalBorrows"`
	TotalReserves *big.Int `json:"totalReserves"`
	TotalSupply   *big.Int `json:"totalSupply"`
	BorrowIndex   *big.Int `json:"borrowIndex"`
	UpdatedAt     uint64   `json:"updatedAt"`

	// UnderlyingPrice is the USD price of one whole underlying token.
	UnderlyingPrice *big.Int `json:"underlyingPrice"`
	Pauses          Pauses   `json:"pauses"`

	Rates Rates `json:"rates"`
}

// Clone returns a deep copy of m. Nil amounts become zero.
func (m *Market) Clone() *Market {
	c := *m
	c.RateModel = m.RateModel.Clone()
	c.Risk = m.Risk.Clone()
	c.SupplyCap = fixed.Clone(m.SupplyCap)
	c.BorrowCap = fixed.Clone(m.BorrowCap)
	c.Cash = fixed.Clone(m.Cash)
	c.TotalBorrows = fixed.Clone(m.TotalBorrows)
	c.TotalReserves = fixed.Clone(m.TotalReserves)
	c.TotalSupply = fixed.Clone(m.TotalSupply)
	c.BorrowIndex = fixed.Clone(m.BorrowIndex)
	c.UnderlyingPrice = fixed.Clone(m.UnderlyingPrice)
	c.Rates = m.Rates.Clone()
	return &c
}

// State returns the inputs a rate model needs.
func (m *Market) State() ratemodel.State {
	return ratemodel.State{
		Cash:          fixed.Clone(m.Cash),
		TotalBorrows:  fixed.Clone(m.TotalBorrows),
		TotalReserves: fixed.Clone(m.TotalReserves),
		ReserveFactor: fixed.Clone(m.Risk.ReserveFactor),
	}
}

// Verify checks that m is a well-formed snapshot.
func (m *Market) Verify() error {
	if m.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidMarket)
	}
	errs := wrappers.Errs{}
	amounts := []struct {
		name  string
		value *big.Int
	}{
		{"supplyCap", m.SupplyCap},
		{"borrowCap", m.BorrowCap},
		{"cash", m.Cash},
		{"totalBorrows", m.TotalBorrows},
		{"totalReserves", m.TotalReserves},
		{"totalSupply", m.TotalSupply},
		{"underlyingPrice", m.UnderlyingPrice},
		{"collateralFactor", m.Risk.CollateralFactor},
		{"liquidationThreshold", m.Risk.LiquidationThreshold},
		{"reserveFactor", m.Risk.ReserveFactor},
	}
	for _, a := range amounts {
		errs.Check(a.value == nil || a.value.Sign() >= 0, fmt.Errorf("%w: %s: negative %s", ErrInvalidMarket, m.ID, a.name))
	}
	errs.Check(
		m.BorrowIndex != nil && m.BorrowIndex.Sign() > 0,
		fmt.Errorf("%w: %s: borrowIndex must be positive", ErrInvalidMarket, m.ID),
	)
	liquidity := fixed.Sum(m.Cash, m.TotalBorrows)
	errs.Check(
		fixed.Clone(m.TotalReserves).Cmp(liquidity) <= 0,
		fmt.Errorf("%w: %s: totalReserves exceed cash plus totalBorrows", ErrInvalidMarket, m.ID),
	)
	if err := m.RateModel.Verify(); err != nil {
		errs.Add(fmt.Errorf("%w: %s: %w", ErrInvalidMarket, m.ID, err))
	}
	return errs.Err
}

// Position is one account's balance in one market.
type Position struct {
	MarketID     string   `json:"marketId"`
	SupplyShares *big.Int `json:"supplyShares"`
	// BorrowAssets is the principal as of the last settlement. The amount
	// owed now is derived with Engine.BorrowBalance.
	BorrowAssets *big.Int `json:"borrowAssets"`
	IsCollateral bool     `json:"isCollateral"`
	// InterestIndex is the market borrow index at the last settlement.
	InterestIndex *big.Int `json:"interestIndex"`
	UpdatedAt     uint64   `json:"updatedAt"`
}

func (p *Position) Clone() *Position {
	c := *p
	c.SupplyShares = fixed.Clone(p.SupplyShares)
	c.BorrowAssets = fixed.Clone(p.BorrowAssets)
	c.InterestIndex = fixed.Clone(p.InterestIndex)
	return &c
}

// Verify checks that p is a well-formed stored position.
func (p *Position) Verify() error {
	switch {
	case p.MarketID == "":
		return fmt.Errorf("%w: missing market id", ErrInvalidPosition)
	case p.SupplyShares != nil && p.SupplyShares.Sign() < 0:
		return fmt.Errorf("%w: %s: negative supply shares", ErrInvalidPosition, p.MarketID)
	case p.BorrowAssets != nil && p.BorrowAssets.Sign() < 0:
		return fmt.Errorf("%w: %s: negative borrow assets", ErrInvalidPosition, p.MarketID)
	case p.BorrowAssets != nil && p.BorrowAssets.Sign() > 0 && (p.InterestIndex == nil || p.InterestIndex.Sign() <= 0):
		return fmt.Errorf("%w: %s: borrow without interest index", ErrInvalidPosition, p.MarketID)
	default:
		return nil
	}
}
