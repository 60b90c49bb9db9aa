// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"fmt"
	"math/big"

	"github.com/luxfi/lending/lending/ratemodel"
	"github.com/luxfi/lending/utils/math/fixed"

	safemath "github.com/luxfi/lending/utils/math"
)

// ModelFactory builds the rate model for a market's curve parameters.
type ModelFactory func(*fixed.Math, ratemodel.Params) ratemodel.Model

// DoubleJumpFactory is the default ModelFactory.
func DoubleJumpFactory(math *fixed.Math, params ratemodel.Params) ratemodel.Model {
	return ratemodel.NewDoubleJump(math, params)
}

// EngineConfig configures an Engine. Zero fields take their defaults.
type EngineConfig struct {
	SecondsPerYear uint64
	// InitialExchangeRate is reported while a market has no shares
	// outstanding. Defaults to one unit.
	InitialExchangeRate *big.Int
	NewModel            ModelFactory
}

// Engine accrues interest on market snapshots and derives the balances that
// depend on accrued state. It holds no mutable state.
type Engine struct {
	math                *fixed.Math
	secondsPerYear      uint64
	initialExchangeRate *big.Int
	newModel            ModelFactory
}

func NewEngine(math *fixed.Math, config EngineConfig) *Engine {
	e := &Engine{
		math:                math,
		secondsPerYear:      config.SecondsPerYear,
		initialExchangeRate: fixed.Clone(config.InitialExchangeRate),
		newModel:            config.NewModel,
	}
	if e.secondsPerYear == 0 {
		e.secondsPerYear = ratemodel.SecondsPerYear
	}
	if e.initialExchangeRate.Sign() == 0 {
		e.initialExchangeRate = math.One()
	}
	if e.newModel == nil {
		e.newModel = DoubleJumpFactory
	}
	return e
}

func (e *Engine) Math() *fixed.Math {
	return e.math
}

func (e *Engine) SecondsPerYear() uint64 {
	return e.secondsPerYear
}

// Model returns the rate model for m.
func (e *Engine) Model(m *Market) ratemodel.Model {
	return e.newModel(e.math, m.RateModel)
}

// Accrue returns a copy of m with interest accrued up to now. When no time
// has passed, or nothing is borrowed, the copy is unchanged; UpdatedAt only
// moves when interest is actually applied.
func (e *Engine) Accrue(m *Market, now uint64) (*Market, error) {
	next := m.Clone()
	elapsed := safemath.Elapsed(m.UpdatedAt, now)
	if elapsed == 0 || next.TotalBorrows.Sign() == 0 {
		return next, nil
	}

	borrowRate, err := e.Model(m).BorrowRate(m.State())
	if err != nil {
		return nil, fmt.Errorf("accrue %s: %w", m.ID, err)
	}

	// The rate is scaled per second, so multiplying by whole seconds keeps
	// the scale.
	interestFactor := new(big.Int).Mul(borrowRate, new(big.Int).SetUint64(elapsed))

	next.TotalBorrows.Add(next.TotalBorrows, e.math.MulDown(next.TotalBorrows, interestFactor))
	next.TotalReserves.Add(next.TotalReserves, e.math.MulDown(next.TotalReserves, interestFactor))
	next.BorrowIndex.Add(next.BorrowIndex, e.math.MulDown(interestFactor, next.BorrowIndex))
	next.UpdatedAt = now
	return next, nil
}

// Refresh accrues m up to now and recomputes its derived rates against the
// accrued totals.
func (e *Engine) Refresh(m *Market, now uint64) (*Market, error) {
	if fixed.Clone(m.Risk.ReserveFactor).Cmp(e.math.One()) > 0 {
		return nil, fmt.Errorf("%w: %s: reserveFactor above one", ErrInvalidMarket, m.ID)
	}
	next, err := e.Accrue(m, now)
	if err != nil {
		return nil, err
	}

	exchangeRate, err := e.exchangeRate(next)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", m.ID, err)
	}

	model := e.Model(next)
	state := next.State()
	utilization, err := model.Utilization(state)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", m.ID, err)
	}
	borrowRate, err := model.BorrowRate(state)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", m.ID, err)
	}
	supplyRate, err := model.SupplyRate(state)
	if err != nil {
		return nil, fmt.Errorf("refresh %s: %w", m.ID, err)
	}

	next.Rates = Rates{
		ExchangeRate:        exchangeRate,
		Utilization:         utilization,
		BorrowRatePerSecond: borrowRate,
		SupplyRatePerSecond: supplyRate,
		BorrowRateAPY:       ratemodel.APY(borrowRate, e.secondsPerYear),
		SupplyRateAPY:       ratemodel.APY(supplyRate, e.secondsPerYear),
	}
	return next, nil
}

// exchangeRate returns (cash + borrows - reserves) / totalSupply, or the
// initial rate when no shares exist.
func (e *Engine) exchangeRate(m *Market) (*big.Int, error) {
	if m.TotalSupply.Sign() == 0 {
		return new(big.Int).Set(e.initialExchangeRate), nil
	}
	return e.math.DivDown(totalAssets(m), m.TotalSupply)
}

func totalAssets(m *Market) *big.Int {
	assets := fixed.Sum(m.Cash, m.TotalBorrows)
	return assets.Sub(assets, fixed.Clone(m.TotalReserves))
}

// TotalAssets returns the underlying held by the market after accruing up to
// now.
func (e *Engine) TotalAssets(m *Market, now uint64) (*big.Int, error) {
	next, err := e.Accrue(m, now)
	if err != nil {
		return nil, err
	}
	return totalAssets(next), nil
}

// BorrowBalance returns what p owes against m's borrow index:
// borrowAssets * (borrowIndex / interestIndex). It does not accrue m.
func (e *Engine) BorrowBalance(m *Market, p *Position) (*big.Int, error) {
	if p == nil || p.BorrowAssets == nil || p.BorrowAssets.Sign() == 0 {
		return new(big.Int), nil
	}
	growth, err := e.math.DivDown(fixed.Clone(m.BorrowIndex), fixed.Clone(p.InterestIndex))
	if err != nil {
		return nil, fmt.Errorf("borrow balance %s: %w", p.MarketID, err)
	}
	return e.math.MulDown(p.BorrowAssets, growth), nil
}

// BorrowBalanceCurrent accrues m up to now and then returns what p owes.
func (e *Engine) BorrowBalanceCurrent(m *Market, p *Position, now uint64) (*big.Int, error) {
	next, err := e.Accrue(m, now)
	if err != nil {
		return nil, err
	}
	return e.BorrowBalance(next, p)
}

// ConvertToShares converts underlying assets to shares at m's stored exchange
// rate, rounding down.
func (e *Engine) ConvertToShares(m *Market, assets *big.Int) (*big.Int, error) {
	shares, err := e.math.DivDown(fixed.Clone(assets), fixed.Clone(m.Rates.ExchangeRate))
	if err != nil {
		return nil, fmt.Errorf("convert to shares %s: %w", m.ID, err)
	}
	return shares, nil
}

// ConvertToAssets converts shares to underlying assets at m's stored exchange
// rate, rounding down.
func (e *Engine) ConvertToAssets(m *Market, shares *big.Int) *big.Int {
	return e.math.MulDown(fixed.Clone(shares), fixed.Clone(m.Rates.ExchangeRate))
}

// PreviewDeposit returns the shares minted for depositing assets at now.
func (e *Engine) PreviewDeposit(m *Market, assets *big.Int, now uint64) (*big.Int, error) {
	next, err := e.Refresh(m, now)
	if err != nil {
		return nil, err
	}
	return e.ConvertToShares(next, assets)
}

// PreviewMint returns the assets needed to mint shares at now.
func (e *Engine) PreviewMint(m *Market, shares *big.Int, now uint64) (*big.Int, error) {
	next, err := e.Refresh(m, now)
	if err != nil {
		return nil, err
	}
	return e.ConvertToAssets(next, shares), nil
}

// PreviewWithdraw returns the shares burned to withdraw assets at now.
func (e *Engine) PreviewWithdraw(m *Market, assets *big.Int, now uint64) (*big.Int, error) {
	return e.PreviewDeposit(m, assets, now)
}

// PreviewRedeem returns the assets received for redeeming shares at now.
func (e *Engine) PreviewRedeem(m *Market, shares *big.Int, now uint64) (*big.Int, error) {
	return e.PreviewMint(m, shares, now)
}

// AccountSnapshot is the (shares, debt, exchange rate) triple the market
// contract reports for an account.
type AccountSnapshot struct {
	SupplyShares *big.Int
	BorrowAssets *big.Int
	ExchangeRate *big.Int
}

// AccountSnapshot returns p's stored balances alongside m's exchange rate
// at now. A nil position reports zero balances.
func (e *Engine) AccountSnapshot(m *Market, p *Position, now uint64) (AccountSnapshot, error) {
	next, err := e.Refresh(m, now)
	if err != nil {
		return AccountSnapshot{}, err
	}
	snapshot := AccountSnapshot{
		SupplyShares: new(big.Int),
		BorrowAssets: new(big.Int),
		ExchangeRate: next.Rates.ExchangeRate,
	}
	if p != nil {
		snapshot.SupplyShares = fixed.Clone(p.SupplyShares)
		snapshot.BorrowAssets = fixed.Clone(p.BorrowAssets)
	}
	return snapshot, nil
}
