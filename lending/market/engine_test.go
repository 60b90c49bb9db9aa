// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lending/lending/ratemodel"
	"github.com/luxfi/lending/utils/math/fixed"
)

const start uint64 = 1_700_000_000

func dec(s string) *big.Int {
	return fixed.WAD.MustFromDecimal(s)
}

func perSecond(annual string) *big.Int {
	return new(big.Int).Div(dec(annual), new(big.Int).SetUint64(ratemodel.SecondsPerYear))
}

func newTestEngine() *Engine {
	return NewEngine(fixed.WAD, EngineConfig{})
}

func newTestMarket() *Market {
	return &Market{
		ID:         "usdc",
		ProtocolID: "pike",
		Address:    common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Underlying: common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Symbol:     "pUSDC",
		Decimals:   18,
		RateModel: ratemodel.Params{
			BaseRatePerSecond:             perSecond("0.02"),
			MultiplierPerSecond:           perSecond("0.1"),
			FirstJumpMultiplierPerSecond:  perSecond("2"),
			SecondJumpMultiplierPerSecond: perSecond("10"),
			FirstKink:                     dec("0.8"),
			SecondKink:                    dec("0.9"),
		},
		Risk: Risk{
			CollateralFactor:     dec("0.75"),
			LiquidationThreshold: dec("0.8"),
			LiquidationIncentive: dec("1.05"),
			ReserveFactor:        dec("0.1"),
			ProtocolSeizeShare:   dec("0.03"),
			CloseFactor:          dec("0.5"),
		},
		SupplyCap:       dec("1000000"),
		BorrowCap:       dec("800000"),
		Cash:            dec("600"),
		TotalBorrows:    dec("400"),
		TotalReserves:   dec("10"),
		TotalSupply:     dec("990"),
		BorrowIndex:     dec("1"),
		UpdatedAt:       start,
		UnderlyingPrice: dec("1"),
	}
}

func TestNewEngineDefaults(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	require.Equal(ratemodel.SecondsPerYear, e.SecondsPerYear())
	require.Equal(fixed.WAD.One(), e.initialExchangeRate)
	require.IsType(&ratemodel.DoubleJump{}, e.Model(newTestMarket()))
}

func TestAccrueNoElapsedTime(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()

	for _, now := range []uint64{start, start - 1} {
		next, err := e.Accrue(m, now)
		require.NoError(err)
		require.Equal(m, next)
		require.NotSame(m.TotalBorrows, next.TotalBorrows)
	}
}

func TestAccrueNoBorrows(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	m.TotalBorrows = big.NewInt(0)

	next, err := e.Accrue(m, start+3600)
	require.NoError(err)
	require.Equal(m, next)
	require.Equal(start, next.UpdatedAt)
}

func TestAccrue(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	const elapsed = 86_400

	rate, err := e.Model(m).BorrowRate(m.State())
	require.NoError(err)
	factor := new(big.Int).Mul(rate, big.NewInt(elapsed))

	next, err := e.Accrue(m, start+elapsed)
	require.NoError(err)

	w := fixed.WAD
	require.Equal(new(big.Int).Add(m.TotalBorrows, w.MulDown(m.TotalBorrows, factor)), next.TotalBorrows)
	require.Equal(new(big.Int).Add(m.TotalReserves, w.MulDown(m.TotalReserves, factor)), next.TotalReserves)
	require.Equal(new(big.Int).Add(m.BorrowIndex, w.MulDown(factor, m.BorrowIndex)), next.BorrowIndex)
	require.Equal(start+elapsed, next.UpdatedAt)

	// input is untouched
	require.Equal(dec("400"), m.TotalBorrows)
	require.Equal(start, m.UpdatedAt)
}

func TestAccrueMonotonic(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	for _, elapsed := range []uint64{1, 60, 3600, 86_400, ratemodel.SecondsPerYear} {
		next, err := e.Accrue(m, m.UpdatedAt+elapsed)
		require.NoError(err)
		require.Equal(1, next.BorrowIndex.Cmp(m.BorrowIndex))
		require.GreaterOrEqual(next.TotalBorrows.Cmp(m.TotalBorrows), 0)
		require.GreaterOrEqual(next.TotalReserves.Cmp(m.TotalReserves), 0)
		m = next
	}
}

func TestAccrueIdempotent(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	once, err := e.Accrue(newTestMarket(), start+600)
	require.NoError(err)
	twice, err := e.Accrue(once, start+600)
	require.NoError(err)
	require.Equal(once, twice)

	refreshed, err := e.Refresh(newTestMarket(), start+600)
	require.NoError(err)
	again, err := e.Refresh(refreshed, start+600)
	require.NoError(err)
	require.Equal(refreshed, again)
}

func TestRefresh(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	next, err := e.Refresh(newTestMarket(), start+86_400)
	require.NoError(err)

	model := e.Model(next)
	util, err := model.Utilization(next.State())
	require.NoError(err)
	borrowRate, err := model.BorrowRate(next.State())
	require.NoError(err)
	supplyRate, err := model.SupplyRate(next.State())
	require.NoError(err)

	assets := new(big.Int).Add(next.Cash, next.TotalBorrows)
	assets.Sub(assets, next.TotalReserves)
	exchangeRate, err := fixed.WAD.DivDown(assets, next.TotalSupply)
	require.NoError(err)

	require.Equal(exchangeRate, next.Rates.ExchangeRate)
	require.Equal(util, next.Rates.Utilization)
	require.Equal(borrowRate, next.Rates.BorrowRatePerSecond)
	require.Equal(supplyRate, next.Rates.SupplyRatePerSecond)
	require.Equal(ratemodel.APY(borrowRate, ratemodel.SecondsPerYear), next.Rates.BorrowRateAPY)
	require.Equal(ratemodel.APY(supplyRate, ratemodel.SecondsPerYear), next.Rates.SupplyRateAPY)
	require.Equal(1, next.Rates.ExchangeRate.Cmp(dec("1")))
}

func TestRefreshInitialExchangeRate(t *testing.T) {
	require := require.New(t)

	m := newTestMarket()
	m.TotalSupply = big.NewInt(0)
	m.TotalBorrows = big.NewInt(0)

	next, err := newTestEngine().Refresh(m, start)
	require.NoError(err)
	require.Equal(dec("1"), next.Rates.ExchangeRate)

	custom := NewEngine(fixed.WAD, EngineConfig{InitialExchangeRate: dec("0.02")})
	next, err = custom.Refresh(m, start)
	require.NoError(err)
	require.Equal(dec("0.02"), next.Rates.ExchangeRate)
}

func TestRefreshRejectsInvalidState(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()

	m := newTestMarket()
	m.Cash = big.NewInt(0)
	m.TotalBorrows = dec("10")
	m.TotalReserves = dec("20")
	_, err := e.Accrue(m, start+1000)
	require.ErrorIs(err, ratemodel.ErrInvalidState)
	_, err = e.Refresh(m, start+1000)
	require.ErrorIs(err, ratemodel.ErrInvalidState)

	m = newTestMarket()
	m.Risk.ReserveFactor = dec("2")
	_, err = e.Refresh(m, start+1000)
	require.ErrorIs(err, ErrInvalidMarket)
}

func TestBorrowBalance(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	m.BorrowIndex = dec("1.1")

	owed, err := e.BorrowBalance(m, &Position{
		MarketID:      m.ID,
		BorrowAssets:  dec("100"),
		InterestIndex: dec("1"),
	})
	require.NoError(err)
	require.Equal(dec("110"), owed)

	owed, err = e.BorrowBalance(m, nil)
	require.NoError(err)
	require.Zero(owed.Sign())

	owed, err = e.BorrowBalance(m, &Position{MarketID: m.ID, BorrowAssets: big.NewInt(0)})
	require.NoError(err)
	require.Zero(owed.Sign())

	_, err = e.BorrowBalance(m, &Position{MarketID: m.ID, BorrowAssets: dec("1")})
	require.ErrorIs(err, fixed.ErrDivisionByZero)
}

func TestBorrowBalanceCurrentGrows(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	p := &Position{MarketID: m.ID, BorrowAssets: dec("100"), InterestIndex: dec("1")}

	stored, err := e.BorrowBalance(m, p)
	require.NoError(err)
	current, err := e.BorrowBalanceCurrent(m, p, start+ratemodel.SecondsPerYear)
	require.NoError(err)
	require.Equal(1, current.Cmp(stored))
}

func TestConversions(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	m.Rates.ExchangeRate = dec("2")

	shares, err := e.ConvertToShares(m, dec("10"))
	require.NoError(err)
	require.Equal(dec("5"), shares)
	require.Equal(dec("10"), e.ConvertToAssets(m, shares))

	m.Rates.ExchangeRate = nil
	_, err = e.ConvertToShares(m, dec("10"))
	require.ErrorIs(err, fixed.ErrDivisionByZero)
}

func TestPreviews(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()
	now := start + 3600

	refreshed, err := e.Refresh(m, now)
	require.NoError(err)
	rate := refreshed.Rates.ExchangeRate

	deposit, err := e.PreviewDeposit(m, dec("100"), now)
	require.NoError(err)
	want, err := fixed.WAD.DivDown(dec("100"), rate)
	require.NoError(err)
	require.Equal(want, deposit)

	withdraw, err := e.PreviewWithdraw(m, dec("100"), now)
	require.NoError(err)
	require.Equal(want, withdraw)

	mint, err := e.PreviewMint(m, dec("100"), now)
	require.NoError(err)
	require.Equal(fixed.WAD.MulDown(dec("100"), rate), mint)

	redeem, err := e.PreviewRedeem(m, dec("100"), now)
	require.NoError(err)
	require.Equal(mint, redeem)
}

func TestTotalAssets(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()

	assets, err := e.TotalAssets(m, start)
	require.NoError(err)
	require.Equal(dec("990"), assets)

	later, err := e.TotalAssets(m, start+86_400)
	require.NoError(err)
	require.Equal(1, later.Cmp(assets))
}

func TestAccountSnapshot(t *testing.T) {
	require := require.New(t)

	e := newTestEngine()
	m := newTestMarket()

	snapshot, err := e.AccountSnapshot(m, nil, start)
	require.NoError(err)
	require.Zero(snapshot.SupplyShares.Sign())
	require.Zero(snapshot.BorrowAssets.Sign())
	require.Equal(dec("1"), snapshot.ExchangeRate)

	p := &Position{MarketID: m.ID, SupplyShares: dec("7"), BorrowAssets: dec("3"), InterestIndex: dec("1")}
	snapshot, err = e.AccountSnapshot(m, p, start)
	require.NoError(err)
	require.Equal(dec("7"), snapshot.SupplyShares)
	require.Equal(dec("3"), snapshot.BorrowAssets)
}
