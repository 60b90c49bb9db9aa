// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarketCloneIsDeep(t *testing.T) {
	require := require.New(t)

	m := newTestMarket()
	m.Rates.ExchangeRate = dec("1")
	c := m.Clone()
	require.Equal(m, c)

	c.Cash.SetInt64(0)
	c.RateModel.FirstKink.SetInt64(0)
	c.Risk.LiquidationThreshold.SetInt64(0)
	c.Rates.ExchangeRate.SetInt64(0)

	require.Equal(dec("600"), m.Cash)
	require.Equal(dec("0.8"), m.RateModel.FirstKink)
	require.Equal(dec("0.8"), m.Risk.LiquidationThreshold)
	require.Equal(dec("1"), m.Rates.ExchangeRate)
}

func TestMarketVerify(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Market)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(*Market) {},
		},
		{
			name:    "missing id",
			mutate:  func(m *Market) { m.ID = "" },
			wantErr: true,
		},
		{
			name:    "negative cash",
			mutate:  func(m *Market) { m.Cash = big.NewInt(-1) },
			wantErr: true,
		},
		{
			name:    "zero borrow index",
			mutate:  func(m *Market) { m.BorrowIndex = big.NewInt(0) },
			wantErr: true,
		},
		{
			name:    "reserves exceed liquidity",
			mutate:  func(m *Market) { m.Cash, m.TotalBorrows, m.TotalReserves = big.NewInt(0), dec("10"), dec("20") },
			wantErr: true,
		},
		{
			name:   "reserves equal liquidity",
			mutate: func(m *Market) { m.Cash, m.TotalBorrows, m.TotalReserves = dec("10"), big.NewInt(0), dec("10") },
		},
		{
			name: "kinks out of order",
			mutate: func(m *Market) {
				m.RateModel.FirstKink, m.RateModel.SecondKink = m.RateModel.SecondKink, m.RateModel.FirstKink
			},
			wantErr: true,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			m := newTestMarket()
			test.mutate(m)
			err := m.Verify()
			if test.wantErr {
				require.ErrorIs(t, err, ErrInvalidMarket)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPositionVerify(t *testing.T) {
	require := require.New(t)

	p := &Position{MarketID: "usdc", SupplyShares: dec("1"), BorrowAssets: dec("1"), InterestIndex: dec("1")}
	require.NoError(p.Verify())

	c := p.Clone()
	c.SupplyShares = big.NewInt(-1)
	require.ErrorIs(c.Verify(), ErrInvalidPosition)

	c = p.Clone()
	c.InterestIndex = nil
	require.ErrorIs(c.Verify(), ErrInvalidPosition)

	c = p.Clone()
	c.MarketID = ""
	require.ErrorIs(c.Verify(), ErrInvalidPosition)
}
