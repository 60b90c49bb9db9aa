// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validator

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/lending/ratemodel"
	"github.com/luxfi/lending/utils/math/fixed"
)

func dec(s string) *big.Int {
	return fixed.WAD.MustFromDecimal(s)
}

func newTestValidator(config Config) *Validator {
	engine := market.NewEngine(fixed.WAD, market.EngineConfig{})
	return New(fixed.WAD, portfolio.NewValuer(engine), config)
}

func newTestMarket(id, price string) *market.Market {
	return &market.Market{
		ID:         id,
		ProtocolID: "pike",
		Symbol:     id,
		Decimals:   18,
		RateModel: ratemodel.Params{
			FirstKink:  dec("0.8"),
			SecondKink: dec("0.9"),
		},
		Risk: market.Risk{
			CollateralFactor:     dec("0.75"),
			LiquidationThreshold: dec("0.8"),
			ReserveFactor:        dec("0.1"),
		},
		SupplyCap:       dec("1000000"),
		BorrowCap:       dec("1000000"),
		Cash:            dec("100000"),
		TotalBorrows:    dec("0"),
		TotalReserves:   dec("0"),
		TotalSupply:     dec("100000"),
		BorrowIndex:     dec("1"),
		UnderlyingPrice: dec(price),
		Rates: market.Rates{
			ExchangeRate:  dec("1"),
			BorrowRateAPY: dec("0.1"),
			SupplyRateAPY: dec("0.05"),
		},
	}
}

// newTestSnapshot holds 1000 ETH at $2 as collateral (V = 2000, T = 0.8) and
// a USDC market the user has not touched yet.
func newTestSnapshot() portfolio.Snapshot {
	return portfolio.Snapshot{
		User: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Entries: []portfolio.Entry{
			{
				Market: newTestMarket("eth", "2"),
				Position: &market.Position{
					MarketID:      "eth",
					SupplyShares:  dec("1000"),
					BorrowAssets:  big.NewInt(0),
					IsCollateral:  true,
					InterestIndex: dec("1"),
				},
			},
			{Market: newTestMarket("usdc", "1")},
		},
	}
}

func TestBorrowHealthBoundary(t *testing.T) {
	tests := []struct {
		name       string
		amount     string
		wantAccept bool
	}{
		{name: "well collateralized", amount: "1000", wantAccept: true},
		{name: "just above one", amount: "2499", wantAccept: true},
		{name: "exactly one", amount: "2500", wantAccept: false},
		{name: "below one", amount: "3000", wantAccept: false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			s := newTestSnapshot()
			verdict, err := newTestValidator(Config{}).Borrow(s, s.Entries[1].Market, dec(test.amount))
			require.NoError(err)
			require.Equal(test.wantAccept, verdict.Accepted)
			if test.wantAccept {
				require.Equal(ReasonNone, verdict.Reason)
			} else {
				require.Equal(ReasonInsufficientCollateral, verdict.Reason)
			}

			// V / T / B
			want, err := fixed.WAD.DivDown(dec("2500"), dec(test.amount))
			require.NoError(err)
			require.Equal(want, verdict.Health.Value)
		})
	}
}

func TestValidateDoesNotMutateSnapshot(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	_, err := newTestValidator(Config{}).Withdraw(s, s.Entries[0].Market, dec("10"))
	require.NoError(err)
	_, err = newTestValidator(Config{}).Borrow(s, s.Entries[1].Market, dec("10"))
	require.NoError(err)

	require.Equal(dec("1000"), s.Entries[0].Position.SupplyShares)
	require.Nil(s.Entries[1].Position)
	require.Len(s.Entries, 2)
}

func TestNonNegativeBalances(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()

	verdict, err := v.Withdraw(s, s.Entries[0].Market, dec("1001"))
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonNegativeSupply, verdict.Reason)
	require.Equal("eth", verdict.MarketID)

	s.Entries[1].Position = &market.Position{
		MarketID:      "usdc",
		SupplyShares:  big.NewInt(0),
		BorrowAssets:  dec("5"),
		InterestIndex: dec("1"),
	}
	verdict, err = v.Repay(s, s.Entries[1].Market, dec("6"))
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonNegativeBorrow, verdict.Reason)

	verdict, err = v.Repay(s, s.Entries[1].Market, dec("5"))
	require.NoError(err)
	require.True(verdict.Accepted)
	require.True(verdict.Health.Unbounded)
}

func TestCaps(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()
	s.Entries[1].Market.SupplyCap = dec("100")
	s.Entries[1].Market.BorrowCap = dec("50")

	verdict, err := v.Deposit(s, s.Entries[1].Market, dec("100"))
	require.NoError(err)
	require.True(verdict.Accepted)

	verdict, err = v.Deposit(s, s.Entries[1].Market, dec("100.000000000000000001"))
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonSupplyCap, verdict.Reason)

	verdict, err = v.Borrow(s, s.Entries[1].Market, dec("51"))
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonBorrowCap, verdict.Reason)
}

func TestNegativeCheckedBeforeCaps(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	s.Entries[0].Market.SupplyCap = dec("1")

	verdict, err := newTestValidator(Config{}).Withdraw(s, s.Entries[0].Market, dec("2000"))
	require.NoError(err)
	require.Equal(ReasonNegativeSupply, verdict.Reason)
}

func TestUnknownMarket(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()

	_, err := v.Validate(s, Action{Kind: Deposit, MarketID: "btc", Amount: dec("1")})
	require.ErrorIs(err, ErrUnknownMarket)

	// a deposit into a market outside the snapshot opens a position there
	btc := newTestMarket("btc", "40000")
	verdict, err := v.Deposit(s, btc, dec("1"))
	require.NoError(err)
	require.True(verdict.Accepted)

	// there is nothing to withdraw from it
	verdict, err = v.Withdraw(s, btc, dec("1"))
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonNoPosition, verdict.Reason)
}

func TestNoPosition(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()
	usdc := s.Entries[1].Market

	for _, a := range []Action{
		{Kind: Withdraw, MarketID: "usdc", Amount: dec("1")},
		{Kind: Repay, MarketID: "usdc", Amount: dec("1")},
		{Kind: ExitMarket, MarketID: "usdc"},
	} {
		verdict, err := v.Validate(s, a)
		require.NoError(err)
		require.False(verdict.Accepted, a.Kind.String())
		require.Equal(ReasonNoPosition, verdict.Reason)
	}

	verdict, err := v.EnterMarket(s, usdc)
	require.NoError(err)
	require.True(verdict.Accepted)
}

func TestSynthesizedPositionOwesPrincipal(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	s.Entries[1].Market.BorrowIndex = dec("1.5")

	// owed = principal when settled at the current index, so health is
	// still 2500 / 1000
	verdict, err := newTestValidator(Config{}).Borrow(s, s.Entries[1].Market, dec("1000"))
	require.NoError(err)
	require.True(verdict.Accepted)
	require.Equal("2.5", fixed.WAD.ToDecimal(verdict.Health.Value))
}

func TestExitMarketWithDebt(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	s.Entries[1].Position = &market.Position{
		MarketID:      "usdc",
		SupplyShares:  big.NewInt(0),
		BorrowAssets:  dec("100"),
		InterestIndex: dec("1"),
	}

	v := newTestValidator(Config{})
	verdict, err := v.ExitMarket(s, s.Entries[0].Market)
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonInsufficientCollateral, verdict.Reason)

	verdict, err = v.Check(s)
	require.NoError(err)
	require.True(verdict.Accepted)
}

func TestInvalidActions(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()

	for _, amount := range []*big.Int{nil, big.NewInt(-1)} {
		_, err := v.Validate(s, Action{Kind: Deposit, MarketID: "eth", Amount: amount})
		require.ErrorIs(err, ErrInvalidAmount)
	}

	_, err := v.Validate(s, Action{Kind: Kind(42), MarketID: "eth", Amount: dec("1")})
	require.ErrorIs(err, ErrUnknownKind)
}

func TestZeroAmountIsVerdict(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()

	for _, kind := range []Kind{Deposit, Withdraw} {
		verdict, err := v.Validate(s, Action{Kind: kind, MarketID: "eth", Amount: big.NewInt(0)})
		require.NoError(err)
		require.True(verdict.Accepted)
		require.True(verdict.Health.Unbounded)
	}

	verdict, err := v.Borrow(s, s.Entries[1].Market, big.NewInt(0))
	require.NoError(err)
	require.True(verdict.Accepted)
}

func TestCollateralFromOtherProtocolIgnored(t *testing.T) {
	require := require.New(t)

	v := newTestValidator(Config{})
	s := newTestSnapshot()
	s.Entries[0].Market.ProtocolID = "other"

	verdict, err := v.Borrow(s, s.Entries[1].Market, dec("1000"))
	require.NoError(err)
	require.False(verdict.Accepted)
	require.Equal(ReasonInsufficientCollateral, verdict.Reason)
	require.Zero(verdict.Health.Value.Sign())

	// Same-protocol collateral still counts.
	s = newTestSnapshot()
	verdict, err = v.Borrow(s, s.Entries[1].Market, dec("1000"))
	require.NoError(err)
	require.True(verdict.Accepted)
}

func TestEnforcePauses(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	s.Entries[1].Market.Pauses = market.Pauses{Mint: true, Borrow: true}
	usdc := s.Entries[1].Market

	verdict, err := newTestValidator(Config{}).Deposit(s, usdc, dec("1"))
	require.NoError(err)
	require.True(verdict.Accepted)

	v := newTestValidator(Config{EnforcePauses: true})
	verdict, err = v.Deposit(s, usdc, dec("1"))
	require.NoError(err)
	require.Equal(ReasonMarketPaused, verdict.Reason)

	verdict, err = v.Borrow(s, usdc, dec("1"))
	require.NoError(err)
	require.Equal(ReasonMarketPaused, verdict.Reason)
}

func TestEnforceEfficiencyMode(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	s.Entries[1].EMode = &portfolio.EfficiencyMode{
		CategoryID:           1,
		CollateralFactor:     dec("0.9"),
		LiquidationThreshold: dec("0.95"),
	}
	usdc := s.Entries[1].Market

	verdict, err := newTestValidator(Config{}).Borrow(s, usdc, dec("1"))
	require.NoError(err)
	require.True(verdict.Accepted)

	v := newTestValidator(Config{EnforceEfficiencyMode: true})
	verdict, err = v.Borrow(s, usdc, dec("1"))
	require.NoError(err)
	require.Equal(ReasonEfficiencyModeDisabled, verdict.Reason)

	verdict, err = v.EnterMarket(s, usdc)
	require.NoError(err)
	require.Equal(ReasonEfficiencyModeDisabled, verdict.Reason)

	s.Entries[1].EMode.BorrowEnabled = true
	verdict, err = v.Borrow(s, usdc, dec("1"))
	require.NoError(err)
	require.True(verdict.Accepted)
}

func TestKindText(t *testing.T) {
	require := require.New(t)

	for k := range kindNames {
		text, err := k.MarshalText()
		require.NoError(err)

		var parsed Kind
		require.NoError(parsed.UnmarshalText(text))
		require.Equal(k, parsed)
	}

	_, err := ParseKind("liquidate")
	require.ErrorIs(err, ErrUnknownKind)
}

func TestVerdictReport(t *testing.T) {
	require := require.New(t)

	s := newTestSnapshot()
	verdict, err := newTestValidator(Config{}).Borrow(s, s.Entries[1].Market, dec("3000"))
	require.NoError(err)

	report := verdict.Report(fixed.WAD)
	require.False(report.Accepted)
	require.Equal("insufficient collateral", report.Reason)
	require.Equal("0.833333333333333333", report.HealthIndex)

	report = Verdict{Accepted: true, Health: portfolio.HealthIndex{Unbounded: true}}.Report(fixed.WAD)
	require.Equal(portfolio.UnboundedHealth, report.HealthIndex)
	require.Empty(report.Reason)
}
