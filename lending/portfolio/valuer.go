// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portfolio

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/utils/math/fixed"
)

var (
	ErrMissingMarket = errors.New("entry has no market")
	ErrStaleMarket   = errors.New("market has no exchange rate")
)

// PositionMetrics values a single position.
type PositionMetrics struct {
	MarketID           string
	StoredBorrowAssets *big.Int
	SupplyAssets       *big.Int
	BorrowUSD          *big.Int
	SupplyUSD          *big.Int
}

// Exposure is one line of an aggregation: a USD value on each side and the
// APY earned or paid on it.
type Exposure struct {
	BorrowUSD *big.Int
	SupplyUSD *big.Int
	BorrowAPY *big.Int
	SupplyAPY *big.Int
}

// NetMetrics aggregates a set of exposures. NetAPY is a magnitude; its sign is
// carried by NetAPYNegative.
type NetMetrics struct {
	TotalBorrowUSD *big.Int
	TotalSupplyUSD *big.Int
	BorrowAPY      *big.Int
	SupplyAPY      *big.Int
	NetAPY         *big.Int
	NetAPYNegative bool
	NetWorth       *big.Int
}

// HealthIndex is threshold-weighted collateral over debt. A portfolio without
// debt is Unbounded and always solvent.
type HealthIndex struct {
	Value     *big.Int
	Unbounded bool
}

// Exceeds reports whether h is strictly greater than limit.
func (h HealthIndex) Exceeds(limit *big.Int) bool {
	return h.Unbounded || h.Value.Cmp(limit) > 0
}

type ProtocolMetrics struct {
	ProtocolID string
	Positions  []PositionMetrics
	Net        NetMetrics
	Health     HealthIndex
}

type UserMetrics struct {
	User      common.Address
	Protocols []ProtocolMetrics
	Net       NetMetrics
}

// Valuer prices portfolios. Markets in the snapshots it is given must already
// be refreshed to the valuation time.
type Valuer struct {
	engine    *market.Engine
	refresher market.Refresher
	math      *fixed.Math
}

func NewValuer(engine *market.Engine) *Valuer {
	return NewValuerWithRefresher(engine, engine)
}

// NewValuerWithRefresher returns a Valuer whose Refresh goes through r, e.g.
// a market.RefreshCache.
func NewValuerWithRefresher(engine *market.Engine, r market.Refresher) *Valuer {
	return &Valuer{
		engine:    engine,
		refresher: r,
		math:      engine.Math(),
	}
}

// Position values the entry's position at its market's exchange rate and
// price. Entries without a position value to zero.
func (v *Valuer) Position(e Entry) (PositionMetrics, error) {
	if e.Market == nil {
		return PositionMetrics{}, ErrMissingMarket
	}
	m := e.Market
	borrowed, err := v.engine.BorrowBalance(m, e.Position)
	if err != nil {
		return PositionMetrics{}, err
	}

	shares := new(big.Int)
	if e.Position != nil {
		shares = fixed.Clone(e.Position.SupplyShares)
	}
	if shares.Sign() != 0 && m.Rates.ExchangeRate == nil {
		return PositionMetrics{}, fmt.Errorf("%w: %s", ErrStaleMarket, m.ID)
	}
	supplied := v.engine.ConvertToAssets(m, shares)

	price := fixed.Clone(m.UnderlyingPrice)
	return PositionMetrics{
		MarketID:           m.ID,
		StoredBorrowAssets: borrowed,
		SupplyAssets:       supplied,
		BorrowUSD:          v.math.MulDown(borrowed, price),
		SupplyUSD:          v.math.MulDown(supplied, price),
	}, nil
}

// Net aggregates exposures into value-weighted APYs, a signed net APY and net
// worth.
func (v *Valuer) Net(exposures []Exposure) (NetMetrics, error) {
	var (
		totalBorrow    = new(big.Int)
		totalSupply    = new(big.Int)
		borrowInterest = new(big.Int)
		supplyInterest = new(big.Int)
	)
	for _, x := range exposures {
		borrowUSD := fixed.Clone(x.BorrowUSD)
		supplyUSD := fixed.Clone(x.SupplyUSD)
		totalBorrow.Add(totalBorrow, borrowUSD)
		totalSupply.Add(totalSupply, supplyUSD)
		borrowInterest.Add(borrowInterest, v.math.MulDown(borrowUSD, fixed.Clone(x.BorrowAPY)))
		supplyInterest.Add(supplyInterest, v.math.MulDown(supplyUSD, fixed.Clone(x.SupplyAPY)))
	}

	borrowAPY, err := v.math.DivDown(borrowInterest, totalBorrow)
	if err != nil {
		return NetMetrics{}, fmt.Errorf("net borrow apy: %w", err)
	}
	supplyAPY, err := v.math.DivDown(supplyInterest, totalSupply)
	if err != nil {
		return NetMetrics{}, fmt.Errorf("net supply apy: %w", err)
	}

	negative := borrowInterest.Cmp(supplyInterest) > 0
	var netAPY *big.Int
	if negative {
		netAPY, err = v.math.DivDown(new(big.Int).Sub(borrowInterest, supplyInterest), totalBorrow)
	} else {
		netAPY, err = v.math.DivDown(new(big.Int).Sub(supplyInterest, borrowInterest), totalSupply)
	}
	if err != nil {
		return NetMetrics{}, fmt.Errorf("net apy: %w", err)
	}

	return NetMetrics{
		TotalBorrowUSD: totalBorrow,
		TotalSupplyUSD: totalSupply,
		BorrowAPY:      borrowAPY,
		SupplyAPY:      supplyAPY,
		NetAPY:         netAPY,
		NetAPYNegative: negative,
		NetWorth:       new(big.Int).Sub(totalSupply, totalBorrow),
	}, nil
}

// Health computes the health index from entries and their metrics, which
// must be index-aligned.
func (v *Valuer) Health(entries []Entry, positions []PositionMetrics, totalBorrowUSD *big.Int) (HealthIndex, error) {
	weighted := new(big.Int)
	for i, e := range entries {
		if e.Position == nil || !e.Position.IsCollateral {
			continue
		}
		w, err := v.math.DivDown(positions[i].SupplyUSD, e.LiquidationThreshold())
		if err != nil {
			return HealthIndex{}, fmt.Errorf("health %s: %w", e.Market.ID, err)
		}
		weighted.Add(weighted, w)
	}

	if totalBorrowUSD.Sign() == 0 {
		return HealthIndex{Unbounded: true}, nil
	}
	value, err := v.math.DivDown(weighted, totalBorrowUSD)
	if err != nil {
		return HealthIndex{}, fmt.Errorf("health: %w", err)
	}
	return HealthIndex{Value: value}, nil
}

// Protocol evaluates all entries of s as one protocol. The protocol ID is
// taken from the first entry.
func (v *Valuer) Protocol(s Snapshot) (ProtocolMetrics, error) {
	var (
		positions = make([]PositionMetrics, len(s.Entries))
		exposures = make([]Exposure, len(s.Entries))
		result    ProtocolMetrics
	)
	for i, e := range s.Entries {
		p, err := v.Position(e)
		if err != nil {
			return ProtocolMetrics{}, err
		}
		positions[i] = p
		exposures[i] = Exposure{
			BorrowUSD: p.BorrowUSD,
			SupplyUSD: p.SupplyUSD,
			BorrowAPY: e.Market.Rates.BorrowRateAPY,
			SupplyAPY: e.Market.Rates.SupplyRateAPY,
		}
		if i == 0 {
			result.ProtocolID = e.Market.ProtocolID
		}
	}

	net, err := v.Net(exposures)
	if err != nil {
		return ProtocolMetrics{}, err
	}
	health, err := v.Health(s.Entries, positions, net.TotalBorrowUSD)
	if err != nil {
		return ProtocolMetrics{}, err
	}

	result.Positions = positions
	result.Net = net
	result.Health = health
	return result, nil
}

// User evaluates each protocol in s and then nets the protocols against each
// other using their aggregate values and APYs.
func (v *Valuer) User(s Snapshot) (UserMetrics, error) {
	for _, e := range s.Entries {
		if e.Market == nil {
			return UserMetrics{}, ErrMissingMarket
		}
	}

	groups := s.ByProtocol()
	protocols := make([]ProtocolMetrics, 0, len(groups))
	exposures := make([]Exposure, 0, len(groups))
	for _, group := range groups {
		p, err := v.Protocol(group)
		if err != nil {
			return UserMetrics{}, err
		}
		protocols = append(protocols, p)
		exposures = append(exposures, Exposure{
			BorrowUSD: p.Net.TotalBorrowUSD,
			SupplyUSD: p.Net.TotalSupplyUSD,
			BorrowAPY: p.Net.BorrowAPY,
			SupplyAPY: p.Net.SupplyAPY,
		})
	}

	net, err := v.Net(exposures)
	if err != nil {
		return UserMetrics{}, err
	}
	return UserMetrics{
		User:      s.User,
		Protocols: protocols,
		Net:       net,
	}, nil
}

// Refresh returns a copy of s with every market accrued and its rates derived
// as of now.
func (v *Valuer) Refresh(s Snapshot, now uint64) (Snapshot, error) {
	next := Snapshot{
		User:    s.User,
		Entries: make([]Entry, len(s.Entries)),
	}
	for i, e := range s.Entries {
		if e.Market == nil {
			return Snapshot{}, ErrMissingMarket
		}
		m, err := v.refresher.Refresh(e.Market, now)
		if err != nil {
			return Snapshot{}, err
		}
		next.Entries[i] = Entry{
			Market:   m,
			Position: e.Position,
			EMode:    e.EMode,
		}
	}
	return next, nil
}
