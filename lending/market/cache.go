// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"encoding/binary"
	"math/big"

	"github.com/luxfi/cache"
	"github.com/luxfi/cache/lru"
	"github.com/luxfi/crypto/hash"
)

var (
	_ Refresher = (*Engine)(nil)
	_ Refresher = (*RefreshCache)(nil)
)

// Refresher brings a market snapshot up to a point in time.
type Refresher interface {
	Refresh(m *Market, now uint64) (*Market, error)
}

// RefreshCache memoizes Engine.Refresh. Portfolios evaluated together usually
// reference the same market snapshots, so each is accrued once.
type RefreshCache struct {
	engine *Engine
	cache  cache.Cacher[hash.Hash256, *Market] // fingerprint -> refreshed market
}

func NewRefreshCache(engine *Engine, size int) *RefreshCache {
	return &RefreshCache{
		engine: engine,
		cache:  lru.NewCache[hash.Hash256, *Market](size),
	}
}

// Refresh returns a copy of the cached refresh of m at now, computing it on a
// miss.
func (c *RefreshCache) Refresh(m *Market, now uint64) (*Market, error) {
	key := Fingerprint(m, now)
	if cached, ok := c.cache.Get(key); ok {
		return cached.Clone(), nil
	}

	next, err := c.engine.Refresh(m, now)
	if err != nil {
		return nil, err
	}
	c.cache.Put(key, next.Clone())
	return next, nil
}

// Fingerprint hashes every input field of m together with now. Derived rates
// are excluded since Refresh overwrites them.
func Fingerprint(m *Market, now uint64) hash.Hash256 {
	var buf []byte
	addUint := func(v uint64) {
		buf = binary.BigEndian.AppendUint64(buf, v)
	}
	addBytes := func(b []byte) {
		addUint(uint64(len(b)))
		buf = append(buf, b...)
	}
	addInt := func(v *big.Int) {
		if v == nil {
			addUint(0)
			return
		}
		// Market.Verify rejects negative amounts, so the sign needs no
		// encoding.
		addBytes(v.Bytes())
	}
	addBool := func(b bool) {
		if b {
			addUint(1)
		} else {
			addUint(0)
		}
	}

	addBytes([]byte(m.ID))
	addBytes([]byte(m.ProtocolID))
	addBytes(m.Address.Bytes())
	addBytes(m.Underlying.Bytes())
	addBytes([]byte(m.Symbol))
	addUint(uint64(m.Decimals))

	for _, v := range []*big.Int{
		m.RateModel.BaseRatePerSecond,
		m.RateModel.MultiplierPerSecond,
		m.RateModel.FirstJumpMultiplierPerSecond,
		m.RateModel.SecondJumpMultiplierPerSecond,
		m.RateModel.FirstKink,
		m.RateModel.SecondKink,
		m.Risk.CollateralFactor,
		m.Risk.LiquidationThreshold,
		m.Risk.LiquidationIncentive,
		m.Risk.ReserveFactor,
		m.Risk.ProtocolSeizeShare,
		m.Risk.CloseFactor,
		m.SupplyCap,
		m.BorrowCap,
		m.Cash,
		m.TotalBorrows,
		m.TotalReserves,
		m.TotalSupply,
		m.BorrowIndex,
		m.UnderlyingPrice,
	} {
		addInt(v)
	}
	addUint(m.UpdatedAt)
	addBool(m.Pauses.Mint)
	addBool(m.Pauses.Borrow)
	addBool(m.Pauses.Transfer)
	addBool(m.Pauses.Seize)
	addUint(now)

	return hash.ComputeHash256Array(buf)
}
