// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package portfolio values a user's positions across lending markets.
package portfolio

import (
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/utils/math/fixed"
)

// EfficiencyMode is a risk category the user opted into. When attached to an
// entry it replaces the market's own collateral and liquidation parameters.
type EfficiencyMode struct {
	CategoryID           uint32   `json:"categoryId"`
	CollateralFactor     *big.Int `json:"collateralFactor"`
	LiquidationThreshold *big.Int `json:"liquidationThreshold"`
	LiquidationIncentive *big.Int `json:"liquidationIncentive"`
	BorrowEnabled        bool     `json:"borrowEnabled"`
	CollateralEnabled    bool     `json:"collateralEnabled"`
}

func (e *EfficiencyMode) Clone() *EfficiencyMode {
	if e == nil {
		return nil
	}
	c := *e
	c.CollateralFactor = fixed.Clone(e.CollateralFactor)
	c.LiquidationThreshold = fixed.Clone(e.LiquidationThreshold)
	c.LiquidationIncentive = fixed.Clone(e.LiquidationIncentive)
	return &c
}

// Entry pairs a market with the user's position in it. Position is nil when
// the user has never interacted with the market.
type Entry struct {
	Market   *market.Market
	Position *market.Position
	EMode    *EfficiencyMode
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	c := Entry{EMode: e.EMode.Clone()}
	if e.Market != nil {
		c.Market = e.Market.Clone()
	}
	if e.Position != nil {
		c.Position = e.Position.Clone()
	}
	return c
}

// LiquidationThreshold returns the threshold in force for this entry.
func (e Entry) LiquidationThreshold() *big.Int {
	if e.EMode != nil {
		return fixed.Clone(e.EMode.LiquidationThreshold)
	}
	return fixed.Clone(e.Market.Risk.LiquidationThreshold)
}

// CollateralFactor returns the collateral factor in force for this entry.
func (e Entry) CollateralFactor() *big.Int {
	if e.EMode != nil {
		return fixed.Clone(e.EMode.CollateralFactor)
	}
	return fixed.Clone(e.Market.Risk.CollateralFactor)
}

// Snapshot is a consistent view of one user's portfolio. Snapshots are
// treated as immutable: With and Append return copies that share untouched
// entries with the receiver.
type Snapshot struct {
	User    common.Address
	Entries []Entry
}

// Clone returns a deep copy of s.
func (s Snapshot) Clone() Snapshot {
	entries := make([]Entry, len(s.Entries))
	for i, e := range s.Entries {
		entries[i] = e.Clone()
	}
	return Snapshot{
		User:    s.User,
		Entries: entries,
	}
}

// Index returns the position of marketID in s, or -1.
func (s Snapshot) Index(marketID string) int {
	for i, e := range s.Entries {
		if e.Market != nil && e.Market.ID == marketID {
			return i
		}
	}
	return -1
}

// With returns a copy of s with the entry at i replaced by e.
func (s Snapshot) With(i int, e Entry) Snapshot {
	entries := make([]Entry, len(s.Entries))
	copy(entries, s.Entries)
	entries[i] = e
	return Snapshot{
		User:    s.User,
		Entries: entries,
	}
}

// Append returns a copy of s with e added at the end.
func (s Snapshot) Append(e Entry) Snapshot {
	entries := make([]Entry, len(s.Entries), len(s.Entries)+1)
	copy(entries, s.Entries)
	return Snapshot{
		User:    s.User,
		Entries: append(entries, e),
	}
}

// OfProtocol returns the entries of s whose market belongs to protocolID.
func (s Snapshot) OfProtocol(protocolID string) Snapshot {
	var entries []Entry
	for _, e := range s.Entries {
		if e.Market != nil && e.Market.ProtocolID == protocolID {
			entries = append(entries, e)
		}
	}
	return Snapshot{
		User:    s.User,
		Entries: entries,
	}
}

// ByProtocol splits s into one snapshot per protocol, ordered by first
// appearance.
func (s Snapshot) ByProtocol() []Snapshot {
	var (
		order  []string
		groups = make(map[string][]Entry)
	)
	for _, e := range s.Entries {
		id := e.Market.ProtocolID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], e)
	}

	snapshots := make([]Snapshot, 0, len(order))
	for _, id := range order {
		snapshots = append(snapshots, Snapshot{
			User:    s.User,
			Entries: groups[id],
		})
	}
	return snapshots
}
