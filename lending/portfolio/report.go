// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package portfolio

import (
	"github.com/luxfi/geth/common"

	"github.com/luxfi/lending/utils/math/fixed"
)

// UnboundedHealth is the rendering of a health index for a portfolio with no
// debt.
const UnboundedHealth = "inf"

// Reports are the read models handed to clients. Every amount is a decimal
// string in whole units.

type PositionReport struct {
	MarketID           string `json:"marketId"`
	StoredBorrowAssets string `json:"storedBorrowAssets"`
	SupplyAssets       string `json:"supplyAssets"`
	BorrowUSDValue     string `json:"borrowUsdValue"`
	SupplyUSDValue     string `json:"supplyUsdValue"`
}

type NetReport struct {
	NetBorrowUSDValue string `json:"netBorrowUsdValue"`
	NetSupplyUSDValue string `json:"netSupplyUsdValue"`
	NetBorrowAPY      string `json:"netBorrowAPY"`
	NetSupplyAPY      string `json:"netSupplyAPY"`
	NetAPY            string `json:"netAPY"`
	NetWorth          string `json:"netWorth"`
}

type ProtocolReport struct {
	ProtocolID  string           `json:"protocolId"`
	HealthIndex string           `json:"healthIndex"`
	Solvent     bool             `json:"solvent"`
	Net         NetReport        `json:"netMetrics"`
	Positions   []PositionReport `json:"positions"`
}

type UserReport struct {
	User      common.Address   `json:"user"`
	Protocols []ProtocolReport `json:"protocolMetrics"`
	Net       NetReport        `json:"netMetrics"`
}

func (p PositionMetrics) Report(m *fixed.Math) PositionReport {
	return PositionReport{
		MarketID:           p.MarketID,
		StoredBorrowAssets: m.ToDecimal(p.StoredBorrowAssets),
		SupplyAssets:       m.ToDecimal(p.SupplyAssets),
		BorrowUSDValue:     m.ToDecimal(p.BorrowUSD),
		SupplyUSDValue:     m.ToDecimal(p.SupplyUSD),
	}
}

func (n NetMetrics) Report(m *fixed.Math) NetReport {
	netAPY := m.ToDecimal(n.NetAPY)
	if n.NetAPYNegative && n.NetAPY.Sign() != 0 {
		netAPY = "-" + netAPY
	}
	return NetReport{
		NetBorrowUSDValue: m.ToDecimal(n.TotalBorrowUSD),
		NetSupplyUSDValue: m.ToDecimal(n.TotalSupplyUSD),
		NetBorrowAPY:      m.ToDecimal(n.BorrowAPY),
		NetSupplyAPY:      m.ToDecimal(n.SupplyAPY),
		NetAPY:            netAPY,
		NetWorth:          m.ToDecimal(n.NetWorth),
	}
}

// Decimal renders h in whole units, or UnboundedHealth.
func (h HealthIndex) Decimal(m *fixed.Math) string {
	if h.Unbounded {
		return UnboundedHealth
	}
	return m.ToDecimal(h.Value)
}

func (p ProtocolMetrics) Report(m *fixed.Math) ProtocolReport {
	positions := make([]PositionReport, len(p.Positions))
	for i, position := range p.Positions {
		positions[i] = position.Report(m)
	}
	return ProtocolReport{
		ProtocolID:  p.ProtocolID,
		HealthIndex: p.Health.Decimal(m),
		Solvent:     p.Health.Exceeds(m.One()),
		Net:         p.Net.Report(m),
		Positions:   positions,
	}
}

func (u UserMetrics) Report(m *fixed.Math) UserReport {
	protocols := make([]ProtocolReport, len(u.Protocols))
	for i, p := range u.Protocols {
		protocols[i] = p.Report(m)
	}
	return UserReport{
		User:      u.User,
		Protocols: protocols,
		Net:       u.Net.Report(m),
	}
}
