// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package snapshot decodes the market and position records produced by the
// indexer into the domain types used by the risk engine.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/lending/ratemodel"

	lendjson "github.com/luxfi/lending/utils/json"
)

var ErrInvalidRecord = errors.New("invalid record")

// MarketRecord is one row of the indexed market table. Amounts are decimal
// strings of scaled integers.
type MarketRecord struct {
	ID         string         `json:"id"`
	ProtocolID string         `json:"protocolId"`
	Address    common.Address `json:"address"`
	Underlying common.Address `json:"underlying"`
	Symbol     string         `json:"symbol"`
	Decimals   uint8          `json:"decimals"`

	BaseRatePerSecond             lendjson.BigInt `json:"baseRatePerSecond"`
	MultiplierPerSecond           lendjson.BigInt `json:"multiplierPerSecond"`
	FirstJumpMultiplierPerSecond  lendjson.BigInt `json:"firstJumpMultiplierPerSecond"`
	SecondJumpMultiplierPerSecond lendjson.BigInt `json:"secondJumpMultiplierPerSecond"`
	FirstKink                     lendjson.BigInt `json:"firstKink"`
	SecondKink                    lendjson.BigInt `json:"secondKink"`

	CollateralFactor     lendjson.BigInt `json:"collateralFactor"`
	LiquidationThreshold lendjson.BigInt `json:"liquidationThreshold"`
	LiquidationIncentive lendjson.BigInt `json:"liquidationIncentive"`
	ReserveFactor        lendjson.BigInt `json:"reserveFactor"`
	ProtocolSeizeShare   lendjson.BigInt `json:"protocolSeizeShare"`
	CloseFactor          lendjson.BigInt `json:"closeFactor"`

	SupplyCap lendjson.BigInt `json:"supplyCap"`
	BorrowCap lendjson.BigInt `json:"borrowCap"`

	Cash          lendjson.BigInt `json:"cash"`
	TotalBorrows  lendjson.BigInt `json:"totalBorrows"`
	TotalReserves lendjson.BigInt `json:"totalReserves"`
	TotalSupply   lendjson.BigInt `json:"totalSupply"`
	BorrowIndex   lendjson.BigInt `json:"borrowIndex"`
	UpdatedAt     lendjson.Uint64 `json:"updatedAt"`

	UnderlyingPrice lendjson.BigInt `json:"underlyingPrice"`

	MintPaused     bool `json:"isMintPaused"`
	BorrowPaused   bool `json:"isBorrowPaused"`
	TransferPaused bool `json:"isTransferPaused"`
	SeizePaused    bool `json:"isSeizePaused"`
}

// Market converts r into a verified market snapshot. Derived rates are left
// unset until the market is refreshed.
func (r MarketRecord) Market() (*market.Market, error) {
	m := &market.Market{
		ID:         r.ID,
		ProtocolID: r.ProtocolID,
		Address:    r.Address,
		Underlying: r.Underlying,
		Symbol:     r.Symbol,
		Decimals:   r.Decimals,
		RateModel: ratemodel.Params{
			BaseRatePerSecond:             r.BaseRatePerSecond.Int(),
			MultiplierPerSecond:           r.MultiplierPerSecond.Int(),
			FirstJumpMultiplierPerSecond:  r.FirstJumpMultiplierPerSecond.Int(),
			SecondJumpMultiplierPerSecond: r.SecondJumpMultiplierPerSecond.Int(),
			FirstKink:                     r.FirstKink.Int(),
			SecondKink:                    r.SecondKink.Int(),
		},
		Risk: market.Risk{
			CollateralFactor:     r.CollateralFactor.Int(),
			LiquidationThreshold: r.LiquidationThreshold.Int(),
			LiquidationIncentive: r.LiquidationIncentive.Int(),
			ReserveFactor:        r.ReserveFactor.Int(),
			ProtocolSeizeShare:   r.ProtocolSeizeShare.Int(),
			CloseFactor:          r.CloseFactor.Int(),
		},
		SupplyCap:       r.SupplyCap.Int(),
		BorrowCap:       r.BorrowCap.Int(),
		Cash:            r.Cash.Int(),
		TotalBorrows:    r.TotalBorrows.Int(),
		TotalReserves:   r.TotalReserves.Int(),
		TotalSupply:     r.TotalSupply.Int(),
		BorrowIndex:     r.BorrowIndex.Int(),
		UpdatedAt:       uint64(r.UpdatedAt),
		UnderlyingPrice: r.UnderlyingPrice.Int(),
		Pauses: market.Pauses{
			Mint:     r.MintPaused,
			Borrow:   r.BorrowPaused,
			Transfer: r.TransferPaused,
			Seize:    r.SeizePaused,
		},
	}
	if err := m.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return m, nil
}

// NewMarketRecord is the inverse of MarketRecord.Market.
func NewMarketRecord(m *market.Market) MarketRecord {
	return MarketRecord{
		ID:                            m.ID,
		ProtocolID:                    m.ProtocolID,
		Address:                       m.Address,
		Underlying:                    m.Underlying,
		Symbol:                        m.Symbol,
		Decimals:                      m.Decimals,
		BaseRatePerSecond:             lendjson.NewBigInt(m.RateModel.BaseRatePerSecond),
		MultiplierPerSecond:           lendjson.NewBigInt(m.RateModel.MultiplierPerSecond),
		FirstJumpMultiplierPerSecond:  lendjson.NewBigInt(m.RateModel.FirstJumpMultiplierPerSecond),
		SecondJumpMultiplierPerSecond: lendjson.NewBigInt(m.RateModel.SecondJumpMultiplierPerSecond),
		FirstKink:                     lendjson.NewBigInt(m.RateModel.FirstKink),
		SecondKink:                    lendjson.NewBigInt(m.RateModel.SecondKink),
		CollateralFactor:              lendjson.NewBigInt(m.Risk.CollateralFactor),
		LiquidationThreshold:          lendjson.NewBigInt(m.Risk.LiquidationThreshold),
		LiquidationIncentive:          lendjson.NewBigInt(m.Risk.LiquidationIncentive),
		ReserveFactor:                 lendjson.NewBigInt(m.Risk.ReserveFactor),
		ProtocolSeizeShare:            lendjson.NewBigInt(m.Risk.ProtocolSeizeShare),
		CloseFactor:                   lendjson.NewBigInt(m.Risk.CloseFactor),
		SupplyCap:                     lendjson.NewBigInt(m.SupplyCap),
		BorrowCap:                     lendjson.NewBigInt(m.BorrowCap),
		Cash:                          lendjson.NewBigInt(m.Cash),
		TotalBorrows:                  lendjson.NewBigInt(m.TotalBorrows),
		TotalReserves:                 lendjson.NewBigInt(m.TotalReserves),
		TotalSupply:                   lendjson.NewBigInt(m.TotalSupply),
		BorrowIndex:                   lendjson.NewBigInt(m.BorrowIndex),
		UpdatedAt:                     lendjson.Uint64(m.UpdatedAt),
		UnderlyingPrice:               lendjson.NewBigInt(m.UnderlyingPrice),
		MintPaused:                    m.Pauses.Mint,
		BorrowPaused:                  m.Pauses.Borrow,
		TransferPaused:                m.Pauses.Transfer,
		SeizePaused:                   m.Pauses.Seize,
	}
}

// PositionRecord is one row of the indexed user balance table.
type PositionRecord struct {
	MarketID      string          `json:"marketId"`
	SupplyShares  lendjson.BigInt `json:"supplyShares"`
	BorrowAssets  lendjson.BigInt `json:"borrowAssets"`
	IsCollateral  bool            `json:"isCollateral"`
	InterestIndex lendjson.BigInt `json:"interestIndex"`
	UpdatedAt     lendjson.Uint64 `json:"updatedAt"`
}

func (r PositionRecord) Position() (*market.Position, error) {
	p := &market.Position{
		MarketID:      r.MarketID,
		SupplyShares:  r.SupplyShares.Int(),
		BorrowAssets:  r.BorrowAssets.Int(),
		IsCollateral:  r.IsCollateral,
		InterestIndex: r.InterestIndex.Int(),
		UpdatedAt:     uint64(r.UpdatedAt),
	}
	if err := p.Verify(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return p, nil
}

// EfficiencyModeRecord joins the user's chosen category with the market's
// parameters in that category.
type EfficiencyModeRecord struct {
	CategoryID           uint32          `json:"categoryId"`
	CollateralFactor     lendjson.BigInt `json:"collateralFactor"`
	LiquidationThreshold lendjson.BigInt `json:"liquidationThreshold"`
	LiquidationIncentive lendjson.BigInt `json:"liquidationIncentive"`
	BorrowEnabled        bool            `json:"borrowEnabled"`
	CollateralEnabled    bool            `json:"collateralEnabled"`
}

func (r EfficiencyModeRecord) EfficiencyMode() *portfolio.EfficiencyMode {
	return &portfolio.EfficiencyMode{
		CategoryID:           r.CategoryID,
		CollateralFactor:     r.CollateralFactor.Int(),
		LiquidationThreshold: r.LiquidationThreshold.Int(),
		LiquidationIncentive: r.LiquidationIncentive.Int(),
		BorrowEnabled:        r.BorrowEnabled,
		CollateralEnabled:    r.CollateralEnabled,
	}
}

type EntryRecord struct {
	Market   MarketRecord          `json:"market"`
	Position *PositionRecord       `json:"position,omitempty"`
	EMode    *EfficiencyModeRecord `json:"eMode,omitempty"`
}

// PortfolioRecord is everything the indexer knows about one user at one
// instant.
type PortfolioRecord struct {
	User    common.Address `json:"user"`
	Entries []EntryRecord  `json:"entries"`
}

// Snapshot converts r into a portfolio snapshot. Market IDs must be unique
// and each position must belong to the market it is paired with.
func (r PortfolioRecord) Snapshot() (portfolio.Snapshot, error) {
	s := portfolio.Snapshot{
		User:    r.User,
		Entries: make([]portfolio.Entry, 0, len(r.Entries)),
	}
	seen := make(map[string]struct{}, len(r.Entries))
	for _, er := range r.Entries {
		m, err := er.Market.Market()
		if err != nil {
			return portfolio.Snapshot{}, err
		}
		if _, ok := seen[m.ID]; ok {
			return portfolio.Snapshot{}, fmt.Errorf("%w: duplicate market %q", ErrInvalidRecord, m.ID)
		}
		seen[m.ID] = struct{}{}

		entry := portfolio.Entry{Market: m}
		if er.Position != nil {
			if er.Position.MarketID != m.ID {
				return portfolio.Snapshot{}, fmt.Errorf("%w: position for %q paired with market %q", ErrInvalidRecord, er.Position.MarketID, m.ID)
			}
			entry.Position, err = er.Position.Position()
			if err != nil {
				return portfolio.Snapshot{}, err
			}
		}
		if er.EMode != nil {
			entry.EMode = er.EMode.EfficiencyMode()
		}
		s.Entries = append(s.Entries, entry)
	}
	return s, nil
}

// Markets returns the markets of r in order.
func (r PortfolioRecord) Markets() ([]*market.Market, error) {
	markets := make([]*market.Market, len(r.Entries))
	for i, er := range r.Entries {
		m, err := er.Market.Market()
		if err != nil {
			return nil, err
		}
		markets[i] = m
	}
	return markets, nil
}

// DecodePortfolio reads a single PortfolioRecord from r. Unknown fields are
// rejected.
func DecodePortfolio(r io.Reader) (PortfolioRecord, error) {
	var record PortfolioRecord
	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&record); err != nil {
		return PortfolioRecord{}, fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return record, nil
}
