// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package validator simulates user actions against a portfolio snapshot and
// decides whether the resulting portfolio would remain solvent.
package validator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/utils/math/fixed"
)

var (
	ErrUnknownMarket = errors.New("unknown market")
	ErrInvalidAmount = errors.New("invalid amount")
)

// Config toggles checks beyond balances, caps and health. Both are off by
// default.
type Config struct {
	// EnforcePauses rejects deposits into mint-paused markets and borrows
	// from borrow-paused markets.
	EnforcePauses bool `json:"enforcePauses" yaml:"enforcePauses"`
	// EnforceEfficiencyMode rejects borrowing or enabling collateral where
	// the entry's efficiency mode disallows it.
	EnforceEfficiencyMode bool `json:"enforceEfficiencyMode" yaml:"enforceEfficiencyMode"`
}

// Verdict is the outcome of validating an action. A rejection is not an
// error: errors mean the inputs were malformed.
type Verdict struct {
	Accepted bool
	Reason   Reason
	// MarketID is the market that failed a per-position check, if any.
	MarketID string
	// Health is the simulated portfolio's health index. It is only set once
	// the per-position checks pass.
	Health portfolio.HealthIndex
}

func reject(reason Reason, marketID string) Verdict {
	return Verdict{
		Reason:   reason,
		MarketID: marketID,
	}
}

// Validator applies actions to copies of portfolio snapshots. It never
// mutates its inputs and is safe for concurrent use.
type Validator struct {
	valuer *portfolio.Valuer
	one    *big.Int
	config Config
}

func New(math *fixed.Math, valuer *portfolio.Valuer, config Config) *Validator {
	return &Validator{
		valuer: valuer,
		one:    math.One(),
		config: config,
	}
}

// Validate applies a to a copy of s and checks the result. Only the entries
// of the target market's protocol count toward solvency.
func (v *Validator) Validate(s portfolio.Snapshot, a Action) (Verdict, error) {
	if _, ok := kindNames[a.Kind]; !ok {
		return Verdict{}, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(a.Kind))
	}
	if a.Kind.hasAmount() && (a.Amount == nil || a.Amount.Sign() < 0) {
		return Verdict{}, fmt.Errorf("%w: %s %s", ErrInvalidAmount, a.Kind, a.Amount)
	}
	for _, e := range s.Entries {
		if e.Market == nil {
			return Verdict{}, portfolio.ErrMissingMarket
		}
	}

	i := s.Index(a.MarketID)
	if i < 0 {
		if a.Market == nil || a.Market.ID != a.MarketID {
			return Verdict{}, fmt.Errorf("%w: %q", ErrUnknownMarket, a.MarketID)
		}
		if !a.Kind.opensPosition() {
			return reject(ReasonNoPosition, a.MarketID), nil
		}
		s = s.Append(portfolio.Entry{Market: a.Market})
		i = len(s.Entries) - 1
	}

	entry := s.Entries[i]
	if entry.Position == nil && !a.Kind.opensPosition() {
		return reject(ReasonNoPosition, a.MarketID), nil
	}
	if reason := v.gate(entry, a.Kind); reason != ReasonNone {
		return reject(reason, a.MarketID), nil
	}

	position := openPosition(entry)
	apply(position, a)
	simulated := s.With(i, portfolio.Entry{
		Market:   entry.Market,
		Position: position,
		EMode:    entry.EMode,
	})
	return v.Check(simulated.OfProtocol(entry.Market.ProtocolID))
}

// gate applies the optional pause and efficiency mode checks.
func (v *Validator) gate(e portfolio.Entry, k Kind) Reason {
	if v.config.EnforcePauses {
		switch {
		case k == Deposit && e.Market.Pauses.Mint:
			return ReasonMarketPaused
		case k == Borrow && e.Market.Pauses.Borrow:
			return ReasonMarketPaused
		}
	}
	if v.config.EnforceEfficiencyMode && e.EMode != nil {
		switch {
		case k == Borrow && !e.EMode.BorrowEnabled:
			return ReasonEfficiencyModeDisabled
		case k == EnterMarket && !e.EMode.CollateralEnabled:
			return ReasonEfficiencyModeDisabled
		}
	}
	return ReasonNone
}

// openPosition returns a copy of the entry's position, or a zeroed one
// settled at the market's current borrow index.
func openPosition(e portfolio.Entry) *market.Position {
	if e.Position != nil {
		return e.Position.Clone()
	}
	return &market.Position{
		MarketID:      e.Market.ID,
		SupplyShares:  new(big.Int),
		BorrowAssets:  new(big.Int),
		InterestIndex: fixed.Clone(e.Market.BorrowIndex),
		UpdatedAt:     e.Market.UpdatedAt,
	}
}

func apply(p *market.Position, a Action) {
	switch a.Kind {
	case Deposit:
		p.SupplyShares.Add(p.SupplyShares, a.Amount)
	case Withdraw:
		p.SupplyShares.Sub(p.SupplyShares, a.Amount)
	case Borrow:
		p.BorrowAssets.Add(p.BorrowAssets, a.Amount)
	case Repay:
		p.BorrowAssets.Sub(p.BorrowAssets, a.Amount)
	case EnterMarket:
		p.IsCollateral = true
	case ExitMarket:
		p.IsCollateral = false
	}
}

// Check validates s as it stands: balances must be non-negative, within the
// market caps, and the portfolio's health index must be strictly above one.
func (v *Validator) Check(s portfolio.Snapshot) (Verdict, error) {
	for _, e := range s.Entries {
		if e.Market == nil {
			return Verdict{}, portfolio.ErrMissingMarket
		}
		p := e.Position
		if p == nil {
			continue
		}
		if fixed.Clone(p.SupplyShares).Sign() < 0 {
			return reject(ReasonNegativeSupply, e.Market.ID), nil
		}
		if fixed.Clone(p.BorrowAssets).Sign() < 0 {
			return reject(ReasonNegativeBorrow, e.Market.ID), nil
		}
	}
	for _, e := range s.Entries {
		p := e.Position
		if p == nil {
			continue
		}
		if fixed.Clone(p.SupplyShares).Cmp(fixed.Clone(e.Market.SupplyCap)) > 0 {
			return reject(ReasonSupplyCap, e.Market.ID), nil
		}
		if fixed.Clone(p.BorrowAssets).Cmp(fixed.Clone(e.Market.BorrowCap)) > 0 {
			return reject(ReasonBorrowCap, e.Market.ID), nil
		}
	}

	metrics, err := v.valuer.Protocol(s)
	if err != nil {
		return Verdict{}, err
	}
	verdict := Verdict{
		Accepted: metrics.Health.Exceeds(v.one),
		Health:   metrics.Health,
	}
	if !verdict.Accepted {
		verdict.Reason = ReasonInsufficientCollateral
	}
	return verdict, nil
}

func (v *Validator) Deposit(s portfolio.Snapshot, target *market.Market, amount *big.Int) (Verdict, error) {
	return v.Validate(s, newAction(Deposit, target, amount))
}

func (v *Validator) Withdraw(s portfolio.Snapshot, target *market.Market, amount *big.Int) (Verdict, error) {
	return v.Validate(s, newAction(Withdraw, target, amount))
}

func (v *Validator) Borrow(s portfolio.Snapshot, target *market.Market, amount *big.Int) (Verdict, error) {
	return v.Validate(s, newAction(Borrow, target, amount))
}

func (v *Validator) Repay(s portfolio.Snapshot, target *market.Market, amount *big.Int) (Verdict, error) {
	return v.Validate(s, newAction(Repay, target, amount))
}

func (v *Validator) EnterMarket(s portfolio.Snapshot, target *market.Market) (Verdict, error) {
	return v.Validate(s, newAction(EnterMarket, target, nil))
}

func (v *Validator) ExitMarket(s portfolio.Snapshot, target *market.Market) (Verdict, error) {
	return v.Validate(s, newAction(ExitMarket, target, nil))
}

func newAction(kind Kind, target *market.Market, amount *big.Int) Action {
	return Action{
		Kind:     kind,
		MarketID: target.ID,
		Amount:   amount,
		Market:   target,
	}
}

// VerdictReport is the client-facing form of a Verdict.
type VerdictReport struct {
	Accepted    bool   `json:"accepted"`
	Reason      string `json:"reason,omitempty"`
	MarketID    string `json:"marketId,omitempty"`
	HealthIndex string `json:"healthIndex,omitempty"`
}

func (v Verdict) Report(m *fixed.Math) VerdictReport {
	r := VerdictReport{
		Accepted: v.Accepted,
		MarketID: v.MarketID,
	}
	if v.Reason != ReasonNone {
		r.Reason = v.Reason.String()
	}
	if v.Health.Unbounded || v.Health.Value != nil {
		r.HealthIndex = v.Health.Decimal(m)
	}
	return r
}
