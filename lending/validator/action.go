// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validator

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/luxfi/lending/lending/market"
)

var ErrUnknownKind = errors.New("unknown action kind")

// Kind is a user action against a market.
type Kind uint8

const (
	Deposit Kind = iota + 1
	Withdraw
	Borrow
	Repay
	EnterMarket
	ExitMarket
)

var kindNames = map[Kind]string{
	Deposit:     "deposit",
	Withdraw:    "withdraw",
	Borrow:      "borrow",
	Repay:       "repay",
	EnterMarket: "enterMarket",
	ExitMarket:  "exitMarket",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// hasAmount reports whether the kind moves a balance.
func (k Kind) hasAmount() bool {
	return k != EnterMarket && k != ExitMarket
}

// opensPosition reports whether the kind may act on a market the user has
// no position in yet.
func (k Kind) opensPosition() bool {
	return k == Deposit || k == Borrow || k == EnterMarket
}

// Action is a candidate user action. Market is only consulted when MarketID
// is not part of the snapshot being validated.
type Action struct {
	Kind     Kind
	MarketID string
	Amount   *big.Int
	Market   *market.Market
}

// Reason explains a rejected verdict.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonNegativeSupply
	ReasonNegativeBorrow
	ReasonSupplyCap
	ReasonBorrowCap
	ReasonInsufficientCollateral
	ReasonNoPosition
	ReasonMarketPaused
	ReasonEfficiencyModeDisabled
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonNegativeSupply:
		return "negative supply shares"
	case ReasonNegativeBorrow:
		return "negative borrow assets"
	case ReasonSupplyCap:
		return "supply cap exceeded"
	case ReasonBorrowCap:
		return "borrow cap exceeded"
	case ReasonInsufficientCollateral:
		return "insufficient collateral"
	case ReasonNoPosition:
		return "no position"
	case ReasonMarketPaused:
		return "market paused"
	case ReasonEfficiencyModeDisabled:
		return "disabled by efficiency mode"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}
