// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"errors"
	"math/big"

	"github.com/spf13/pflag"

	"github.com/luxfi/lending/cmd/lendingd/common"
	"github.com/luxfi/lending/lending/config"
	"github.com/luxfi/lending/lending/validator"
)

const (
	ActionKey     = "action"
	MarketKey     = "market"
	AmountKey     = "amount"
	MarketFileKey = "market-file"
)

var errMissingPortfolio = errors.New("exactly one portfolio file is required")

func AddFlags(flags *pflag.FlagSet) {
	common.AddConfigFlags(flags)
	common.AddTimestampFlag(flags)
	flags.String(ActionKey, "", "One of deposit, withdraw, borrow, repay, enterMarket or exitMarket (required)")
	flags.String(MarketKey, "", "ID of the target market (required)")
	flags.String(AmountKey, "0", "Amount in whole units of the underlying, e.g. 1.5")
	flags.String(MarketFileKey, "", "Market record to use when the portfolio has no entry for the target")
}

type Config struct {
	Lending    config.Config
	Timestamp  uint64
	Action     validator.Kind
	MarketID   string
	Amount     *big.Int
	MarketFile string
	Portfolio  string
}

func ParseFlags(flags *pflag.FlagSet, args []string) (*Config, error) {
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	lending, err := common.ParseConfig(flags)
	if err != nil {
		return nil, err
	}

	timestamp, err := flags.GetUint64(common.TimestampKey)
	if err != nil {
		return nil, err
	}

	actionStr, err := flags.GetString(ActionKey)
	if err != nil {
		return nil, err
	}
	action, err := validator.ParseKind(actionStr)
	if err != nil {
		return nil, err
	}

	marketID, err := flags.GetString(MarketKey)
	if err != nil {
		return nil, err
	}

	amountStr, err := flags.GetString(AmountKey)
	if err != nil {
		return nil, err
	}
	math, err := lending.Math()
	if err != nil {
		return nil, err
	}
	amount, err := math.FromDecimal(amountStr)
	if err != nil {
		return nil, err
	}

	marketFile, err := flags.GetString(MarketFileKey)
	if err != nil {
		return nil, err
	}

	if flags.NArg() != 1 {
		return nil, errMissingPortfolio
	}

	return &Config{
		Lending:    lending,
		Timestamp:  timestamp,
		Action:     action,
		MarketID:   marketID,
		Amount:     amount,
		MarketFile: marketFile,
		Portfolio:  flags.Arg(0),
	}, nil
}
