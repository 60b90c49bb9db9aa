// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evaluate

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/luxfi/lending/cmd/lendingd/common"
	"github.com/luxfi/lending/lending/config"
)

const ProtocolKey = "protocol"

var errNoPortfolios = errors.New("at least one portfolio file is required")

func AddFlags(flags *pflag.FlagSet) {
	common.AddConfigFlags(flags)
	common.AddTimestampFlag(flags)
	flags.String(ProtocolKey, "", "Only report the named protocol. Requires exactly one portfolio")
}

type Config struct {
	Lending    config.Config
	Timestamp  uint64
	ProtocolID string
	Portfolios []string
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

	protocolID, err := flags.GetString(ProtocolKey)
	if err != nil {
		return nil, err
	}

	portfolios := flags.Args()
	if len(portfolios) == 0 {
		return nil, errNoPortfolios
	}

	return &Config{
		Lending:    lending,
		Timestamp:  timestamp,
		ProtocolID: protocolID,
		Portfolios: portfolios,
	}, nil
}
