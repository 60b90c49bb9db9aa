// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"github.com/spf13/pflag"

	"github.com/luxfi/lending/cmd/lendingd/common"
	"github.com/luxfi/lending/lending/config"
)

const (
	HTTPHostKey = "http-host"
	HTTPPortKey = "http-port"
)

func AddFlags(flags *pflag.FlagSet) {
	common.AddConfigFlags(flags)
	flags.String(HTTPHostKey, "", "Overrides the configured HTTP host")
	flags.Uint16(HTTPPortKey, 0, "Overrides the configured HTTP port")
}

func ParseFlags(flags *pflag.FlagSet, args []string) (config.Config, error) {
	if err := flags.Parse(args); err != nil {
		return config.Config{}, err
	}

	c, err := common.ParseConfig(flags)
	if err != nil {
		return config.Config{}, err
	}

	host, err := flags.GetString(HTTPHostKey)
	if err != nil {
		return config.Config{}, err
	}
	if host != "" {
		c.HTTPHost = host
	}

	port, err := flags.GetUint16(HTTPPortKey)
	if err != nil {
		return config.Config{}, err
	}
	if port != 0 {
		c.HTTPPort = port
	}
	return c, nil
}
