// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package common holds the flags and setup shared by every lendingd command.
package common

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/spf13/pflag"

	"github.com/luxfi/lending/lending/api"
	"github.com/luxfi/lending/lending/config"
	"github.com/luxfi/lending/lending/metrics"
	"github.com/luxfi/lending/lending/snapshot"
	"github.com/luxfi/lending/utils/compression"
	"github.com/luxfi/lending/utils/timer/mockable"
	"github.com/luxfi/lending/utils/units"
)

const (
	ConfigFileKey = "config-file"
	TimestampKey  = "timestamp"

	maxSnapshotSize = 256 * units.MiB
)

func AddConfigFlags(flags *pflag.FlagSet) {
	flags.String(ConfigFileKey, "", "YAML or JSON config file. Defaults are used when empty")
}

func AddTimestampFlag(flags *pflag.FlagSet) {
	flags.Uint64(TimestampKey, 0, "Unix time to evaluate at. Zero uses the current time")
}

// ParseConfig loads the config named by the config-file flag.
func ParseConfig(flags *pflag.FlagSet) (config.Config, error) {
	path, err := flags.GetString(ConfigFileKey)
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		c := config.DefaultConfig()
		return c, c.Verify()
	}
	return config.Load(path)
}

// Print writes v to w as indented JSON.
func Print(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

// Open returns the named file, or stdin for "-".
func Open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

// NewService builds the API service and the registry its metrics are
// reported to.
func NewService(c config.Config, logger log.Logger) (*api.Service, metric.Registry, error) {
	registry := metric.NewRegistry()
	m, err := metrics.New(c.MetricsNamespace, registry)
	if err != nil {
		return nil, nil, err
	}
	service, err := api.NewService(c, logger, m, &mockable.Clock{})
	if err != nil {
		return nil, nil, err
	}
	return service, registry, nil
}

// ReadPortfolio decodes the portfolio record at path, or stdin for "-". The
// file may be zstd compressed.
func ReadPortfolio(path string) (snapshot.PortfolioRecord, error) {
	f, err := Open(path)
	if err != nil {
		return snapshot.PortfolioRecord{}, err
	}
	defer f.Close()

	r, err := compression.NewReader(f, maxSnapshotSize)
	if err != nil {
		return snapshot.PortfolioRecord{}, err
	}
	defer r.Close()

	record, err := snapshot.DecodePortfolio(r)
	if err != nil {
		return snapshot.PortfolioRecord{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return record, nil
}
