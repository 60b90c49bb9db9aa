// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package config defines configuration for the lending risk service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/lending/validator"
	"github.com/luxfi/lending/utils/math/fixed"
	"github.com/luxfi/lending/utils/units"
	"github.com/luxfi/lending/utils/wrappers"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config contains configuration parameters for the lending risk service.
type Config struct {
	// Decimals is the fixed-point precision of every amount, rate and price.
	Decimals uint8 `json:"decimals" yaml:"decimals"`
	// SecondsPerYear annualizes per-second rates.
	SecondsPerYear uint64 `json:"secondsPerYear" yaml:"secondsPerYear"`
	// InitialExchangeRate is reported for markets with no shares outstanding.
	InitialExchangeRate string `json:"initialExchangeRate" yaml:"initialExchangeRate"`

	Validator validator.Config `json:"validator" yaml:"validator"`

	// EvaluationConcurrency bounds parallel portfolio evaluations.
	EvaluationConcurrency int `json:"evaluationConcurrency" yaml:"evaluationConcurrency"`
	// RefreshCacheSize is the number of refreshed markets kept in memory.
	// Zero disables the cache.
	RefreshCacheSize int `json:"refreshCacheSize" yaml:"refreshCacheSize"`

	// HTTP server
	HTTPHost          string        `json:"httpHost" yaml:"httpHost"`
	HTTPPort          uint16        `json:"httpPort" yaml:"httpPort"`
	Endpoint          string        `json:"endpoint" yaml:"endpoint"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	MetricsNamespace string `json:"metricsNamespace" yaml:"metricsNamespace"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Decimals:            fixed.DefaultDecimals,
		SecondsPerYear:      units.Year,
		InitialExchangeRate: "1",

		EvaluationConcurrency: 8,
		RefreshCacheSize:      1024,

		HTTPHost:          "127.0.0.1",
		HTTPPort:          9650,
		Endpoint:          "/ext/lending",
		ReadHeaderTimeout: 10 * time.Second,
		ShutdownTimeout:   5 * time.Second,

		MetricsNamespace: "lending",
	}
}

// Load reads a YAML (or JSON) file over the defaults. Keys missing from the
// file keep their default values.
func Load(path string) (Config, error) {
	config := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(b, &config); err != nil {
		return Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return config, config.Verify()
}

// Verify reports the first invalid field.
func (c Config) Verify() error {
	errs := wrappers.Errs{}
	errs.Check(c.Decimals > 0 && c.Decimals <= 77, fmt.Errorf("%w: decimals %d", ErrInvalidConfig, c.Decimals))
	errs.Check(c.SecondsPerYear > 0, fmt.Errorf("%w: secondsPerYear must be positive", ErrInvalidConfig))
	errs.Check(c.EvaluationConcurrency >= 0, fmt.Errorf("%w: negative evaluationConcurrency", ErrInvalidConfig))
	errs.Check(c.RefreshCacheSize >= 0, fmt.Errorf("%w: negative refreshCacheSize", ErrInvalidConfig))
	errs.Check(c.Endpoint != "", fmt.Errorf("%w: empty endpoint", ErrInvalidConfig))
	if errs.Errored() {
		return errs.Err
	}
	if _, err := c.EngineConfig(); err != nil {
		return err
	}
	return nil
}

// Math returns the fixed-point arithmetic for the configured precision.
func (c Config) Math() (*fixed.Math, error) {
	m, err := fixed.New(c.Decimals)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return m, nil
}

// EngineConfig returns the accrual engine settings.
func (c Config) EngineConfig() (market.EngineConfig, error) {
	m, err := c.Math()
	if err != nil {
		return market.EngineConfig{}, err
	}
	rate, err := m.FromDecimal(c.InitialExchangeRate)
	if err != nil {
		return market.EngineConfig{}, fmt.Errorf("%w: initialExchangeRate: %w", ErrInvalidConfig, err)
	}
	if rate.Sign() == 0 {
		return market.EngineConfig{}, fmt.Errorf("%w: initialExchangeRate must be positive", ErrInvalidConfig)
	}
	return market.EngineConfig{
		SecondsPerYear:      c.SecondsPerYear,
		InitialExchangeRate: rate,
	}, nil
}

// Address returns the host:port the HTTP server listens on.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.HTTPHost, c.HTTPPort)
}
