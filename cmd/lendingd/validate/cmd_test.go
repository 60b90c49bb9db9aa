// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/lending/validator"
)

const portfolioPath = "../testdata/portfolio.json"

func run(t *testing.T, args ...string) validator.VerdictReport {
	t.Helper()
	require := require.New(t)

	config, err := ParseFlags(Command().Flags(), args)
	require.NoError(err)

	out := &bytes.Buffer{}
	require.NoError(Run(config, out))

	report := validator.VerdictReport{}
	require.NoError(json.Unmarshal(out.Bytes(), &report))
	return report
}

func TestValidateBorrow(t *testing.T) {
	tests := []struct {
		name   string
		amount string
		want   validator.VerdictReport
	}{
		{
			name:   "healthy",
			amount: "1000",
			want:   validator.VerdictReport{Accepted: true, HealthIndex: "2.5"},
		},
		{
			name:   "insolvent",
			amount: "2500",
			want:   validator.VerdictReport{Reason: "insufficient collateral", HealthIndex: "1"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			report := run(t,
				"--action", "borrow",
				"--market", "usdc",
				"--amount", test.amount,
				"--timestamp", "1700000000",
				portfolioPath,
			)
			require.Equal(t, test.want, report)
		})
	}
}

func TestValidateNewMarket(t *testing.T) {
	report := run(t,
		"--action", "deposit",
		"--market", "dai",
		"--amount", "10",
		"--market-file", "../testdata/market.json",
		"--timestamp", "1700000000",
		portfolioPath,
	)
	require.Equal(t, validator.VerdictReport{Accepted: true, HealthIndex: portfolio.UnboundedHealth}, report)
}

func TestValidateUnknownMarket(t *testing.T) {
	require := require.New(t)

	config, err := ParseFlags(Command().Flags(), []string{
		"--action", "deposit",
		"--market", "dai",
		"--amount", "10",
		portfolioPath,
	})
	require.NoError(err)
	require.ErrorIs(Run(config, &bytes.Buffer{}), validator.ErrUnknownMarket)
}

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "unknown action",
			args:    []string{"--action", "liquidate", "--market", "usdc", portfolioPath},
			wantErr: validator.ErrUnknownKind,
		},
		{
			name:    "missing portfolio",
			args:    []string{"--action", "borrow", "--market", "usdc", "--amount", "1"},
			wantErr: errMissingPortfolio,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := ParseFlags(Command().Flags(), test.args)
			require.ErrorIs(t, err, test.wantErr)
		})
	}
}

func TestParseFlagsAmountScale(t *testing.T) {
	require := require.New(t)

	config, err := ParseFlags(Command().Flags(), []string{
		"--action", "repay",
		"--market", "usdc",
		"--amount", "1.5",
		portfolioPath,
	})
	require.NoError(err)
	require.Equal(validator.Repay, config.Action)
	require.Equal("1500000000000000000", config.Amount.String())
}
