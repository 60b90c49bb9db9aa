// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package validate

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/lending/cmd/lendingd/common"
	"github.com/luxfi/lending/lending/api"
	"github.com/luxfi/lending/lending/snapshot"
	"github.com/luxfi/lending/lending/validator"

	lendjson "github.com/luxfi/lending/utils/json"
)

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "validate [portfolio.json]",
		Short: "Simulates an action against a portfolio snapshot",
		RunE:  validateFunc,
	}
	AddFlags(c.Flags())
	return c
}

func validateFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return Run(config, c.OutOrStdout())
}

// Run validates the configured action and prints the verdict to w.
func Run(config *Config, w io.Writer) error {
	service, _, err := common.NewService(config.Lending, log.NewNoOpLogger())
	if err != nil {
		return err
	}

	record, err := common.ReadPortfolio(config.Portfolio)
	if err != nil {
		return err
	}

	args := api.ValidateActionArgs{
		PortfolioArgs: api.PortfolioArgs{
			Portfolio: record,
			Timestamp: lendjson.Uint64(config.Timestamp),
		},
		Action:   config.Action,
		MarketID: config.MarketID,
		Amount:   lendjson.NewBigInt(config.Amount),
	}
	if config.MarketFile != "" {
		market, err := readMarket(config.MarketFile)
		if err != nil {
			return err
		}
		args.Market = &market
	}

	reply := validator.VerdictReport{}
	if err := service.ValidateAction(nil, &args, &reply); err != nil {
		return err
	}
	return common.Print(w, reply)
}

func readMarket(path string) (snapshot.MarketRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return snapshot.MarketRecord{}, err
	}
	record := snapshot.MarketRecord{}
	if err := json.Unmarshal(b, &record); err != nil {
		return snapshot.MarketRecord{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return record, nil
}
