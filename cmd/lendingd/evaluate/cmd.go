// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package evaluate

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/lending/cmd/lendingd/common"
	"github.com/luxfi/lending/lending/api"
	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/lending/snapshot"
	"github.com/luxfi/lending/utils/json"
)

var errProtocolNeedsOnePortfolio = errors.New("--protocol requires exactly one portfolio")

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "evaluate [portfolio.json...]",
		Short: "Prints the metrics of one or more portfolio snapshots",
		RunE:  evaluateFunc,
	}
	AddFlags(c.Flags())
	return c
}

func evaluateFunc(c *cobra.Command, args []string) error {
	config, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return Run(c.Context(), config, c.OutOrStdout())
}

// Run evaluates the configured portfolios and prints the reports to w.
func Run(ctx context.Context, config *Config, w io.Writer) error {
	service, _, err := common.NewService(config.Lending, log.NewNoOpLogger())
	if err != nil {
		return err
	}

	records := make([]snapshot.PortfolioRecord, len(config.Portfolios))
	for i, path := range config.Portfolios {
		records[i], err = common.ReadPortfolio(path)
		if err != nil {
			return err
		}
	}

	r, err := http.NewRequestWithContext(ctx, http.MethodPost, "/", http.NoBody)
	if err != nil {
		return err
	}

	timestamp := json.Uint64(config.Timestamp)
	switch {
	case config.ProtocolID != "":
		if len(records) != 1 {
			return errProtocolNeedsOnePortfolio
		}
		reply := portfolio.ProtocolReport{}
		err := service.GetProtocolMetrics(r, &api.GetProtocolMetricsArgs{
			PortfolioArgs: api.PortfolioArgs{
				Portfolio: records[0],
				Timestamp: timestamp,
			},
			ProtocolID: config.ProtocolID,
		}, &reply)
		if err != nil {
			return err
		}
		return common.Print(w, reply)
	case len(records) == 1:
		reply := portfolio.UserReport{}
		err := service.GetUserMetrics(r, &api.PortfolioArgs{
			Portfolio: records[0],
			Timestamp: timestamp,
		}, &reply)
		if err != nil {
			return err
		}
		return common.Print(w, reply)
	default:
		reply := api.EvaluatePortfoliosReply{}
		err := service.EvaluatePortfolios(r, &api.EvaluatePortfoliosArgs{
			Portfolios: records,
			Timestamp:  timestamp,
		}, &reply)
		if err != nil {
			return err
		}
		return common.Print(w, reply)
	}
}
