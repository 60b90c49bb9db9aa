// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luxfi/lending/cmd/lendingd/evaluate"
	"github.com/luxfi/lending/cmd/lendingd/serve"
	"github.com/luxfi/lending/cmd/lendingd/validate"
)

func main() {
	cmd := &cobra.Command{
		Use:   "lendingd",
		Short: "Values lending portfolios and validates user actions",
	}
	cmd.AddCommand(
		serve.Command(),
		evaluate.Command(),
		validate.Command(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "command failed %v\n", err)
		os.Exit(1)
	}
}
