// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serve

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/luxfi/log"
	"github.com/luxfi/metric"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/luxfi/lending/cmd/lendingd/common"
	"github.com/luxfi/lending/lending/api"
	"github.com/luxfi/lending/lending/config"
)

const metricsPath = "/metrics"

func Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "serve",
		Short: "Serves the lending JSON-RPC API",
		RunE:  serveFunc,
	}
	AddFlags(c.Flags())
	return c
}

func serveFunc(c *cobra.Command, args []string) error {
	cfg, err := ParseFlags(c.Flags(), args)
	if err != nil {
		return err
	}
	return Run(c.Context(), cfg, log.NewLogger("lendingd"))
}

// Run serves the API until ctx is cancelled, then shuts the server down.
func Run(ctx context.Context, c config.Config, logger log.Logger) error {
	handler, err := NewHandler(c, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              c.Address(),
		Handler:           handler,
		ReadHeaderTimeout: c.ReadHeaderTimeout,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		logger.Info("serving lending API",
			zap.String("address", server.Addr),
			zap.String("endpoint", c.Endpoint),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()

		logger.Info("shutting down lending API")
		return server.Shutdown(shutdownCtx)
	})
	return eg.Wait()
}

// NewHandler routes the JSON-RPC API to the configured endpoint and the
// gathered metrics to the endpoint's metrics path.
func NewHandler(c config.Config, logger log.Logger) (http.Handler, error) {
	service, registry, err := common.NewService(c, logger)
	if err != nil {
		return nil, err
	}
	server, err := api.NewServer(service)
	if err != nil {
		return nil, err
	}

	router := mux.NewRouter()
	router.Handle(c.Endpoint, server).Methods(http.MethodPost)
	router.Handle(c.Endpoint+metricsPath, metricsHandler(registry, logger)).Methods(http.MethodGet)
	return router, nil
}

func metricsHandler(gatherer metric.Gatherer, logger log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		families, err := gatherer.Gather()
		if err != nil {
			logger.Warn("failed to gather metrics", zap.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(families); err != nil {
			logger.Debug("failed to write metrics", zap.Error(err))
		}
	})
}
