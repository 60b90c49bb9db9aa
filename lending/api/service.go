// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package api exposes the lending risk engine over JSON-RPC.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/rpc/v2"
	"github.com/luxfi/log"
	"go.uber.org/zap"

	"github.com/luxfi/lending/lending/config"
	"github.com/luxfi/lending/lending/market"
	"github.com/luxfi/lending/lending/metrics"
	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/lending/snapshot"
	"github.com/luxfi/lending/lending/validator"
	"github.com/luxfi/lending/utils/json"
	"github.com/luxfi/lending/utils/math/fixed"
	"github.com/luxfi/lending/utils/timer/mockable"
)

const ServiceName = "lending"

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrUnknownProtocol = errors.New("unknown protocol")
)

// Service provides the RPC API for the lending risk engine. Every call is
// evaluated against the snapshot supplied in its arguments. Only refreshed
// markets are remembered between calls.
type Service struct {
	log     log.Logger
	metrics metrics.Metrics
	clock   *mockable.Clock

	math        *fixed.Math
	refresher   market.Refresher
	valuer      *portfolio.Valuer
	validator   *validator.Validator
	concurrency int
}

// NewService creates a new API service.
func NewService(c config.Config, logger log.Logger, m metrics.Metrics, clock *mockable.Clock) (*Service, error) {
	if err := c.Verify(); err != nil {
		return nil, err
	}
	math, err := c.Math()
	if err != nil {
		return nil, err
	}
	engineConfig, err := c.EngineConfig()
	if err != nil {
		return nil, err
	}
	engine := market.NewEngine(math, engineConfig)
	var refresher market.Refresher = engine
	if c.RefreshCacheSize > 0 {
		refresher = market.NewRefreshCache(engine, c.RefreshCacheSize)
	}
	valuer := portfolio.NewValuerWithRefresher(engine, refresher)
	return &Service{
		log:         logger,
		metrics:     m,
		clock:       clock,
		math:        math,
		refresher:   refresher,
		valuer:      valuer,
		validator:   validator.New(math, valuer, c.Validator),
		concurrency: c.EvaluationConcurrency,
	}, nil
}

// NewServer registers s on a JSON-RPC server under ServiceName.
func NewServer(s *Service) (*rpc.Server, error) {
	codec := json.NewCodec()

	server := rpc.NewServer()
	server.RegisterCodec(codec, "application/json")
	server.RegisterCodec(codec, "application/json;charset=UTF-8")
	server.RegisterInterceptFunc(s.metrics.InterceptRequest)
	server.RegisterAfterFunc(s.metrics.AfterRequest)
	return server, server.RegisterService(s, ServiceName)
}

// now returns the requested evaluation time, or the service clock's.
func (s *Service) now(requested json.Uint64) uint64 {
	if requested != 0 {
		return uint64(requested)
	}
	return s.clock.Unix()
}

// invalid records and wraps a malformed-input error.
func (s *Service) invalid(method string, err error) error {
	s.metrics.MarkInvalidInput()
	s.log.Debug("rejected malformed request",
		zap.String("method", method),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
}

// PingArgs are the arguments for the Ping API.
type PingArgs struct{}

// PingReply is the reply for the Ping API.
type PingReply struct {
	Success bool `json:"success"`
}

// Ping returns a simple health check response.
func (*Service) Ping(_ *http.Request, _ *PingArgs, reply *PingReply) error {
	reply.Success = true
	return nil
}

// RatesReply holds a market's derived rates as decimal strings.
type RatesReply struct {
	ExchangeRate        string `json:"exchangeRate"`
	Utilization         string `json:"utilization"`
	BorrowRatePerSecond string `json:"borrowRatePerSecond"`
	SupplyRatePerSecond string `json:"supplyRatePerSecond"`
	BorrowRateAPY       string `json:"borrowRateAPY"`
	SupplyRateAPY       string `json:"supplyRateAPY"`
}

type RefreshMarketArgs struct {
	Market snapshot.MarketRecord `json:"market"`
	// Timestamp is the unix time to accrue to. Zero means now.
	Timestamp json.Uint64 `json:"timestamp"`
}

type RefreshMarketReply struct {
	Market snapshot.MarketRecord `json:"market"`
	Rates  RatesReply            `json:"rates"`
}

// RefreshMarket accrues interest on a market and returns its derived rates.
func (s *Service) RefreshMarket(_ *http.Request, args *RefreshMarketArgs, reply *RefreshMarketReply) error {
	m, err := args.Market.Market()
	if err != nil {
		return s.invalid("refreshMarket", err)
	}

	refreshed, err := s.refresher.Refresh(m, s.now(args.Timestamp))
	if err != nil {
		return s.invalid("refreshMarket", err)
	}
	s.metrics.MarkRefresh()

	reply.Market = snapshot.NewMarketRecord(refreshed)
	reply.Rates = RatesReply{
		ExchangeRate:        s.math.ToDecimal(refreshed.Rates.ExchangeRate),
		Utilization:         s.math.ToDecimal(refreshed.Rates.Utilization),
		BorrowRatePerSecond: s.math.ToDecimal(refreshed.Rates.BorrowRatePerSecond),
		SupplyRatePerSecond: s.math.ToDecimal(refreshed.Rates.SupplyRatePerSecond),
		BorrowRateAPY:       s.math.ToDecimal(refreshed.Rates.BorrowRateAPY),
		SupplyRateAPY:       s.math.ToDecimal(refreshed.Rates.SupplyRateAPY),
	}
	return nil
}

type PortfolioArgs struct {
	Portfolio snapshot.PortfolioRecord `json:"portfolio"`
	Timestamp json.Uint64              `json:"timestamp"`
}

// load decodes and refreshes a portfolio to the requested time.
func (s *Service) load(record snapshot.PortfolioRecord, requested json.Uint64) (portfolio.Snapshot, error) {
	snap, err := record.Snapshot()
	if err != nil {
		return portfolio.Snapshot{}, err
	}
	return s.valuer.Refresh(snap, s.now(requested))
}

// GetUserMetrics values a user's positions per protocol and across
// protocols.
func (s *Service) GetUserMetrics(_ *http.Request, args *PortfolioArgs, reply *portfolio.UserReport) error {
	start := time.Now()
	snap, err := s.load(args.Portfolio, args.Timestamp)
	if err != nil {
		return s.invalid("getUserMetrics", err)
	}
	user, err := s.valuer.User(snap)
	if err != nil {
		return s.invalid("getUserMetrics", err)
	}
	s.metrics.MarkEvaluation(time.Since(start))

	*reply = user.Report(s.math)
	return nil
}

type GetProtocolMetricsArgs struct {
	PortfolioArgs
	ProtocolID string `json:"protocolId"`
}

// GetProtocolMetrics values only the user's positions in one protocol.
func (s *Service) GetProtocolMetrics(_ *http.Request, args *GetProtocolMetricsArgs, reply *portfolio.ProtocolReport) error {
	start := time.Now()
	snap, err := s.load(args.Portfolio, args.Timestamp)
	if err != nil {
		return s.invalid("getProtocolMetrics", err)
	}

	var group *portfolio.Snapshot
	for _, g := range snap.ByProtocol() {
		if g.Entries[0].Market.ProtocolID == args.ProtocolID {
			group = &g
			break
		}
	}
	if group == nil {
		return s.invalid("getProtocolMetrics", fmt.Errorf("%w: %q", ErrUnknownProtocol, args.ProtocolID))
	}

	protocol, err := s.valuer.Protocol(*group)
	if err != nil {
		return s.invalid("getProtocolMetrics", err)
	}
	s.metrics.MarkEvaluation(time.Since(start))

	*reply = protocol.Report(s.math)
	return nil
}

type EvaluatePortfoliosArgs struct {
	Portfolios []snapshot.PortfolioRecord `json:"portfolios"`
	Timestamp  json.Uint64                `json:"timestamp"`
}

type EvaluatePortfoliosReply struct {
	Users []portfolio.UserReport `json:"users"`
}

// EvaluatePortfolios values many users at once, e.g. after a price update.
func (s *Service) EvaluatePortfolios(r *http.Request, args *EvaluatePortfoliosArgs, reply *EvaluatePortfoliosReply) error {
	start := time.Now()
	snapshots := make([]portfolio.Snapshot, len(args.Portfolios))
	for i, record := range args.Portfolios {
		snap, err := s.load(record, args.Timestamp)
		if err != nil {
			return s.invalid("evaluatePortfolios", fmt.Errorf("portfolio %d: %w", i, err))
		}
		snapshots[i] = snap
	}

	ctx := context.Background()
	if r != nil {
		ctx = r.Context()
	}
	results, err := s.valuer.EvaluateAll(ctx, snapshots, s.concurrency)
	if err != nil {
		return s.invalid("evaluatePortfolios", err)
	}
	s.metrics.MarkEvaluation(time.Since(start))

	reply.Users = make([]portfolio.UserReport, len(results))
	for i, user := range results {
		reply.Users[i] = user.Report(s.math)
	}
	return nil
}

type ValidateActionArgs struct {
	PortfolioArgs
	Action   validator.Kind `json:"action"`
	MarketID string         `json:"marketId"`
	// Amount is required for deposit, withdraw, borrow and repay.
	Amount json.BigInt `json:"amount"`
	// Market describes the target when the user has no entry for it yet.
	Market *snapshot.MarketRecord `json:"market,omitempty"`
}

// ValidateAction simulates an action and reports whether it would leave the
// portfolio solvent.
func (s *Service) ValidateAction(_ *http.Request, args *ValidateActionArgs, reply *validator.VerdictReport) error {
	snap, err := s.load(args.Portfolio, args.Timestamp)
	if err != nil {
		return s.invalid("validateAction", err)
	}

	action := validator.Action{
		Kind:     args.Action,
		MarketID: args.MarketID,
		Amount:   args.Amount.Int(),
	}
	if args.Market != nil {
		m, err := args.Market.Market()
		if err != nil {
			return s.invalid("validateAction", err)
		}
		action.Market, err = s.refresher.Refresh(m, s.now(args.Timestamp))
		if err != nil {
			return s.invalid("validateAction", err)
		}
	}

	verdict, err := s.validator.Validate(snap, action)
	if err != nil {
		return s.invalid("validateAction", err)
	}
	*reply = verdict.Report(s.math)

	s.metrics.MarkVerdict(args.Action.String(), reply.Reason)
	s.log.Debug("validated action",
		zap.Stringer("user", snap.User),
		zap.Stringer("action", args.Action),
		zap.String("market", args.MarketID),
		zap.Bool("accepted", verdict.Accepted),
	)
	return nil
}
