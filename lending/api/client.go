// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package api

import (
	"context"

	"github.com/luxfi/lending/lending/portfolio"
	"github.com/luxfi/lending/lending/snapshot"
	"github.com/luxfi/lending/lending/validator"
	"github.com/luxfi/lending/utils/json"
	"github.com/luxfi/lending/utils/rpc"
)

// Client for requesting portfolio metrics and action verdicts from a lending
// API server.
type Client struct {
	requester rpc.EndpointRequester
}

// NewClient returns a Client for the service at uri, e.g.
// "http://127.0.0.1:9650/ext/lending".
func NewClient(uri string) *Client {
	return &Client{
		requester: rpc.NewEndpointRequester(uri),
	}
}

func (c *Client) Ping(ctx context.Context, options ...rpc.Option) (bool, error) {
	res := &PingReply{}
	err := c.requester.SendRequest(ctx, "lending.ping", &PingArgs{}, res, options...)
	return res.Success, err
}

func (c *Client) RefreshMarket(ctx context.Context, market snapshot.MarketRecord, timestamp uint64, options ...rpc.Option) (*RefreshMarketReply, error) {
	res := &RefreshMarketReply{}
	err := c.requester.SendRequest(ctx, "lending.refreshMarket", &RefreshMarketArgs{
		Market:    market,
		Timestamp: json.Uint64(timestamp),
	}, res, options...)
	return res, err
}

func (c *Client) GetUserMetrics(ctx context.Context, record snapshot.PortfolioRecord, timestamp uint64, options ...rpc.Option) (*portfolio.UserReport, error) {
	res := &portfolio.UserReport{}
	err := c.requester.SendRequest(ctx, "lending.getUserMetrics", &PortfolioArgs{
		Portfolio: record,
		Timestamp: json.Uint64(timestamp),
	}, res, options...)
	return res, err
}

func (c *Client) GetProtocolMetrics(ctx context.Context, record snapshot.PortfolioRecord, protocolID string, timestamp uint64, options ...rpc.Option) (*portfolio.ProtocolReport, error) {
	res := &portfolio.ProtocolReport{}
	err := c.requester.SendRequest(ctx, "lending.getProtocolMetrics", &GetProtocolMetricsArgs{
		PortfolioArgs: PortfolioArgs{
			Portfolio: record,
			Timestamp: json.Uint64(timestamp),
		},
		ProtocolID: protocolID,
	}, res, options...)
	return res, err
}

func (c *Client) EvaluatePortfolios(ctx context.Context, records []snapshot.PortfolioRecord, timestamp uint64, options ...rpc.Option) ([]portfolio.UserReport, error) {
	res := &EvaluatePortfoliosReply{}
	err := c.requester.SendRequest(ctx, "lending.evaluatePortfolios", &EvaluatePortfoliosArgs{
		Portfolios: records,
		Timestamp:  json.Uint64(timestamp),
	}, res, options...)
	return res.Users, err
}

// ValidateAction sends args as is. Leave args.Timestamp zero to validate at
// the server's current time.
func (c *Client) ValidateAction(ctx context.Context, args *ValidateActionArgs, options ...rpc.Option) (*validator.VerdictReport, error) {
	res := &validator.VerdictReport{}
	err := c.requester.SendRequest(ctx, "lending.validateAction", args, res, options...)
	return res, err
}
