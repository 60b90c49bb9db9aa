// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"context"
	"net/http"
	"net/url"
)

var _ EndpointRequester = (*endpointRequester)(nil)

// EndpointRequester sends requests to a single JSON-RPC endpoint.
type EndpointRequester interface {
	SendRequest(ctx context.Context, method string, params any, reply any, options ...Option) error
}

type endpointRequester struct {
	uri    string
	client *http.Client
}

func NewEndpointRequester(uri string) EndpointRequester {
	return &endpointRequester{
		uri:    uri,
		client: http.DefaultClient,
	}
}

func (e *endpointRequester) SendRequest(
	ctx context.Context,
	method string,
	params any,
	reply any,
	options ...Option,
) error {
	uri, err := url.Parse(e.uri)
	if err != nil {
		return err
	}
	return SendJSONRequest(ctx, e.client, uri, method, params, reply, options...)
}
