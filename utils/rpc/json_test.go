// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type mockReadCloser struct {
	reader  io.Reader
	closed  bool
	readAll bool
}

func (m *mockReadCloser) Read(p []byte) (int, error) {
	n, err := m.reader.Read(p)
	if err == io.EOF {
		m.readAll = true
	}
	return n, err
}

func (m *mockReadCloser) Close() error {
	m.closed = true
	return nil
}

func TestCleanlyCloseBody(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		readPart bool
	}{
		{name: "empty", body: nil},
		{name: "small", body: []byte("response that should be drained")},
		{name: "large", body: bytes.Repeat([]byte("x"), 1024*1024)},
		{name: "partially read", body: []byte("partially read body"), readPart: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require := require.New(t)

			mock := &mockReadCloser{reader: bytes.NewReader(test.body)}
			if test.readPart {
				_, err := mock.Read(make([]byte, 4))
				require.NoError(err)
				require.False(mock.readAll)
			}

			require.NoError(CleanlyCloseBody(mock))
			require.True(mock.closed)
			require.True(mock.readAll)
		})
	}

	require.NoError(t, CleanlyCloseBody(nil))
}

func TestSendRequest(t *testing.T) {
	require := require.New(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     json.RawMessage `json:"id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.Header.Get("X-Test") != "yes" || req.Method != "lending.echo" {
			http.Error(w, "unexpected request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","result":` + string(req.Params) + `,"id":` + string(req.ID) + `}`))
	}))
	defer server.Close()

	requester := NewEndpointRequester(server.URL)
	reply := map[string]string{}
	require.NoError(requester.SendRequest(
		context.Background(),
		"lending.echo",
		map[string]string{"hello": "world"},
		&reply,
		WithHeader("X-Test", "yes"),
	))
	require.Equal(map[string]string{"hello": "world"}, reply)

	err := requester.SendRequest(context.Background(), "lending.other", struct{}{}, &reply)
	require.ErrorContains(err, "received status code: 400")
}

func TestSendRequestRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32000,"message":"invalid request"},"id":1}`))
	}))
	defer server.Close()

	err := NewEndpointRequester(server.URL).SendRequest(context.Background(), "lending.ping", struct{}{}, &struct{}{})
	require.ErrorContains(t, err, "invalid request")
}

func TestSendRequestBadURI(t *testing.T) {
	err := NewEndpointRequester("http://[::1").SendRequest(context.Background(), "lending.ping", struct{}{}, &struct{}{})
	require.Error(t, err)
	require.False(t, strings.Contains(err.Error(), "status code"))
}
