package subgraph

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, body string, queries *[]string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req gqlRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		if queries != nil {
			*queries = append(*queries, req.Query)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL})
	require.NoError(t, err)
	return client
}

func TestTransactions_ParsesSwaps(t *testing.T) {
	var queries []string
	client := newTestServer(t, http.StatusOK, `{"data":{"transactions":[{
		"id":"0xabc","blockNumber":"9137","timestamp":"1617000000",
		"swaps":[{"amount0In":"1.5","amount1In":"0","amount0Out":"0","amount1Out":"300",
			"pair":{"token0":{"symbol":"WETH"},"token1":{"symbol":"DXD"}}}]}]}}`, &queries)

	transactions, err := client.Transactions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	tx := transactions[0]
	require.Equal(t, "0xabc", tx.ID)
	require.Equal(t, uint64(9137), tx.BlockNumber)
	require.Equal(t, uint64(1617000000), tx.Timestamp)
	require.Len(t, tx.Swaps, 1)
	require.Equal(t, "WETH", tx.Swaps[0].Token0Symbol)
	require.Equal(t, "300", tx.Swaps[0].Amount1Out)

	require.Len(t, queries, 1)
	require.Contains(t, queries[0], `transactions(where:{id:"0xabc"})`)
}

func TestTransactions_EmptyIsNotAnError(t *testing.T) {
	client := newTestServer(t, http.StatusOK, `{"data":{"transactions":[]}}`, nil)

	transactions, err := client.Transactions(context.Background(), "0xabc")
	require.NoError(t, err)
	require.Empty(t, transactions)
}

func TestTransactions_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{name: "status", status: http.StatusBadGateway, body: "bad gateway", want: "status 502"},
		{name: "graphql errors", status: http.StatusOK, body: `{"errors":[{"message":"indexing_error"}]}`, want: "indexing_error"},
		{name: "null data", status: http.StatusOK, body: `{"data":null}`, want: "empty"},
		{name: "bad block number", status: http.StatusOK, body: `{"data":{"transactions":[{"id":"0x1","blockNumber":"x"}]}}`, want: "blockNumber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, tt.status, tt.body, nil)
			_, err := client.Transactions(context.Background(), "0x1")
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestTokens_UsesListSize(t *testing.T) {
	var queries []string
	client := newTestServer(t, http.StatusOK, `{"data":{"tokens":[
		{"id":"0xABC","symbol":"DXD","name":"DXdao"},
		{"id":"0xdef","symbol":"WETH","name":"Wrapped Ether"}]}}`, &queries)

	tokens, err := client.Tokens(context.Background(), 500)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, "0xabc", tokens[0].ID)
	require.Equal(t, "WETH", tokens[1].Symbol)
	require.True(t, strings.Contains(queries[0], "tokens(first:500)"))
}

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{URL: "  "})
	require.Error(t, err)
}
