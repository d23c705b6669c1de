package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pinax-network/token-api-scraper/pkg/common/types"
)

const testContract = "0xdac17f958d2ee523a2206206994597c13d831ec7"

func newTestEVMClient(t *testing.T, handler http.HandlerFunc) *EVMClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewEVMClient(server.URL, nil, nil, fastRetry())
}

func TestEVMClient_CallContract(t *testing.T) {
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "eth_call", req.Method)

		params, ok := req.Params.([]any)
		require.True(t, ok)
		require.Len(t, params, 2)
		call := params[0].(map[string]any)
		assert.Equal(t, testContract, call["to"])
		// decimals() selector
		assert.Equal(t, "0x313ce567", call["data"])
		assert.Equal(t, "latest", params[1])

		writeRPC(w, req.ID, "0x0000000000000000000000000000000000000000000000000000000000000006")
	})

	value, err := client.CallContract(context.Background(), ContractCallRequest{
		Contract:  testContract,
		Signature: "decimals()",
	})
	require.NoError(t, err)
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000006", value)
}

func TestEVMClient_CallContract_EmptyResult(t *testing.T) {
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		writeRPC(w, req.ID, "0x")
	})

	value, err := client.CallContract(context.Background(), ContractCallRequest{
		Contract:  testContract,
		Signature: "symbol()",
	})
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestEVMClient_CallContract_ArgMismatchFailsFast(t *testing.T) {
	var calls atomic.Int64
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.CallContract(context.Background(), ContractCallRequest{
		Contract:  testContract,
		Signature: "balanceOf(address)",
		Args:      nil,
	})
	require.Error(t, err)

	var vErr *types.ValidationError
	assert.ErrorAs(t, err, &vErr)
	assert.Equal(t, int64(0), calls.Load(), "no network call for invalid input")
}

func TestEVMClient_BatchCallContract(t *testing.T) {
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reqs []Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reqs))
		require.Len(t, reqs, 3)

		out := []map[string]any{
			{"jsonrpc": "2.0", "id": reqs[0].ID, "result": "0x01"},
			{"jsonrpc": "2.0", "id": reqs[1].ID, "result": "0x"},
			{"jsonrpc": "2.0", "id": reqs[2].ID, "error": map[string]any{
				"code": 3, "message": "execution reverted",
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	results, err := client.BatchCallContract(context.Background(), []ContractCallRequest{
		{Contract: testContract, Signature: "decimals()"},
		{Contract: testContract, Signature: "symbol()"},
		{Contract: testContract, Signature: "name()"},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "0x01", results[0].Value)
	assert.True(t, results[1].Ok())
	assert.Empty(t, results[1].Value, `"0x" is empty data, not an error`)
	assert.False(t, results[2].Ok())
}

func TestEVMClient_BatchCallContract_InvalidRequestFailsWholeBatch(t *testing.T) {
	var calls atomic.Int64
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.BatchCallContract(context.Background(), []ContractCallRequest{
		{Contract: testContract, Signature: "decimals()"},
		{Contract: "not-an-address", Signature: "decimals()"},
	})
	require.Error(t, err)
	assert.Equal(t, int64(0), calls.Load())
}

func TestEVMClient_GetBalance(t *testing.T) {
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		assert.Equal(t, "eth_getBalance", req.Method)
		writeRPC(w, req.ID, "0xde0b6b3a7640000") // 1 ether
	})

	balance, err := client.GetBalance(context.Background(), testContract)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", balance.String())
}

func TestEVMClient_BlockNumber(t *testing.T) {
	client := newTestEVMClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		writeRPC(w, req.ID, "0x151a0fd")
	})

	n, err := client.BlockNumber(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0x151a0fd), n)
}
