package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newTestSolanaClient(t *testing.T, handler http.HandlerFunc) *SolanaClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSolanaClient(server.URL, nil, nil, fastRetry())
}

func TestSolanaClient_GetAccountInfo(t *testing.T) {
	blob := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getAccountInfo", req.Method)

		params := req.Params.([]any)
		require.Len(t, params, 2)
		assert.Equal(t, testMint, params[0])

		writeRPC(w, req.ID, map[string]any{
			"context": map[string]any{"slot": 1},
			"value": map[string]any{
				"data":     []string{blob, "base64"},
				"owner":    "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA",
				"lamports": 1461600,
			},
		})
	})

	info, err := client.GetAccountInfo(context.Background(), testMint)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA", info.Owner)

	data, err := info.DataBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)
}

func TestSolanaClient_GetAccountInfo_Missing(t *testing.T) {
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		writeRPC(w, req.ID, map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   nil,
		})
	})

	info, err := client.GetAccountInfo(context.Background(), testMint)
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestSolanaClient_GetMultipleAccounts(t *testing.T) {
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getMultipleAccounts", req.Method)

		writeRPC(w, req.ID, map[string]any{
			"context": map[string]any{"slot": 1},
			"value": []any{
				map[string]any{"owner": "a", "lamports": 1},
				nil,
			},
		})
	})

	infos, err := client.GetMultipleAccounts(context.Background(), []string{"k1", "k2"})
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Owner)
	assert.Nil(t, infos[1])
}

func TestSolanaClient_GetMultipleAccounts_Empty(t *testing.T) {
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no network call expected for empty input")
	})

	infos, err := client.GetMultipleAccounts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestSolanaClient_GetMultipleAccounts_LengthMismatch(t *testing.T) {
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		writeRPC(w, req.ID, map[string]any{
			"context": map[string]any{"slot": 1},
			"value":   []any{nil},
		})
	})

	_, err := client.GetMultipleAccounts(context.Background(), []string{"k1", "k2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 accounts")
}

func TestSolanaClient_GetProgramAccounts(t *testing.T) {
	size := uint64(752)
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "getProgramAccounts", req.Method)

		params := req.Params.([]any)
		cfg := params[1].(map[string]any)
		require.Contains(t, cfg, "filters")

		writeRPC(w, req.ID, []any{
			map[string]any{
				"pubkey":  "pool1",
				"account": map[string]any{"owner": "program", "lamports": 5},
			},
		})
	})

	rows, err := client.GetProgramAccounts(context.Background(), "program", []Filter{
		{DataSize: &size},
		{Memcmp: &Memcmp{Offset: 464, Bytes: testMint}},
	}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "pool1", rows[0].Pubkey)
}

func TestSolanaClient_GetProgramAccounts_ContextEnvelope(t *testing.T) {
	client := newTestSolanaClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		json.NewDecoder(r.Body).Decode(&req)
		writeRPC(w, req.ID, map[string]any{
			"context": map[string]any{"slot": 1},
			"value": []any{
				map[string]any{
					"pubkey":  "pool1",
					"account": map[string]any{"owner": "program"},
				},
			},
		})
	})

	rows, err := client.GetProgramAccounts(context.Background(), "program", nil, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
