package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/pinax-network/token-api-scraper/internal/abi"
	"github.com/pinax-network/token-api-scraper/internal/address"
	"github.com/pinax-network/token-api-scraper/internal/ratelimiter"
	"github.com/pinax-network/token-api-scraper/pkg/common/types"
	"github.com/pinax-network/token-api-scraper/pkg/retry"
)

// EVMClient speaks the eth_* JSON-RPC surface of EVM-compatible nodes,
// Tron's JSON-RPC gateway included (contract addresses may arrive in
// base58check form and are normalized before dispatch).
type EVMClient struct {
	*Client
}

func NewEVMClient(url string, auth *AuthConfig, limiter *ratelimiter.Pool, opts retry.Options) *EVMClient {
	return &EVMClient{Client: NewClient(url, auth, limiter, opts)}
}

// ContractCallRequest describes one eth_call. Args must match the
// parenthesized type list of Signature; the mismatch is caught before any
// network I/O.
type ContractCallRequest struct {
	Contract  string
	Signature string
	Args      []any
}

// ContractCallResult pairs a batched eth_call with its outcome. Value is the
// raw hex return; "" means the call legitimately returned no data.
type ContractCallResult struct {
	Value string
	Err   error
}

func (r ContractCallResult) Ok() bool { return r.Err == nil }

// CallContract encodes and dispatches one eth_call. A node answering "0x"
// yields an empty string and no error.
func (e *EVMClient) CallContract(ctx context.Context, req ContractCallRequest) (string, error) {
	params, err := contractCallParams(req)
	if err != nil {
		return "", err
	}

	raw, err := e.Call(ctx, "eth_call", params)
	if err != nil {
		return "", fmt.Errorf("eth_call %s failed: %w", req.Signature, err)
	}
	return decodeHexResult(raw)
}

// BatchCallContract dispatches all calls as one JSON-RPC batch. Requests
// are validated and encoded up front (fail fast, no I/O); results come back
// in input order with per-item errors as data.
func (e *EVMClient) BatchCallContract(ctx context.Context, reqs []ContractCallRequest) ([]ContractCallResult, error) {
	batch := make([]BatchRequest, len(reqs))
	for i, req := range reqs {
		params, err := contractCallParams(req)
		if err != nil {
			return nil, err
		}
		batch[i] = BatchRequest{Method: "eth_call", Params: params}
	}

	items, err := e.CallBatch(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch eth_call failed: %w", err)
	}

	results := make([]ContractCallResult, len(items))
	for i, item := range items {
		if item.Err != nil {
			results[i] = ContractCallResult{Err: item.Err}
			continue
		}
		v, err := decodeHexResult(item.Result)
		results[i] = ContractCallResult{Value: v, Err: err}
	}
	return results, nil
}

// GetBalance returns the native balance in wei.
func (e *EVMClient) GetBalance(ctx context.Context, addr string) (*big.Int, error) {
	normalized, err := address.Normalize(addr)
	if err != nil {
		return nil, err
	}

	raw, err := e.Call(ctx, "eth_getBalance", []any{normalized, "latest"})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance failed: %w", err)
	}
	hexStr, err := decodeHexResult(raw)
	if err != nil {
		return nil, err
	}
	return abi.DecodeUint256(hexStr)
}

// BlockNumber returns the node's current head block.
func (e *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	raw, err := e.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	hexStr, err := decodeHexResult(raw)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(hexStr, "0x"), 16, 64)
	if err != nil {
		return 0, &types.DecodeError{Msg: "invalid block number " + hexStr, Err: err}
	}
	return n, nil
}

// GetCode returns the deployed bytecode at addr; "" means no contract there.
func (e *EVMClient) GetCode(ctx context.Context, addr string) (string, error) {
	normalized, err := address.Normalize(addr)
	if err != nil {
		return "", err
	}

	raw, err := e.Call(ctx, "eth_getCode", []any{normalized, "latest"})
	if err != nil {
		return "", fmt.Errorf("eth_getCode failed: %w", err)
	}
	return decodeHexResult(raw)
}

func contractCallParams(req ContractCallRequest) ([]any, error) {
	data, err := abi.EncodeCall(req.Signature, req.Args)
	if err != nil {
		return nil, err
	}
	to, err := address.Normalize(req.Contract)
	if err != nil {
		return nil, err
	}
	return []any{
		map[string]any{"to": to, "data": hexutil.Encode(data)},
		"latest",
	}, nil
}

// decodeHexResult unwraps the JSON string result of an eth_* call. "0x" and
// null are legitimate "no data" outcomes, not errors.
func decodeHexResult(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &types.DecodeError{Msg: "result is not a hex string", Err: err}
	}
	if s == "0x" {
		return "", nil
	}
	return s, nil
}
