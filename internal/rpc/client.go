package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pinax-network/token-api-scraper/internal/ratelimiter"
	"github.com/pinax-network/token-api-scraper/pkg/common/logger"
	"github.com/pinax-network/token-api-scraper/pkg/common/types"
	"github.com/pinax-network/token-api-scraper/pkg/retry"
)

// AuthConfig holds authentication configuration for a node endpoint.
type AuthConfig struct {
	Type     string            `json:"type"` // "bearer", "api_key", "basic", "custom"
	Token    string            `json:"token"`
	Username string            `json:"username"`
	Password string            `json:"password"`
	Headers  map[string]string `json:"headers"`
}

// Request is a JSON-RPC 2.0 envelope.
type Request struct {
	ID      any    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response envelope.
type Response struct {
	ID      any                 `json:"id"`
	JSONRPC string              `json:"jsonrpc"`
	Result  json.RawMessage     `json:"result,omitempty"`
	Error   *types.JSONRPCError `json:"error,omitempty"`
}

// BatchRequest is one entry of a batch call.
type BatchRequest struct {
	Method string
	Params []any
}

// BatchResult is the per-item outcome of a batch call. A node-side error for
// one item is data, not a failure of the batch: Err is set and Result empty.
type BatchResult struct {
	Result json.RawMessage
	Err    error
}

func (r BatchResult) Ok() bool { return r.Err == nil }

// Client issues JSON-RPC calls against one node endpoint. It holds no
// per-call mutable state beyond the id counter and is safe for concurrent
// use; callers bound concurrency externally.
type Client struct {
	httpClient *http.Client
	url        string
	auth       *AuthConfig
	limiter    *ratelimiter.Pool
	opts       retry.Options
	rpcID      atomic.Int64
}

// NewClient creates a client for the given endpoint. Per-attempt timeouts
// come from opts, not from http.Client, so each retry attempt gets a fresh
// deadline.
func NewClient(url string, auth *AuthConfig, limiter *ratelimiter.Pool, opts retry.Options) *Client {
	c := &Client{
		httpClient: &http.Client{},
		url:        strings.TrimSuffix(url, "/"),
		auth:       auth,
		limiter:    limiter,
		opts:       opts,
	}
	c.rpcID.Store(1)
	return c
}

// URL returns the node endpoint this client talks to.
func (c *Client) URL() string { return c.url }

// Options returns the client's default retry options.
func (c *Client) Options() retry.Options { return c.opts }

// Call issues a single JSON-RPC call with the client's default retry options.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return c.CallWith(ctx, c.opts, method, params)
}

// CallWith issues a single JSON-RPC call with explicit retry options.
func (c *Client) CallWith(ctx context.Context, opts retry.Options, method string, params any) (json.RawMessage, error) {
	return retry.Do(ctx, opts, func(ctx context.Context) (json.RawMessage, error) {
		return c.call(ctx, method, params)
	})
}

// CallBatch sends all requests as one JSON-RPC batch round trip and returns
// one result per request, in input order, regardless of the order the node
// answered in. An empty input returns an empty slice without any network
// call. Only round-trip failures are retried; per-item errors are returned
// as data.
func (c *Client) CallBatch(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	return c.CallBatchWith(ctx, c.opts, reqs)
}

// CallBatchWith is CallBatch with explicit retry options.
func (c *Client) CallBatchWith(ctx context.Context, opts retry.Options, reqs []BatchRequest) ([]BatchResult, error) {
	if len(reqs) == 0 {
		return []BatchResult{}, nil
	}
	return retry.Do(ctx, opts, func(ctx context.Context) ([]BatchResult, error) {
		return c.callBatch(ctx, reqs)
	})
}

// call performs one JSON-RPC attempt.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	req := &Request{
		ID:      c.rpcID.Add(1) - 1,
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
	}

	body, status, err := c.post(ctx, method, req)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		if status != http.StatusOK {
			return nil, &types.HTTPStatusError{Status: status, Body: truncate(body)}
		}
		return nil, &types.DecodeError{Msg: "invalid JSON-RPC response body", Transient: retry.RetryableStatus(status), Err: err}
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	if status != http.StatusOK {
		return nil, &types.HTTPStatusError{Status: status, Body: truncate(body)}
	}
	return resp.Result, nil
}

// callBatch performs one batch round-trip attempt.
func (c *Client) callBatch(ctx context.Context, reqs []BatchRequest) ([]BatchResult, error) {
	startID := c.rpcID.Add(int64(len(reqs))) - int64(len(reqs))

	envelopes := make([]*Request, len(reqs))
	idToIndex := make(map[string]int, len(reqs))
	for i, r := range reqs {
		id := startID + int64(i)
		envelopes[i] = &Request{
			ID:      id,
			JSONRPC: "2.0",
			Method:  r.Method,
			Params:  r.Params,
		}
		idToIndex[fmt.Sprint(id)] = i
	}

	body, status, err := c.post(ctx, "batch", envelopes)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, &types.HTTPStatusError{Status: status, Body: truncate(body)}
	}

	var responses []Response
	if err := json.Unmarshal(body, &responses); err != nil {
		return nil, &types.DecodeError{Msg: "invalid JSON-RPC batch response body", Transient: retry.RetryableStatus(status), Err: err}
	}

	// Correlate by id: the node may answer out of order or drop items.
	results := make([]BatchResult, len(reqs))
	for i := range results {
		results[i].Err = &types.DecodeError{Msg: fmt.Sprintf("no response for batch item %d (%s)", i, reqs[i].Method)}
	}
	for _, r := range responses {
		i, ok := idToIndex[fmt.Sprint(normalizeID(r.ID))]
		if !ok {
			logger.Warn("batch response with unknown id", "id", r.ID)
			continue
		}
		if r.Error != nil {
			results[i] = BatchResult{Err: r.Error}
			continue
		}
		results[i] = BatchResult{Result: r.Result}
	}
	return results, nil
}

// post sends one HTTP round trip and reads the body.
func (c *Client) post(ctx context.Context, op string, payload any) ([]byte, int, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, c.url); err != nil {
			return nil, 0, &types.TransportError{Op: "rate limit wait", Err: err}
		}
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.setAuthHeaders(httpReq)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, &types.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	logger.Debug("RPC request completed", "op", op, "elapsed", time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &types.TransportError{Op: op + " read body", Err: err}
	}
	return body, resp.StatusCode, nil
}

func (c *Client) setAuthHeaders(req *http.Request) {
	if c.auth == nil {
		return
	}
	switch c.auth.Type {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+c.auth.Token)
	case "api_key":
		req.Header.Set("X-API-Key", c.auth.Token)
	case "basic":
		req.SetBasicAuth(c.auth.Username, c.auth.Password)
	case "custom":
		for key, value := range c.auth.Headers {
			req.Header.Set(key, value)
		}
	}
}

// normalizeID folds the float64 that encoding/json produces for numeric ids
// back into an integer form so fmt.Sprint matches the request id.
func normalizeID(id any) any {
	if f, ok := id.(float64); ok && f == float64(int64(f)) {
		return int64(f)
	}
	return id
}

func truncate(body []byte) string {
	const max = 512
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
