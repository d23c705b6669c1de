package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pinax-network/token-api-scraper/internal/ratelimiter"
	"github.com/pinax-network/token-api-scraper/pkg/common/types"
	"github.com/pinax-network/token-api-scraper/pkg/retry"
)

// SolanaClient speaks the account-lookup surface of Solana JSON-RPC nodes.
type SolanaClient struct {
	*Client
}

func NewSolanaClient(url string, auth *AuthConfig, limiter *ratelimiter.Pool, opts retry.Options) *SolanaClient {
	return &SolanaClient{Client: NewClient(url, auth, limiter, opts)}
}

// AccountInfo is the read-only account snapshot a node returns. Data is the
// [blob, encoding] pair of the base64 encoding.
type AccountInfo struct {
	Data       []string `json:"data"`
	Owner      string   `json:"owner"`
	Lamports   uint64   `json:"lamports"`
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

// DataBytes decodes the account's base64 blob.
func (a *AccountInfo) DataBytes() ([]byte, error) {
	if a == nil || len(a.Data) == 0 {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(a.Data[0])
	if err != nil {
		return nil, &types.DecodeError{Msg: "invalid base64 account data", Err: err}
	}
	return raw, nil
}

// KeyedAccount is a getProgramAccounts row.
type KeyedAccount struct {
	Pubkey  string      `json:"pubkey"`
	Account AccountInfo `json:"account"`
}

// Memcmp matches len(Bytes) base58-decoded bytes at Offset.
type Memcmp struct {
	Offset uint64 `json:"offset"`
	Bytes  string `json:"bytes"`
}

// Filter restricts getProgramAccounts results server-side.
type Filter struct {
	Memcmp   *Memcmp `json:"memcmp,omitempty"`
	DataSize *uint64 `json:"dataSize,omitempty"`
}

// DataSlice limits how much account data the node returns per account.
type DataSlice struct {
	Offset uint64 `json:"offset"`
	Length uint64 `json:"length"`
}

type contextEnvelope struct {
	Value json.RawMessage `json:"value"`
}

// GetAccountInfo fetches one account. A missing account is (nil, nil).
func (s *SolanaClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	raw, err := s.Call(ctx, "getAccountInfo", []any{pubkey, map[string]any{"encoding": "base64"}})
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo failed: %w", err)
	}

	value, err := unwrapContext(raw)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	var info AccountInfo
	if err := json.Unmarshal(value, &info); err != nil {
		return nil, &types.DecodeError{Msg: "invalid account info", Err: err}
	}
	return &info, nil
}

// GetMultipleAccounts fetches up to 100 accounts in one call. The result
// slice is positionally aligned with the input; missing accounts are nil.
func (s *SolanaClient) GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error) {
	if len(pubkeys) == 0 {
		return []*AccountInfo{}, nil
	}

	raw, err := s.Call(ctx, "getMultipleAccounts", []any{pubkeys, map[string]any{"encoding": "base64"}})
	if err != nil {
		return nil, fmt.Errorf("getMultipleAccounts failed: %w", err)
	}

	value, err := unwrapContext(raw)
	if err != nil {
		return nil, err
	}

	var infos []*AccountInfo
	if err := json.Unmarshal(value, &infos); err != nil {
		return nil, &types.DecodeError{Msg: "invalid multiple accounts payload", Err: err}
	}
	if len(infos) != len(pubkeys) {
		return nil, &types.DecodeError{Msg: fmt.Sprintf("expected %d accounts, got %d", len(pubkeys), len(infos))}
	}
	return infos, nil
}

// GetProgramAccounts scans accounts owned by program, with optional
// memcmp/dataSize filters and data slicing.
func (s *SolanaClient) GetProgramAccounts(ctx context.Context, program string, filters []Filter, slice *DataSlice) ([]KeyedAccount, error) {
	cfg := map[string]any{"encoding": "base64"}
	if len(filters) > 0 {
		cfg["filters"] = filters
	}
	if slice != nil {
		cfg["dataSlice"] = slice
	}

	raw, err := s.Call(ctx, "getProgramAccounts", []any{program, cfg})
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts failed: %w", err)
	}

	var rows []KeyedAccount
	if err := json.Unmarshal(raw, &rows); err != nil {
		// some nodes wrap getProgramAccounts in a context envelope too
		value, envErr := unwrapContext(raw)
		if envErr != nil || value == nil {
			return nil, &types.DecodeError{Msg: "invalid program accounts payload", Err: err}
		}
		if err := json.Unmarshal(value, &rows); err != nil {
			return nil, &types.DecodeError{Msg: "invalid program accounts payload", Err: err}
		}
	}
	return rows, nil
}

// unwrapContext peels the {context, value} envelope Solana wraps most
// account responses in. Returns nil when value is JSON null.
func unwrapContext(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var env contextEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, &types.DecodeError{Msg: "invalid response envelope", Err: err}
	}
	if len(env.Value) == 0 || string(env.Value) == "null" {
		return nil, nil
	}
	return env.Value, nil
}
