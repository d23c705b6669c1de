package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pinax-network/token-api-scraper/internal/abi"
	"github.com/pinax-network/token-api-scraper/internal/address"
	"github.com/pinax-network/token-api-scraper/internal/rpc"
	"github.com/pinax-network/token-api-scraper/pkg/common/logger"
	"github.com/pinax-network/token-api-scraper/pkg/common/types"
	"github.com/pinax-network/token-api-scraper/pkg/events"
	"github.com/pinax-network/token-api-scraper/pkg/kvstore"
)

const defaultConcurrency = 8

// EVMService resolves ERC-20 style token records over JSON-RPC. One batch
// per contract covers name, symbol, decimals and totalSupply; non-standard
// contracts that answer with bytes32 strings decode the same way.
type EVMService struct {
	client      *rpc.EVMClient
	chain       string
	cache       kvstore.Store
	cacheTTL    time.Duration
	emitter     events.Emitter
	concurrency int
}

type EVMServiceOption func(*EVMService)

func WithCache(store kvstore.Store, ttl time.Duration) EVMServiceOption {
	return func(s *EVMService) {
		s.cache = store
		s.cacheTTL = ttl
	}
}

func WithEmitter(emitter events.Emitter) EVMServiceOption {
	return func(s *EVMService) { s.emitter = emitter }
}

func WithConcurrency(n int) EVMServiceOption {
	return func(s *EVMService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewEVMService(client *rpc.EVMClient, chain string, opts ...EVMServiceOption) *EVMService {
	s := &EVMService{
		client:      client,
		chain:       chain,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchToken resolves one contract's token record. The four metadata calls
// go out as a single JSON-RPC batch.
func (s *EVMService) FetchToken(ctx context.Context, contract string) (*Token, error) {
	normalized, err := address.Normalize(contract)
	if err != nil {
		return nil, err
	}

	if token := s.fromCache(normalized); token != nil {
		return token, nil
	}

	results, err := s.client.BatchCallContract(ctx, []rpc.ContractCallRequest{
		{Contract: normalized, Signature: "name()"},
		{Contract: normalized, Signature: "symbol()"},
		{Contract: normalized, Signature: "decimals()"},
		{Contract: normalized, Signature: "totalSupply()"},
	})
	if err != nil {
		return nil, err
	}

	token := &Token{Chain: s.chain, Address: normalized}

	if results[0].Ok() {
		if token.Name, err = abi.DecodeString(results[0].Value); err != nil {
			return nil, fmt.Errorf("decode name of %s: %w", normalized, err)
		}
	}
	if results[1].Ok() {
		if token.Symbol, err = abi.DecodeString(results[1].Value); err != nil {
			return nil, fmt.Errorf("decode symbol of %s: %w", normalized, err)
		}
	}
	if results[2].Ok() {
		d, err := abi.DecodeUint256(results[2].Value)
		if err != nil {
			return nil, fmt.Errorf("decode decimals of %s: %w", normalized, err)
		}
		token.Decimals = uint8(d.Uint64())
	}
	if results[3].Ok() {
		supply, err := abi.DecodeUint256(results[3].Value)
		if err != nil {
			return nil, fmt.Errorf("decode totalSupply of %s: %w", normalized, err)
		}
		token.TotalSupply = scaledSupply(decimal.NewFromBigInt(supply, 0), token.Decimals)
	}

	s.toCache(normalized, token)
	if s.emitter != nil {
		if err := s.emitter.EmitToken(s.chain, token); err != nil {
			logger.Warn("failed to emit token event", "chain", s.chain, "address", normalized, "error", err)
		}
	}
	return token, nil
}

// FetchTokens resolves many contracts concurrently. Per-contract failures
// don't abort the run; the slice carries nil at failed positions and the
// collected errors come back alongside.
func (s *EVMService) FetchTokens(ctx context.Context, contracts []string) ([]*Token, error) {
	tokens := make([]*Token, len(contracts))

	var merr types.MultiError
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, contract := range contracts {
		g.Go(func() error {
			token, err := s.FetchToken(gctx, contract)
			if err != nil {
				logger.Warn("failed to fetch token", "chain", s.chain, "address", contract, "error", err)
				merr.Add(err)
				s.emitError(err)
				return nil
			}
			tokens[i] = token
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return tokens, err
	}
	if merr.IsEmpty() {
		return tokens, nil
	}
	return tokens, &merr
}

func (s *EVMService) emitError(err error) {
	if s.emitter == nil {
		return
	}
	if emitErr := s.emitter.EmitError(s.chain, err); emitErr != nil {
		logger.Warn("failed to emit error event", "chain", s.chain, "error", emitErr)
	}
}

func (s *EVMService) cacheKey(addr string) string {
	return fmt.Sprintf("token:%s:%s", s.chain, addr)
}

func (s *EVMService) fromCache(addr string) *Token {
	if s.cache == nil {
		return nil
	}
	var token Token
	if err := kvstore.GetJSON(s.cache, s.cacheKey(addr), &token); err != nil {
		return nil
	}
	return &token
}

func (s *EVMService) toCache(addr string, token *Token) {
	if s.cache == nil {
		return
	}
	if err := kvstore.SetJSON(s.cache, s.cacheKey(addr), token, s.cacheTTL); err != nil {
		logger.Warn("failed to cache token", "chain", s.chain, "address", addr, "error", err)
	}
}
