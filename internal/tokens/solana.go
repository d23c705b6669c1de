package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/pinax-network/token-api-scraper/internal/rpc"
	"github.com/pinax-network/token-api-scraper/internal/solana"
	"github.com/pinax-network/token-api-scraper/pkg/common/logger"
	"github.com/pinax-network/token-api-scraper/pkg/common/types"
	"github.com/pinax-network/token-api-scraper/pkg/events"
	"github.com/pinax-network/token-api-scraper/pkg/kvstore"
)

// SolanaService resolves SPL token records: the mint account itself plus
// whatever metadata the chain carries for it (Metaplex PDA or Token-2022
// extension), and LP-mint classification by mint authority.
type SolanaService struct {
	client      *rpc.SolanaClient
	resolver    *solana.Resolver
	chain       string
	cache       kvstore.Store
	cacheTTL    time.Duration
	emitter     events.Emitter
	concurrency int
}

type SolanaServiceOption func(*SolanaService)

func WithSolanaCache(store kvstore.Store, ttl time.Duration) SolanaServiceOption {
	return func(s *SolanaService) {
		s.cache = store
		s.cacheTTL = ttl
	}
}

func WithSolanaEmitter(emitter events.Emitter) SolanaServiceOption {
	return func(s *SolanaService) { s.emitter = emitter }
}

func WithSolanaConcurrency(n int) SolanaServiceOption {
	return func(s *SolanaService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func NewSolanaService(client *rpc.SolanaClient, opts ...SolanaServiceOption) *SolanaService {
	s := &SolanaService{
		client:      client,
		resolver:    solana.NewResolver(client),
		chain:       "solana",
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FetchToken resolves one mint's token record. A missing account yields
// (nil, nil).
func (s *SolanaService) FetchToken(ctx context.Context, mintAddr string) (*Token, error) {
	mint, err := solana.TryPubkeyFromBase58(mintAddr)
	if err != nil {
		return nil, types.NewValidationError("invalid solana mint %q: %v", mintAddr, err)
	}

	if token := s.fromCache(mint.String()); token != nil {
		return token, nil
	}

	info, err := s.client.GetAccountInfo(ctx, mint.String())
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	data, err := info.DataBytes()
	if err != nil {
		return nil, err
	}

	acct := solana.DecodeMintAccount(data, info.Owner)
	if acct == nil {
		return nil, types.NewValidationError("%s is not an SPL mint account", mint)
	}

	token := &Token{
		Chain:       s.chain,
		Address:     mint.String(),
		Decimals:    acct.Decimals,
		TotalSupply: scaledSupply(decimal.NewFromUint64(acct.Supply), acct.Decimals),
	}

	if md := s.resolver.ResolveMetadata(ctx, mint); md != nil {
		token.Name = md.Name
		token.Symbol = md.Symbol
	} else if md := solana.ParseToken2022Extensions(data, info.Owner); md != nil {
		token.Name = md.Name
		token.Symbol = md.Symbol
	}

	// LP classification overrides the symbol when the mint authority
	// belongs to a known AMM.
	if acct.MintAuthority != nil {
		if _, ok := solana.LPProtocolForAuthority(*acct.MintAuthority); ok {
			lp, err := s.resolver.ClassifyLPMint(ctx, mint)
			if err != nil {
				logger.Warn("LP classification failed", "mint", mint.String(), "error", err)
			} else if lp != nil {
				token.Symbol = lp.Symbol
				token.LP = &LPInfo{Protocol: lp.Protocol, Pool: lp.Pool}
				if s.emitter != nil {
					if err := s.emitter.EmitPool(s.chain, lp); err != nil {
						logger.Warn("failed to emit pool event", "mint", mint.String(), "error", err)
					}
				}
			}
		}
	}

	if token.Symbol == "" {
		token.Symbol = s.resolver.ResolveSymbol(ctx, mint)
	}

	s.toCache(mint.String(), token)
	if s.emitter != nil {
		if err := s.emitter.EmitToken(s.chain, token); err != nil {
			logger.Warn("failed to emit token event", "chain", s.chain, "mint", mint.String(), "error", err)
		}
	}
	return token, nil
}

// FetchTokens resolves many mints concurrently; mirrors EVMService.FetchTokens.
func (s *SolanaService) FetchTokens(ctx context.Context, mints []string) ([]*Token, error) {
	tokens := make([]*Token, len(mints))

	var merr types.MultiError
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, mint := range mints {
		g.Go(func() error {
			token, err := s.FetchToken(gctx, mint)
			if err != nil {
				logger.Warn("failed to fetch token", "chain", s.chain, "mint", mint, "error", err)
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

func (s *SolanaService) emitError(err error) {
	if s.emitter == nil {
		return
	}
	if emitErr := s.emitter.EmitError(s.chain, err); emitErr != nil {
		logger.Warn("failed to emit error event", "chain", s.chain, "error", emitErr)
	}
}

func (s *SolanaService) cacheKey(mint string) string {
	return fmt.Sprintf("token:%s:%s", s.chain, mint)
}

func (s *SolanaService) fromCache(mint string) *Token {
	if s.cache == nil {
		return nil
	}
	var token Token
	if err := kvstore.GetJSON(s.cache, s.cacheKey(mint), &token); err != nil {
		return nil
	}
	return &token
}

func (s *SolanaService) toCache(mint string, token *Token) {
	if s.cache == nil {
		return
	}
	if err := kvstore.SetJSON(s.cache, s.cacheKey(mint), token, s.cacheTTL); err != nil {
		logger.Warn("failed to cache token", "chain", s.chain, "mint", mint, "error", err)
	}
}
