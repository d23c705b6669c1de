package solana

import (
	"context"
	"fmt"

	"github.com/pinax-network/token-api-scraper/internal/rpc"
	"github.com/pinax-network/token-api-scraper/pkg/common/logger"
)

// AccountFetcher is the node surface the resolver needs; *rpc.SolanaClient
// satisfies it.
type AccountFetcher interface {
	GetAccountInfo(ctx context.Context, pubkey string) (*rpc.AccountInfo, error)
	GetProgramAccounts(ctx context.Context, program string, filters []rpc.Filter, slice *rpc.DataSlice) ([]rpc.KeyedAccount, error)
}

// wellKnownSymbols short-circuits mints whose display symbol is fixed.
var wellKnownSymbols = map[string]string{
	WSOLMintStr: "SOL",
	USDCMintStr: "USDC",
	USDTMintStr: "USDT",
}

// lpAuthorities maps known LP mint authorities to their protocol label. A
// mint whose on-chain mint authority is one of these is that protocol's LP
// token.
var lpAuthorities = map[Pubkey]string{
	RaydiumV4Authority:   "Raydium",
	RaydiumCPMMAuthority: "Raydium CPMM",
}

// LPProtocolForAuthority reports the protocol owning a mint authority.
func LPProtocolForAuthority(authority Pubkey) (string, bool) {
	p, ok := lpAuthorities[authority]
	return p, ok
}

// LPToken is a classified liquidity-pool mint. Pool is the pool account
// when discovery succeeded, empty otherwise; discovery failure never
// invalidates the authority-based classification.
type LPToken struct {
	Protocol string
	Mint     Pubkey
	Pool     string
	Symbol   string
}

// Resolver derives token display symbols and LP token identity from
// on-chain accounts.
type Resolver struct {
	client AccountFetcher
}

func NewResolver(client AccountFetcher) *Resolver {
	return &Resolver{client: client}
}

// ResolveSymbol returns the display symbol for a mint, checking in order:
// the well-known table, Metaplex metadata, Token-2022 extension metadata,
// then a truncated mint address.
func (r *Resolver) ResolveSymbol(ctx context.Context, mint Pubkey) string {
	mintStr := mint.String()
	if s, ok := wellKnownSymbols[mintStr]; ok {
		return s
	}

	if md := r.fetchMetaplex(ctx, mint); md != nil && md.Symbol != "" {
		return md.Symbol
	}

	info, err := r.client.GetAccountInfo(ctx, mintStr)
	if err == nil && info != nil {
		if data, err := info.DataBytes(); err == nil {
			if md := ParseToken2022Extensions(data, info.Owner); md != nil && md.Symbol != "" {
				return md.Symbol
			}
		}
	}

	return truncateMint(mintStr)
}

// ResolveMetadata returns the Metaplex metadata for a mint, or nil.
func (r *Resolver) ResolveMetadata(ctx context.Context, mint Pubkey) *Metadata {
	return r.fetchMetaplex(ctx, mint)
}

// LPSymbol composes the display symbol for a pool's ordered mint pair.
func (r *Resolver) LPSymbol(ctx context.Context, protocol string, mintA, mintB Pubkey) string {
	symA := r.ResolveSymbol(ctx, mintA)
	symB := r.ResolveSymbol(ctx, mintB)
	return fmt.Sprintf("%s (%s-%s) LP Token", protocol, symA, symB)
}

// ClassifyLPMint decides whether mint is a known protocol's LP token by its
// on-chain mint authority, then best-effort looks up the pool account that
// carries it. (nil, nil) means "not an LP token".
func (r *Resolver) ClassifyLPMint(ctx context.Context, mint Pubkey) (*LPToken, error) {
	info, err := r.client.GetAccountInfo(ctx, mint.String())
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

	acct := DecodeMintAccount(data, info.Owner)
	if acct == nil || acct.MintAuthority == nil {
		return nil, nil
	}
	protocol, ok := LPProtocolForAuthority(*acct.MintAuthority)
	if !ok {
		return nil, nil
	}

	lp := &LPToken{Protocol: protocol, Mint: mint}

	// secondary lookup; tolerated to fail
	if pool, ok := r.findPool(ctx, protocol, mint); ok {
		lp.Pool = pool.Pubkey
		if decoded := DecodeRaydiumV4Pool(mustDataBytes(pool.Account), pool.Account.Owner); decoded != nil {
			lp.Symbol = r.LPSymbol(ctx, protocol, decoded.CoinMint, decoded.PCMint)
		} else if decoded := DecodeRaydiumCPMMPool(mustDataBytes(pool.Account), pool.Account.Owner); decoded != nil {
			lp.Symbol = r.LPSymbol(ctx, protocol, decoded.Token0Mint, decoded.Token1Mint)
		}
	}
	if lp.Symbol == "" {
		lp.Symbol = fmt.Sprintf("%s LP Token (%s)", protocol, truncateMint(mint.String()))
	}
	return lp, nil
}

// findPool scans the protocol's program accounts for the pool whose LP mint
// field matches.
func (r *Resolver) findPool(ctx context.Context, protocol string, lpMint Pubkey) (rpc.KeyedAccount, bool) {
	var program string
	var filters []rpc.Filter

	switch protocol {
	case "Raydium":
		size := uint64(RaydiumV4PoolLen)
		program = RaydiumV4ProgramStr
		filters = []rpc.Filter{
			{DataSize: &size},
			{Memcmp: &rpc.Memcmp{Offset: RaydiumV4LPMintOffset, Bytes: lpMint.String()}},
		}
	case "Raydium CPMM":
		program = RaydiumCPMMProgramStr
		filters = []rpc.Filter{
			{Memcmp: &rpc.Memcmp{Offset: RaydiumCPMMLPMintOffset, Bytes: lpMint.String()}},
		}
	default:
		return rpc.KeyedAccount{}, false
	}

	rows, err := r.client.GetProgramAccounts(ctx, program, filters, nil)
	if err != nil {
		logger.Warn("LP pool lookup failed", "protocol", protocol, "lp_mint", lpMint.String(), "error", err)
		return rpc.KeyedAccount{}, false
	}
	if len(rows) == 0 {
		return rpc.KeyedAccount{}, false
	}
	return rows[0], true
}

func (r *Resolver) fetchMetaplex(ctx context.Context, mint Pubkey) *Metadata {
	pda, err := MetadataPDA(mint)
	if err != nil {
		return nil
	}
	info, err := r.client.GetAccountInfo(ctx, pda.String())
	if err != nil || info == nil {
		return nil
	}
	if info.Owner != TokenMetadataProgramStr {
		return nil
	}
	data, err := info.DataBytes()
	if err != nil {
		return nil
	}
	return DecodeMetadata(data)
}

func mustDataBytes(info rpc.AccountInfo) []byte {
	data, err := info.DataBytes()
	if err != nil {
		return nil
	}
	return data
}

func truncateMint(mint string) string {
	if len(mint) <= 8 {
		return mint
	}
	return mint[:4] + ".." + mint[len(mint)-4:]
}
