package solana

// Fixed-offset projections of AMM pool accounts. Every decoder demands (a)
// the buffer at least as long as the layout's minimum and (b) the account
// owner matching the expected program, and returns nil otherwise rather
// than guessing.

// RaydiumV4Pool is the mint projection of a Raydium AMM V4 liquidity state
// account (752 bytes; coin=base, pc=quote in Raydium's naming).
type RaydiumV4Pool struct {
	CoinMint Pubkey
	PCMint   Pubkey
	LPMint   Pubkey
}

const (
	RaydiumV4PoolLen = 752

	raydiumV4CoinMintOffset = 400
	raydiumV4PCMintOffset   = 432
	RaydiumV4LPMintOffset   = 464
)

func DecodeRaydiumV4Pool(data []byte, owner string) *RaydiumV4Pool {
	if owner != RaydiumV4ProgramStr || len(data) < RaydiumV4PoolLen {
		return nil
	}
	return &RaydiumV4Pool{
		CoinMint: pubkeyAt(data, raydiumV4CoinMintOffset),
		PCMint:   pubkeyAt(data, raydiumV4PCMintOffset),
		LPMint:   pubkeyAt(data, RaydiumV4LPMintOffset),
	}
}

// RaydiumCPMMPool is the mint projection of a Raydium CPMM PoolState
// account (anchor account: 8-byte discriminator, then pubkey fields).
type RaydiumCPMMPool struct {
	Token0Mint Pubkey
	Token1Mint Pubkey
}

const (
	raydiumCPMMToken0MintOffset = 168
	raydiumCPMMToken1MintOffset = 200
	RaydiumCPMMLPMintOffset     = 136

	raydiumCPMMMinLen = raydiumCPMMToken1MintOffset + 32
)

func DecodeRaydiumCPMMPool(data []byte, owner string) *RaydiumCPMMPool {
	if owner != RaydiumCPMMProgramStr || len(data) < raydiumCPMMMinLen {
		return nil
	}
	return &RaydiumCPMMPool{
		Token0Mint: pubkeyAt(data, raydiumCPMMToken0MintOffset),
		Token1Mint: pubkeyAt(data, raydiumCPMMToken1MintOffset),
	}
}

// PumpFunPool is the mint projection of a Pump.fun AMM pool account
// (anchor account; bump u8, index u16, creator, then the mints).
type PumpFunPool struct {
	QuoteMint Pubkey
	BaseMint  Pubkey
	LPMint    Pubkey
}

const (
	pumpFunBaseMintOffset  = 43
	pumpFunQuoteMintOffset = 75
	PumpFunLPMintOffset    = 107

	pumpFunMinLen = PumpFunLPMintOffset + 32
)

func DecodePumpFunPool(data []byte, owner string) *PumpFunPool {
	if owner != PumpFunAMMProgramStr || len(data) < pumpFunMinLen {
		return nil
	}
	return &PumpFunPool{
		QuoteMint: pubkeyAt(data, pumpFunQuoteMintOffset),
		BaseMint:  pubkeyAt(data, pumpFunBaseMintOffset),
		LPMint:    pubkeyAt(data, PumpFunLPMintOffset),
	}
}

// MeteoraDLMMPool is the mint projection of a Meteora DLMM LbPair account
// (discriminator, static + variable parameter blocks, then the pair mints).
type MeteoraDLMMPool struct {
	TokenXMint Pubkey
	TokenYMint Pubkey
}

const (
	meteoraTokenXMintOffset = 88
	meteoraTokenYMintOffset = 120

	meteoraMinLen = meteoraTokenYMintOffset + 32
)

func DecodeMeteoraDLMMPool(data []byte, owner string) *MeteoraDLMMPool {
	if owner != MeteoraDLMMProgramStr || len(data) < meteoraMinLen {
		return nil
	}
	return &MeteoraDLMMPool{
		TokenXMint: pubkeyAt(data, meteoraTokenXMintOffset),
		TokenYMint: pubkeyAt(data, meteoraTokenYMintOffset),
	}
}
