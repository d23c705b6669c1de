package solana

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Pubkey is a 32-byte Solana public key.
type Pubkey [32]byte

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Equals(other Pubkey) bool {
	return p == other
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// TryPubkeyFromBase58 parses untrusted input into a Pubkey.
func TryPubkeyFromBase58(s string) (Pubkey, error) {
	data, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("failed to decode base58 pubkey %q: %w", s, err)
	}
	if len(data) != 32 {
		return Pubkey{}, fmt.Errorf("invalid pubkey length: got %d, want 32, input=%q", len(data), s)
	}
	var p Pubkey
	copy(p[:], data)
	return p, nil
}

// PubkeyFromBase58 parses a known-good constant; panics on bad input.
func PubkeyFromBase58(s string) Pubkey {
	p, err := TryPubkeyFromBase58(s)
	if err != nil {
		panic(err)
	}
	return p
}

// pubkeyAt reads the 32-byte key embedded at offset. Bounds are the
// caller's responsibility.
func pubkeyAt(data []byte, offset int) Pubkey {
	var p Pubkey
	copy(p[:], data[offset:offset+32])
	return p
}

// Base58 address constants, readable form for logs and filters.
const (
	TokenProgramStr         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	TokenProgram2022Str     = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	TokenMetadataProgramStr = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

	WSOLMintStr = "So11111111111111111111111111111111111111112"
	USDCMintStr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	USDTMintStr = "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB"

	// AMM programs
	RaydiumV4ProgramStr   = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	RaydiumCPMMProgramStr = "CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C"
	PumpFunAMMProgramStr  = "pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA"
	MeteoraDLMMProgramStr = "LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo"

	// Known LP mint authorities
	RaydiumV4AuthorityStr   = "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"
	RaydiumCPMMAuthorityStr = "GpMZbSM2GgvTKHJirzeGfMFoaZ8UR2X7F4v8vHTvxFbL"
)

var (
	TokenProgram         = PubkeyFromBase58(TokenProgramStr)
	TokenProgram2022     = PubkeyFromBase58(TokenProgram2022Str)
	TokenMetadataProgram = PubkeyFromBase58(TokenMetadataProgramStr)

	WSOLMint = PubkeyFromBase58(WSOLMintStr)
	USDCMint = PubkeyFromBase58(USDCMintStr)
	USDTMint = PubkeyFromBase58(USDTMintStr)

	RaydiumV4Program   = PubkeyFromBase58(RaydiumV4ProgramStr)
	RaydiumCPMMProgram = PubkeyFromBase58(RaydiumCPMMProgramStr)
	PumpFunAMMProgram  = PubkeyFromBase58(PumpFunAMMProgramStr)
	MeteoraDLMMProgram = PubkeyFromBase58(MeteoraDLMMProgramStr)

	RaydiumV4Authority   = PubkeyFromBase58(RaydiumV4AuthorityStr)
	RaydiumCPMMAuthority = PubkeyFromBase58(RaydiumCPMMAuthorityStr)
)
