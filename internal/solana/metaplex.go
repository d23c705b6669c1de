package solana

import (
	"strings"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/near/borsh-go"
)

// Metadata is the decoded view over the fixed-schema prefix of a Metaplex
// metadata account. Null padding inside the declared string lengths is
// stripped.
type Metadata struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// metadataPrefix mirrors the borsh layout of a Metaplex metadata account up
// to the seller fee. Creators and later fields are ignored.
type metadataPrefix struct {
	Key                  uint8
	UpdateAuthority      [32]uint8
	Mint                 [32]uint8
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
}

// metadataMinLen: key + two pubkeys + three empty borsh strings + fee.
const metadataMinLen = 1 + 32 + 32 + 4 + 4 + 4 + 2

// DecodeMetadata decodes the metadata prefix of an account blob. A buffer
// too short to hold the schema yields nil, not an error.
func DecodeMetadata(data []byte) *Metadata {
	if len(data) < metadataMinLen {
		return nil
	}

	var acc metadataPrefix
	if err := borsh.Deserialize(&acc, data); err != nil {
		return nil
	}
	return &Metadata{
		Name:                 strings.TrimRight(acc.Name, "\x00"),
		Symbol:               strings.TrimRight(acc.Symbol, "\x00"),
		URI:                  strings.TrimRight(acc.URI, "\x00"),
		SellerFeeBasisPoints: acc.SellerFeeBasisPoints,
	}
}

// MetadataPDA derives the Metaplex metadata account for a mint:
// ["metadata", metadata_program, mint] under the metadata program.
func MetadataPDA(mint Pubkey) (Pubkey, error) {
	program := common.PublicKeyFromBytes(TokenMetadataProgram[:])
	pda, _, err := common.FindProgramAddress(
		[][]byte{[]byte("metadata"), TokenMetadataProgram[:], mint[:]},
		program,
	)
	if err != nil {
		return Pubkey{}, err
	}
	var p Pubkey
	copy(p[:], pda.Bytes())
	return p, nil
}
