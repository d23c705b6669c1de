package solana

import (
	"encoding/binary"
	"strings"

	"github.com/near/borsh-go"
)

// Token-2022 mints append extensions after the base 82-byte mint layout,
// padded out to the 165-byte token-account size, one account-type byte,
// then a TLV region: u16 type, u16 length, value.
const (
	baseMintLen       = 82
	accountTypeOffset = 165
	tlvStart          = 166

	accountTypeMint = 1

	// extension discriminants
	extensionTokenMetadata = 19
)

// TokenMetadata is the embedded metadata extension of a Token-2022 mint.
type TokenMetadata struct {
	Name   string
	Symbol string
	URI    string
}

// tokenMetadataValue mirrors the extension's borsh layout up to the URI;
// the trailing additional_metadata vec is ignored.
type tokenMetadataValue struct {
	UpdateAuthority [32]uint8
	Mint            [32]uint8
	Name            string
	Symbol          string
	URI             string
}

// ParseToken2022Extensions scans the TLV region for an embedded metadata
// extension. Returns nil when the account is not owned by Token-2022, is a
// basic mint with no extension region, or carries no metadata extension.
// TLV parsing is never attempted on foreign accounts.
func ParseToken2022Extensions(data []byte, owner string) *TokenMetadata {
	if owner != TokenProgram2022Str {
		return nil
	}
	if len(data) <= tlvStart || data[accountTypeOffset] != accountTypeMint {
		return nil
	}

	pos := tlvStart
	for pos+4 <= len(data) {
		extType := binary.LittleEndian.Uint16(data[pos : pos+2])
		extLen := int(binary.LittleEndian.Uint16(data[pos+2 : pos+4]))
		pos += 4
		if extType == 0 {
			// uninitialized padding terminates the region
			return nil
		}
		if pos+extLen > len(data) {
			return nil
		}
		if extType == extensionTokenMetadata {
			return decodeTokenMetadata(data[pos : pos+extLen])
		}
		pos += extLen
	}
	return nil
}

func decodeTokenMetadata(value []byte) *TokenMetadata {
	var v tokenMetadataValue
	if err := borsh.Deserialize(&v, value); err != nil {
		return nil
	}
	return &TokenMetadata{
		Name:   strings.TrimRight(v.Name, "\x00"),
		Symbol: strings.TrimRight(v.Symbol, "\x00"),
		URI:    strings.TrimRight(v.URI, "\x00"),
	}
}
