package solana

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tlvEntry(extType uint16, value []byte) []byte {
	out := make([]byte, 4, 4+len(value))
	binary.LittleEndian.PutUint16(out[0:2], extType)
	binary.LittleEndian.PutUint16(out[2:4], uint16(len(value)))
	return append(out, value...)
}

func metadataExtensionValue(name, symbol, uri string) []byte {
	var v []byte
	v = append(v, make([]byte, 32)...) // update authority
	v = append(v, USDCMint[:]...)      // mint
	v = append(v, borshString(name)...)
	v = append(v, borshString(symbol)...)
	v = append(v, borshString(uri)...)
	return v
}

func buildToken2022Mint(extensions ...[]byte) []byte {
	data := make([]byte, tlvStart)
	data[accountTypeOffset] = accountTypeMint
	for _, ext := range extensions {
		data = append(data, ext...)
	}
	return data
}

func TestParseToken2022Extensions(t *testing.T) {
	data := buildToken2022Mint(
		tlvEntry(extensionTokenMetadata, metadataExtensionValue("Paxos Gold", "PAXG", "https://paxos.com/paxg.json")),
	)

	md := ParseToken2022Extensions(data, TokenProgram2022Str)
	require.NotNil(t, md)
	assert.Equal(t, "Paxos Gold", md.Name)
	assert.Equal(t, "PAXG", md.Symbol)
	assert.Equal(t, "https://paxos.com/paxg.json", md.URI)
}

func TestParseToken2022Extensions_SkipsOtherExtensions(t *testing.T) {
	data := buildToken2022Mint(
		tlvEntry(3, make([]byte, 64)), // some other extension first
		tlvEntry(extensionTokenMetadata, metadataExtensionValue("N", "S", "U")),
	)

	md := ParseToken2022Extensions(data, TokenProgram2022Str)
	require.NotNil(t, md)
	assert.Equal(t, "S", md.Symbol)
}

func TestParseToken2022Extensions_Nil(t *testing.T) {
	withMetadata := buildToken2022Mint(
		tlvEntry(extensionTokenMetadata, metadataExtensionValue("N", "S", "U")),
	)

	tests := []struct {
		name  string
		data  []byte
		owner string
	}{
		{"foreign owner", withMetadata, TokenProgramStr},
		{"basic mint, no extension region", make([]byte, baseMintLen), TokenProgram2022Str},
		{"wrong account type byte", make([]byte, 300), TokenProgram2022Str},
		{"uninitialized padding terminates", buildToken2022Mint(tlvEntry(0, nil)), TokenProgram2022Str},
		{"no metadata extension", buildToken2022Mint(tlvEntry(3, make([]byte, 8))), TokenProgram2022Str},
		{"declared length past buffer", append(buildToken2022Mint(), 19, 0, 255, 255), TokenProgram2022Str},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, ParseToken2022Extensions(tt.data, tt.owner))
		})
	}
}
