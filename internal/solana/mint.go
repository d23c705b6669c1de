package solana

import "encoding/binary"

// MintAccount is the decoded SPL mint layout, shared by Token v1 and
// Token-2022 for the first 82 bytes.
type MintAccount struct {
	MintAuthority   *Pubkey
	Supply          uint64
	Decimals        uint8
	Initialized     bool
	FreezeAuthority *Pubkey
}

// DecodeMintAccount decodes an SPL mint. Accounts not owned by a token
// program, or shorter than the base layout, yield nil.
func DecodeMintAccount(data []byte, owner string) *MintAccount {
	if owner != TokenProgramStr && owner != TokenProgram2022Str {
		return nil
	}
	if len(data) < baseMintLen {
		return nil
	}

	m := &MintAccount{
		Supply:      binary.LittleEndian.Uint64(data[36:44]),
		Decimals:    data[44],
		Initialized: data[45] != 0,
	}
	// COption<Pubkey>: u32 tag + key
	if binary.LittleEndian.Uint32(data[0:4]) == 1 {
		k := pubkeyAt(data, 4)
		m.MintAuthority = &k
	}
	if binary.LittleEndian.Uint32(data[46:50]) == 1 {
		k := pubkeyAt(data, 50)
		m.FreezeAuthority = &k
	}
	return m
}
