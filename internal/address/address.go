// Package address converts between the two textual encodings of a 20-byte
// account address: 0x-prefixed EVM hex and Tron's base58check form, which is
// the same 20 bytes behind a fixed 0x41 version byte.
package address

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcutil/base58"

	"github.com/pinax-network/token-api-scraper/pkg/common/types"
)

// TronVersionByte prefixes the raw 20 bytes in the base58check encoding.
const TronVersionByte = 0x41

// Normalize returns the lower-case 0x-prefixed hex form of an address given
// in either supported encoding. Structurally invalid input is rejected with
// a ValidationError.
func Normalize(addr string) (string, error) {
	a := strings.TrimSpace(addr)

	if strings.HasPrefix(a, "0x") || strings.HasPrefix(a, "0X") {
		return normalizeHex(a[2:])
	}
	if len(a) == 40 && isHex(a) {
		return normalizeHex(a)
	}
	return fromTron(a)
}

// ToTron converts a 0x-prefixed hex address to Tron base58check, needed when
// issuing calls against nodes expecting native address form.
func ToTron(hexAddr string) (string, error) {
	normalized, err := Normalize(hexAddr)
	if err != nil {
		return "", err
	}
	raw, _ := hex.DecodeString(normalized[2:])

	payload := append([]byte{TronVersionByte}, raw...)
	full := append(payload, checksum(payload)...)
	return base58.Encode(full), nil
}

func normalizeHex(h string) (string, error) {
	if len(h) != 40 || !isHex(h) {
		return "", types.NewValidationError("invalid EVM address: %q", "0x"+h)
	}
	return "0x" + strings.ToLower(h), nil
}

func fromTron(a string) (string, error) {
	decoded := base58.Decode(a)
	// version byte + 20-byte body + 4-byte checksum
	if len(decoded) != 25 {
		return "", types.NewValidationError("invalid Tron address: %q", a)
	}
	payload, sum := decoded[:21], decoded[21:]
	if payload[0] != TronVersionByte {
		return "", types.NewValidationError("invalid Tron address version byte 0x%02x: %q", payload[0], a)
	}
	if !bytes.Equal(sum, checksum(payload)) {
		return "", types.NewValidationError("invalid Tron address checksum: %q", a)
	}
	return "0x" + hex.EncodeToString(payload[1:]), nil
}

func checksum(payload []byte) []byte {
	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	return h2[:4]
}

func isHex(s string) bool {
	_, err := hex.DecodeString(s)
	return err == nil
}
