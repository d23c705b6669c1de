// Package abi builds eth_call data (4-byte keccak selector plus encoded
// arguments) from a canonical signature string and decodes returned hex
// payloads. An empty or "0x" payload decodes to a zero value, never an
// error: "legitimately empty" and "failed" must stay distinguishable.
package abi

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"reflect"
	"strings"

	gethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pinax-network/token-api-scraper/internal/address"
	"github.com/pinax-network/token-api-scraper/pkg/common/types"
)

// EncodeCall derives the selector from the keccak-256 of the canonical
// signature, validates the argument count against the parenthesized type
// list before any I/O, normalizes address-typed arguments, and returns
// selector + packed argument block.
func EncodeCall(signature string, args []any) ([]byte, error) {
	name, typeNames, err := parseSignature(signature)
	if err != nil {
		return nil, err
	}
	if len(args) != len(typeNames) {
		return nil, types.NewValidationError(
			"arg count mismatch: %s expects %d args, got %d", signature, len(typeNames), len(args))
	}

	canonical := name + "(" + strings.Join(typeNames, ",") + ")"
	selector := crypto.Keccak256([]byte(canonical))[:4]
	if len(typeNames) == 0 {
		return selector, nil
	}

	arguments := make(gethabi.Arguments, len(typeNames))
	values := make([]any, len(typeNames))
	for i, tn := range typeNames {
		t, err := gethabi.NewType(tn, "", nil)
		if err != nil {
			return nil, types.NewValidationError("unsupported type %q in %s: %v", tn, signature, err)
		}
		arguments[i] = gethabi.Argument{Type: t}

		v, err := coerceArg(args[i], t)
		if err != nil {
			return nil, types.NewValidationError("invalid arg %d for %s: %v", i, signature, err)
		}
		values[i] = v
	}

	packed, err := arguments.Pack(values...)
	if err != nil {
		return nil, types.NewValidationError("abi pack failed for %s: %v", signature, err)
	}
	return append(selector, packed...), nil
}

// DecodeUint256 parses an eth_call return as a big integer. Empty / "0x"
// input yields zero.
func DecodeUint256(hexStr string) (*big.Int, error) {
	data, err := hexBytes(hexStr)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(data), nil
}

// DecodeString parses an eth_call return as an ABI string. Empty / "0x"
// input yields "". A bare 32-byte word is treated as a legacy bytes32
// string (MKR-era tokens return name/symbol that way).
func DecodeString(hexStr string) (string, error) {
	data, err := hexBytes(hexStr)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	if len(data) == 32 {
		return strings.TrimRight(string(data), "\x00"), nil
	}

	out, err := stringArguments.Unpack(data)
	if err != nil {
		return "", &types.DecodeError{Msg: "abi string unpack", Err: err}
	}
	s, ok := out[0].(string)
	if !ok {
		return "", &types.DecodeError{Msg: fmt.Sprintf("abi string unpack returned %T", out[0])}
	}
	return strings.TrimRight(s, "\x00"), nil
}

var stringArguments = gethabi.Arguments{{Type: mustNewType("string")}}

func mustNewType(name string) gethabi.Type {
	t, err := gethabi.NewType(name, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

func parseSignature(signature string) (string, []string, error) {
	open := strings.Index(signature, "(")
	if open <= 0 || !strings.HasSuffix(signature, ")") {
		return "", nil, types.NewValidationError("malformed signature: %q", signature)
	}
	name := signature[:open]
	inner := signature[open+1 : len(signature)-1]
	if strings.ContainsAny(inner, "()") {
		return "", nil, types.NewValidationError("tuple types not supported: %q", signature)
	}
	if strings.TrimSpace(inner) == "" {
		return name, nil, nil
	}

	parts := strings.Split(inner, ",")
	typeNames := make([]string, len(parts))
	for i, p := range parts {
		tn := strings.TrimSpace(p)
		if tn == "" {
			return "", nil, types.NewValidationError("malformed signature: %q", signature)
		}
		typeNames[i] = tn
	}
	return name, typeNames, nil
}

// coerceArg converts a loosely-typed caller value into the exact Go value
// go-ethereum's packer expects for the ABI type.
func coerceArg(arg any, t gethabi.Type) (any, error) {
	switch t.T {
	case gethabi.AddressTy:
		s, ok := arg.(string)
		if !ok {
			if a, ok := arg.(common.Address); ok {
				return a, nil
			}
			return nil, fmt.Errorf("address arg must be a string, got %T", arg)
		}
		normalized, err := address.Normalize(s)
		if err != nil {
			return nil, err
		}
		return common.HexToAddress(normalized), nil

	case gethabi.UintTy, gethabi.IntTy:
		n, err := toBigInt(arg)
		if err != nil {
			return nil, err
		}
		return coerceInt(n, t)

	case gethabi.BoolTy:
		b, ok := arg.(bool)
		if !ok {
			return nil, fmt.Errorf("bool arg must be a bool, got %T", arg)
		}
		return b, nil

	case gethabi.StringTy:
		s, ok := arg.(string)
		if !ok {
			return nil, fmt.Errorf("string arg must be a string, got %T", arg)
		}
		return s, nil

	case gethabi.BytesTy:
		return toBytes(arg)

	case gethabi.FixedBytesTy:
		b, err := toBytes(arg)
		if err != nil {
			return nil, err
		}
		if len(b) != t.Size {
			return nil, fmt.Errorf("bytes%d arg has %d bytes", t.Size, len(b))
		}
		v := reflect.New(t.GetType()).Elem()
		reflect.Copy(v, reflect.ValueOf(b))
		return v.Interface(), nil

	default:
		return nil, fmt.Errorf("unsupported abi type %s", t.String())
	}
}

// coerceInt narrows a big.Int to the register-sized Go integer the packer
// wants for <=64-bit ABI ints, passing *big.Int through for wider ones.
func coerceInt(n *big.Int, t gethabi.Type) (any, error) {
	if t.Size > 64 {
		return n, nil
	}
	if t.T == gethabi.UintTy {
		if n.Sign() < 0 || n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s out of range for uint%d", n, t.Size)
		}
		switch t.Size {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		default:
			// odd widths (uint24, uint40, ...) pack from *big.Int
			return n, nil
		}
	}
	if !n.IsInt64() {
		return nil, fmt.Errorf("value %s out of range for int%d", n, t.Size)
	}
	switch t.Size {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	default:
		return n, nil
	}
}

func toBigInt(arg any) (*big.Int, error) {
	switch v := arg.(type) {
	case *big.Int:
		return v, nil
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case string:
		s := strings.TrimSpace(v)
		base := 10
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			s, base = s[2:], 16
		}
		n, ok := new(big.Int).SetString(s, base)
		if !ok {
			return nil, fmt.Errorf("not a number: %q", v)
		}
		return n, nil
	default:
		return nil, fmt.Errorf("integer arg must be *big.Int, int or string, got %T", arg)
	}
}

func toBytes(arg any) ([]byte, error) {
	switch v := arg.(type) {
	case []byte:
		return v, nil
	case string:
		return hexBytes(v)
	default:
		return nil, fmt.Errorf("bytes arg must be []byte or hex string, got %T", arg)
	}
}

func hexBytes(hexStr string) ([]byte, error) {
	s := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(hexStr), "0x"), "0X")
	if s == "" {
		return nil, nil
	}
	if len(s)%2 != 0 {
		s = "0" + s
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, &types.DecodeError{Msg: fmt.Sprintf("invalid hex %q", hexStr), Err: err}
	}
	return data, nil
}
