package chain

import (
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// AsBigInt accepts the integer shapes abi.Unpack and JSON decoding produce.
func AsBigInt(v any) (*big.Int, bool) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, false
		}
		return x, true
	case big.Int:
		return &x, true
	case uint64:
		return new(big.Int).SetUint64(x), true
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), true
	case int64:
		return big.NewInt(x), true
	case int:
		return big.NewInt(int64(x)), true
	case float64:
		if x != math.Trunc(x) {
			return nil, false
		}
		f := new(big.Float).SetFloat64(x)
		i, _ := f.Int(nil)
		return i, true
	default:
		return nil, false
	}
}

// AsUint64 is AsBigInt restricted to values that fit an unsigned 64-bit int.
func AsUint64(v any) (uint64, bool) {
	i, ok := AsBigInt(v)
	if !ok || i.Sign() < 0 || !i.IsUint64() {
		return 0, false
	}
	return i.Uint64(), true
}

// AsAddress accepts common.Address, a raw 20-byte array or a 0x-prefixed hex
// string. Anything else, including malformed hex, is rejected.
func AsAddress(v any) (common.Address, bool) {
	switch x := v.(type) {
	case common.Address:
		return x, true
	case [20]byte:
		return common.Address(x), true
	case string:
		if !IsAddress(x) {
			return common.Address{}, false
		}
		return common.HexToAddress(x), true
	default:
		return common.Address{}, false
	}
}

func AsBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// IsAddress reports whether s is a 0x-prefixed, 40 hex digit address.
func IsAddress(s string) bool {
	return len(s) == 42 && common.IsHexAddress(s)
}
