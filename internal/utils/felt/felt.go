// Package felt converts between Go values and Starknet field elements.
//
// Field elements are carried as *big.Int throughout the service; conversion to a
// hashing library's own representation happens only where a hash is computed.
package felt

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// Prime is the Starknet field modulus, 2^251 + 17*2^192 + 1.
	Prime, _ = new(big.Int).SetString("800000000000011000000000000000000000000000000000000000000000001", 16)

	limbBound    = new(big.Int).Lsh(big.NewInt(1), 128)
	uint256Bound = new(big.Int).Lsh(big.NewInt(1), 256)
	selectorMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 250), big.NewInt(1))

	ErrEmpty      = errors.New("empty value")
	ErrNegative   = errors.New("negative value")
	ErrOutOfRange = errors.New("value out of range")
)

const (
	// Entry points with a fixed zero selector.
	defaultEntryPoint   = "__default__"
	l1DefaultEntryPoint = "__l1_default__"

	shortStringMaxLen = 31
)

// ParseNumeric parses a non-negative integer written in decimal or 0x-prefixed hex.
func ParseNumeric(s string) (*big.Int, error) {
	if s == "" {
		return nil, ErrEmpty
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegative
	}
	digits, base := s, 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		digits, base = s[2:], 16
		if digits == "" {
			return nil, fmt.Errorf("invalid hex number %q", s)
		}
	}
	// big.Int accepts a leading sign
	if strings.ContainsAny(digits, "+-") {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	v, ok := new(big.Int).SetString(digits, base)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// ParseUint256 parses a numeric string that must fit in a Cairo u256.
func ParseUint256(s string) (*big.Int, error) {
	v, err := ParseNumeric(s)
	if err != nil {
		return nil, err
	}
	if v.Cmp(uint256Bound) >= 0 {
		return nil, fmt.Errorf("%w: %s does not fit in u256", ErrOutOfRange, s)
	}
	return v, nil
}

// Parse decodes a hex felt as returned by a Starknet node.
func Parse(s string) (*big.Int, error) {
	v, err := hexutil.DecodeBig(trimLeadingZeros(s))
	if err != nil {
		return nil, fmt.Errorf("decode felt %q: %w", s, err)
	}
	if v.Cmp(Prime) >= 0 {
		return nil, fmt.Errorf("%w: felt %s exceeds field prime", ErrOutOfRange, s)
	}
	return v, nil
}

// ParseSlice decodes every element with Parse.
func ParseSlice(in []string) ([]*big.Int, error) {
	out := make([]*big.Int, len(in))
	for i, s := range in {
		v, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// Hex encodes v as minimal 0x-prefixed lower-case hex, the form nodes expect.
func Hex(v *big.Int) string {
	if v == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(v)
}

// HexSlice encodes every element with Hex.
func HexSlice(in []*big.Int) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = Hex(v)
	}
	return out
}

// SplitUint256 splits v into the (low, high) 128-bit limbs of a Cairo u256.
func SplitUint256(v *big.Int) (low, high *big.Int) {
	low = new(big.Int).And(v, new(big.Int).Sub(limbBound, big.NewInt(1)))
	high = new(big.Int).Rsh(v, 128)
	return low, high
}

// JoinUint256 returns high*2^128 + low. Both limbs must be below 2^128.
func JoinUint256(low, high *big.Int) (*big.Int, error) {
	if low == nil || high == nil {
		return nil, fmt.Errorf("%w: missing u256 limb", ErrEmpty)
	}
	if low.Sign() < 0 || high.Sign() < 0 {
		return nil, ErrNegative
	}
	if low.Cmp(limbBound) >= 0 || high.Cmp(limbBound) >= 0 {
		return nil, fmt.Errorf("%w: u256 limb exceeds 128 bits", ErrOutOfRange)
	}
	out := new(big.Int).Lsh(high, 128)
	return out.Add(out, low), nil
}

// Selector returns the entry point selector for a function name, starknet_keccak(name).
func Selector(name string) *big.Int {
	if name == defaultEntryPoint || name == l1DefaultEntryPoint {
		return new(big.Int)
	}
	return StarknetKeccak([]byte(name))
}

// StarknetKeccak is keccak256 truncated to its low 250 bits.
func StarknetKeccak(data []byte) *big.Int {
	h := new(big.Int).SetBytes(crypto.Keccak256(data))
	return h.And(h, selectorMask)
}

// ShortString encodes an ASCII string of at most 31 bytes as a felt.
func ShortString(s string) (*big.Int, error) {
	if len(s) > shortStringMaxLen {
		return nil, fmt.Errorf("%w: short string %q longer than %d bytes", ErrOutOfRange, s, shortStringMaxLen)
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return nil, fmt.Errorf("short string %q is not ASCII", s)
		}
	}
	return new(big.Int).SetBytes([]byte(s)), nil
}

// MustShortString is ShortString for compile-time constants.
func MustShortString(s string) *big.Int {
	v, err := ShortString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// DecodeShortString is the inverse of ShortString.
func DecodeShortString(v *big.Int) string {
	return string(v.Bytes())
}

func trimLeadingZeros(s string) string {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return s
	}
	digits := strings.TrimLeft(s[2:], "0")
	if digits == "" {
		digits = "0"
	}
	return "0x" + digits
}
