package address

import (
	"fmt"
	"math/big"
	"strings"
)

// Starknet contract addresses live below 2^251.
var upperBound = new(big.Int).Lsh(big.NewInt(1), 251)

const maxHexDigits = 64

// Validate reports whether s is a syntactically well-formed Starknet address:
// 0x followed by 1 to 64 hex digits with a value below 2^251.
// Existence on chain is not checked.
func Validate(s string) bool {
	_, ok := parse(s)
	return ok
}

// Normalize validates the address and returns its lower-case, zero-padded 66 char form.
// Starknet addresses are compared by value, so 0x1 and 0x0...01 normalize to the same string.
func Normalize(s string) (string, error) {
	v, ok := parse(s)
	if !ok {
		return "", fmt.Errorf("invalid address: %q", s)
	}
	return fmt.Sprintf("0x%064x", v), nil
}

// ToBig returns the numeric value of a valid address.
func ToBig(s string) (*big.Int, error) {
	v, ok := parse(s)
	if !ok {
		return nil, fmt.Errorf("invalid address: %q", s)
	}
	return v, nil
}

func parse(s string) (*big.Int, bool) {
	if len(s) < 3 || (s[:2] != "0x" && s[:2] != "0X") {
		return nil, false
	}
	digits := s[2:]
	if len(digits) > maxHexDigits {
		return nil, false
	}
	if strings.IndexFunc(digits, func(r rune) bool { return !isHex(r) }) >= 0 {
		return nil, false
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok || v.Cmp(upperBound) >= 0 {
		return nil, false
	}
	return v, true
}

func isHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
