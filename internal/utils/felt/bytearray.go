package felt

import (
	"fmt"
	"math/big"
)

const bytes31 = 31

// DecodeByteArray decodes a serialized Cairo ByteArray:
// [data_len, data_0..data_{n-1}, pending_word, pending_word_len], where every data word
// holds 31 big-endian bytes.
func DecodeByteArray(felts []*big.Int) (string, error) {
	if len(felts) < 3 {
		return "", fmt.Errorf("byte array: need at least 3 felts, got %d", len(felts))
	}
	if !felts[0].IsUint64() {
		return "", fmt.Errorf("byte array: invalid data length %s", felts[0])
	}
	n := felts[0].Uint64()
	if uint64(len(felts)) != n+3 {
		return "", fmt.Errorf("byte array: declared %d words but got %d felts", n, len(felts))
	}

	pendingLen := felts[n+2]
	if !pendingLen.IsUint64() || pendingLen.Uint64() >= bytes31 {
		return "", fmt.Errorf("byte array: invalid pending word length %s", pendingLen)
	}

	out := make([]byte, 0, int(n)*bytes31+int(pendingLen.Uint64()))
	for i := uint64(0); i < n; i++ {
		word, err := wordBytes(felts[1+i], bytes31)
		if err != nil {
			return "", fmt.Errorf("byte array word %d: %w", i, err)
		}
		out = append(out, word...)
	}
	pending, err := wordBytes(felts[n+1], int(pendingLen.Uint64()))
	if err != nil {
		return "", fmt.Errorf("byte array pending word: %w", err)
	}
	return string(append(out, pending...)), nil
}

// DecodeShortStrings concatenates a felt array where every element is a short string,
// the pre-ByteArray convention for returning long strings.
func DecodeShortStrings(felts []*big.Int) string {
	var out []byte
	for _, f := range felts {
		out = append(out, f.Bytes()...)
	}
	return string(out)
}

func wordBytes(v *big.Int, size int) ([]byte, error) {
	if v.Sign() < 0 || v.BitLen() > size*8 {
		return nil, fmt.Errorf("%w: word does not fit in %d bytes", ErrOutOfRange, size)
	}
	return v.FillBytes(make([]byte, size)), nil
}
