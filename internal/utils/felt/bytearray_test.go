package felt

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func encodeByteArray(s string) []*big.Int {
	b := []byte(s)
	var words []*big.Int
	for len(b) >= bytes31 {
		words = append(words, new(big.Int).SetBytes(b[:bytes31]))
		b = b[bytes31:]
	}
	out := []*big.Int{big.NewInt(int64(len(words)))}
	out = append(out, words...)
	return append(out, new(big.Int).SetBytes(b), big.NewInt(int64(len(b))))
}

func TestDecodeByteArray(t *testing.T) {
	for _, s := range []string{
		"",
		"short",
		"https://example.com/nft.jpg",
		strings.Repeat("a", 31),
		"ipfs://bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi/1.json",
	} {
		got, err := DecodeByteArray(encodeByteArray(s))
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
}

func TestDecodeByteArray_Malformed(t *testing.T) {
	_, err := DecodeByteArray([]*big.Int{big.NewInt(0)})
	require.Error(t, err)

	// declares two words but carries one
	_, err = DecodeByteArray([]*big.Int{big.NewInt(2), big.NewInt(1), big.NewInt(0), big.NewInt(0)})
	require.Error(t, err)

	// pending length must be below 31
	_, err = DecodeByteArray([]*big.Int{big.NewInt(0), big.NewInt(0), big.NewInt(31)})
	require.Error(t, err)

	// pending word longer than declared length
	_, err = DecodeByteArray([]*big.Int{big.NewInt(0), big.NewInt(0xffff), big.NewInt(1)})
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestDecodeShortStrings(t *testing.T) {
	hexURI := "68747470733a2f2f6578616d706c652e636f6d2f6e66742e6a7067"
	v, ok := new(big.Int).SetString(hexURI, 16)
	require.True(t, ok)
	require.Equal(t, "https://example.com/nft.jpg", DecodeShortStrings([]*big.Int{v}))
}
