package outgoing

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPadPlaintext_Invariants(t *testing.T) {
	for _, n := range []int{0, 1, 17, 158, 159, 160, 161, 318, 319, 500, 4096} {
		m := bytes.Repeat([]byte{0xAB}, n)
		padded := padPlaintext(m)

		require.Equal(t, 159, len(padded)%160, "len %d", n)
		require.GreaterOrEqual(t, len(padded), n+1, "terminator must fit for len %d", n)
		require.True(t, bytes.Equal(padded[:n], m), "plaintext prefix for len %d", n)
		require.Equal(t, byte(0x80), padded[n], "terminator for len %d", n)
		for k := n + 1; k < len(padded); k++ {
			require.Equal(t, byte(0), padded[k], "zero tail at %d for len %d", k, n)
		}
	}
}

func TestPadPlaintext_ExactSizes(t *testing.T) {
	require.Len(t, padPlaintext(nil), 159)
	require.Len(t, padPlaintext(make([]byte, 158)), 159)
	require.Len(t, padPlaintext(make([]byte, 159)), 319)
	require.Len(t, padPlaintext(make([]byte, 318)), 319)
	require.Len(t, padPlaintext(make([]byte, 319)), 479)
}
