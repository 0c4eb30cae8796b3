package protocol

import (
	"encoding/base64"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	r := rand.New(rand.NewPCG(uint64(n), 42))
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(r.UintN(256))
	}
	return b
}

func TestEncodeModelDataRoundTrip(t *testing.T) {
	lengths := []int{0, 1, 2, 3, 4, 10, 8191, 8192, 8193, 3 * DefaultChunkSize, 1<<20 + 7}

	for _, n := range lengths {
		data := randomBytes(t, n)

		encoded := EncodeModelData(data)
		decoded, err := DecodeModelData(encoded)
		require.NoError(t, err, "length %d", n)

		assert.Equal(t, len(data), len(decoded), "length %d", n)
		assert.Equal(t, data, decoded, "length %d", n)
	}
}

func TestEncodeChunkedMatchesSinglePass(t *testing.T) {
	data := randomBytes(t, 50_000)
	want := base64.StdEncoding.EncodeToString(data)

	for _, chunk := range []int{-1, 0, 1, 2, 3, 4, 5, 7, 64, 1000, 8190, 8192, 49_999, 50_000, 100_000} {
		assert.Equal(t, want, EncodeChunked(data, chunk), "chunk size %d", chunk)
	}
}

func TestEncodeChunkedEveryLengthSmall(t *testing.T) {
	for n := 0; n <= 64; n++ {
		data := randomBytes(t, n)
		want := base64.StdEncoding.EncodeToString(data)
		for chunk := 1; chunk <= 10; chunk++ {
			require.Equal(t, want, EncodeChunked(data, chunk), "length %d chunk %d", n, chunk)
		}
	}
}
