package protocol

import (
	"encoding/base64"
	"strings"
)

// DefaultChunkSize is the window used when encoding model data.
const DefaultChunkSize = 8 * 1024

// EncodeModelData returns the standard base64 encoding of data.
func EncodeModelData(data []byte) string {
	return EncodeChunked(data, DefaultChunkSize)
}

// EncodeChunked base64-encodes data by feeding it to a streaming encoder in
// windows of chunkSize bytes. The result does not depend on chunkSize.
// A non-positive chunkSize encodes in one pass.
func EncodeChunked(data []byte, chunkSize int) string {
	if chunkSize <= 0 || chunkSize > len(data) {
		chunkSize = len(data)
	}

	var sb strings.Builder
	sb.Grow(base64.StdEncoding.EncodedLen(len(data)))

	// strings.Builder never returns a write error.
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	for off := 0; off < len(data); off += chunkSize {
		end := min(off+chunkSize, len(data))
		_, _ = enc.Write(data[off:end])
	}
	_ = enc.Close()

	return sb.String()
}

// DecodeModelData reverses EncodeModelData.
func DecodeModelData(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
