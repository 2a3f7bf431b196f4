package xcrypto

import "encoding/base64"

var b64 = base64.StdEncoding

// B64Encode returns the standard-alphabet, padded base64 text the handshake
// frames carry.
func B64Encode(p []byte) string {
	return b64.EncodeToString(p)
}

// B64Decode is the inverse of B64Encode.
func B64Decode(s string) ([]byte, error) {
	return b64.DecodeString(s)
}
