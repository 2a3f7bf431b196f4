package xcrypto

import (
	"crypto/hmac"
	"crypto/md5"
)

// ReconnectDigest computes HMAC-MD5(secret, MD5(content)) — the reconnect
// handshake authenticator. Hashing content before MACing it is non-standard
// and must be reproduced exactly; this is not HMAC-MD5(content).
func ReconnectDigest(secret, content []byte) []byte {
	sum := md5.Sum(content)
	mac := hmac.New(md5.New, secret)
	mac.Write(sum[:])
	return mac.Sum(nil)
}
