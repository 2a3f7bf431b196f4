// Package xcrypto holds the primitives the session handshake needs: DH key
// exchange over RFC 3526 group 14, the HMAC-MD5-of-MD5 reconnect digest,
// and the base64 encoding the handshake text frames use.
package xcrypto

import (
	"crypto/rand"
	"math/big"
)

// group14PrimeHex is the RFC 3526 2048-bit MODP group 14 prime.
const group14PrimeHex = "" +
	"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD129024E088A67CC74" +
	"020BBEA63B139B22514A08798E3404DDEF9519B3CD3A431B302B0A6DF25F1437" +
	"4FE1356D6D51C245E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
	"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3DC2007CB8A163BF05" +
	"98DA48361C55D39A69163FA8FD24CF5F83655D23DCA3AD961C62F356208552BB" +
	"9ED529077096966D670C354E4ABC9804F1746C08CA18217C32905E462E36CE3B" +
	"E39E772C180E86039B2783A2EC07A28FB5C55DF06F4C52C9DE2BCBF695581718" +
	"3995497CEA956AE515D2261898FA051015728E5A8AACAA68FFFFFFFFFFFFFFFF"

var (
	group14Prime     *big.Int
	group14Generator = big.NewInt(2)
)

func init() {
	p, ok := new(big.Int).SetString(group14PrimeHex, 16)
	if !ok {
		panic("xcrypto: malformed group 14 prime constant")
	}
	group14Prime = p
}

const (
	// PrivateKeyBytes is the width of cryptographic randomness used for the
	// client's DH exponent.
	PrivateKeyBytes = 32
	// PublicKeyBytes is the fixed big-endian width of a group 14 public
	// value: 2048 bits.
	PublicKeyBytes = 256
	// SharedSecretBytes is how much of g^(ab) mod p is kept as the
	// session's shared secret.
	SharedSecretBytes = 32
)

// KeyPair is one side's ephemeral Diffie-Hellman exponent.
type KeyPair struct {
	priv *big.Int
}

// GenerateKeyPair draws a fresh private exponent from a CSPRNG.
func GenerateKeyPair() (*KeyPair, error) {
	buf := make([]byte, PrivateKeyBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return &KeyPair{priv: new(big.Int).SetBytes(buf)}, nil
}

// Public returns g^x mod p as a 256-byte big-endian value.
func (k *KeyPair) Public() []byte {
	pub := new(big.Int).Exp(group14Generator, k.priv, group14Prime)
	return leftPad(pub.Bytes(), PublicKeyBytes)
}

// SharedSecret computes peerPub^x mod p and returns its leading 32 bytes.
func (k *KeyPair) SharedSecret(peerPub []byte) []byte {
	peer := new(big.Int).SetBytes(peerPub)
	shared := new(big.Int).Exp(peer, k.priv, group14Prime)
	full := leftPad(shared.Bytes(), PublicKeyBytes)
	return full[:SharedSecretBytes]
}

func leftPad(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}
