package keystore

import (
	"github.com/mr-tron/base58/base58"
	"golang.org/x/crypto/blake2b"
)

// fingerprintPrefix makes a capsule key fingerprint recognizable on sight.
const fingerprintPrefix = "qsc1"

// Fingerprint returns a short human-comparable identifier for a key pair:
// the BLAKE2b-256 hash of both public keys, base58-encoded.
func Fingerprint(kemPublicKey, signPublicKey []byte) string {
	material := make([]byte, 0, len(kemPublicKey)+len(signPublicKey))
	material = append(material, kemPublicKey...)
	material = append(material, signPublicKey...)

	sum := blake2b.Sum256(material)
	return fingerprintPrefix + base58.Encode(sum[:])
}
