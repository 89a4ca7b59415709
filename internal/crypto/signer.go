package crypto

import (
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
)

// SigningKeypair represents an ML-DSA-65 keypair for digital signatures.
type SigningKeypair struct {
	// PublicKey is the raw ML-DSA-65 public key bytes.
	PublicKey []byte
	// SecretKey is the raw ML-DSA-65 secret key bytes.
	SecretKey []byte
	// PublicKeyB64 is the public key encoded as URL-safe base64.
	PublicKeyB64 string
}

// GenerateSigningKeypair creates a new ML-DSA-65 keypair.
func GenerateSigningKeypair() (*SigningKeypair, error) {
	pub, priv, err := mldsa65.GenerateKey(randReader)
	if err != nil {
		return nil, err
	}

	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &SigningKeypair{
		PublicKey:    pubBytes,
		SecretKey:    privBytes,
		PublicKeyB64: ToBase64URL(pubBytes),
	}, nil
}

// NewSigningKeypairFromSeed deterministically derives an ML-DSA-65 keypair
// from a 32-byte seed. The same seed always yields the same keypair.
func NewSigningKeypairFromSeed(seed []byte) (*SigningKeypair, error) {
	if len(seed) != MLDSASeedSize {
		return nil, ErrInvalidSeedSize
	}

	var seedBuf [mldsa65.SeedSize]byte
	copy(seedBuf[:], seed)

	pub, priv := mldsa65.NewKeyFromSeed(&seedBuf)

	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &SigningKeypair{
		PublicKey:    pubBytes,
		SecretKey:    privBytes,
		PublicKeyB64: ToBase64URL(pubBytes),
	}, nil
}

// NewSigningKeypairFromBytes creates a signing keypair from raw bytes.
func NewSigningKeypairFromBytes(secretKeyBytes, publicKeyBytes []byte) (*SigningKeypair, error) {
	if len(secretKeyBytes) != MLDSASecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}
	if len(publicKeyBytes) != MLDSAPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}

	privKey := &mldsa65.PrivateKey{}
	if err := privKey.UnmarshalBinary(secretKeyBytes); err != nil {
		return nil, err
	}

	return &SigningKeypair{
		PublicKey:    publicKeyBytes,
		SecretKey:    secretKeyBytes,
		PublicKeyB64: ToBase64URL(publicKeyBytes),
	}, nil
}

// Sign signs a message with the secret key. Signing is randomized, so two
// signatures over the same message differ but both verify.
func (s *SigningKeypair) Sign(message []byte) ([]byte, error) {
	privKey := &mldsa65.PrivateKey{}
	if err := privKey.UnmarshalBinary(s.SecretKey); err != nil {
		return nil, err
	}

	signature := make([]byte, MLDSASignatureSize)
	if err := mldsa65.SignTo(privKey, message, nil, true, signature); err != nil {
		return nil, err
	}

	return signature, nil
}

// Verify checks an ML-DSA-65 signature over a message.
//
// Returns nil if the signature is valid, ErrSignatureVerificationFailed
// otherwise.
func Verify(publicKey, message, signature []byte) error {
	if len(publicKey) != MLDSAPublicKeySize {
		return ErrInvalidPublicKeySize
	}
	if len(signature) != MLDSASignatureSize {
		return ErrInvalidSignatureSize
	}

	pubKey := &mldsa65.PublicKey{}
	if err := pubKey.UnmarshalBinary(publicKey); err != nil {
		return err
	}

	if !mldsa65.Verify(pubKey, message, nil, signature) {
		return ErrSignatureVerificationFailed
	}

	return nil
}
