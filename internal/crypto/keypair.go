package crypto

import (
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
)

// randReader is the random source used for key generation and encapsulation.
// It defaults to nil (which uses crypto/rand) but can be overridden for testing.
var randReader io.Reader

// Keypair represents an ML-KEM-768 keypair for key encapsulation.
type Keypair struct {
	// PublicKey is the raw ML-KEM-768 public key bytes.
	PublicKey []byte
	// SecretKey is the raw ML-KEM-768 secret key bytes.
	SecretKey []byte
	// PublicKeyB64 is the public key encoded as URL-safe base64.
	PublicKeyB64 string
}

// GenerateKeypair creates a new ML-KEM-768 keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := mlkem768.GenerateKeyPair(randReader)
	if err != nil {
		return nil, err
	}

	// MarshalBinary never fails for valid keys from GenerateKeyPair
	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{
		PublicKey:    pubBytes,
		SecretKey:    privBytes,
		PublicKeyB64: ToBase64URL(pubBytes),
	}, nil
}

// NewKeypairFromSeed deterministically derives an ML-KEM-768 keypair from a
// 64-byte seed. The same seed always yields the same keypair.
func NewKeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != MLKEMSeedSize {
		return nil, ErrInvalidSeedSize
	}

	pub, priv := mlkem768.NewKeyFromSeed(seed)

	pubBytes, _ := pub.MarshalBinary()
	privBytes, _ := priv.MarshalBinary()

	return &Keypair{
		PublicKey:    pubBytes,
		SecretKey:    privBytes,
		PublicKeyB64: ToBase64URL(pubBytes),
	}, nil
}

// KeypairFromSecretKey reconstructs a keypair from the secret key.
// The public key is embedded in the secret key at offset 1152.
func KeypairFromSecretKey(secretKey []byte) (*Keypair, error) {
	if len(secretKey) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}

	publicKey := make([]byte, MLKEMPublicKeySize)
	copy(publicKey, secretKey[PublicKeyOffset:PublicKeyOffset+MLKEMPublicKeySize])

	return &Keypair{
		PublicKey:    publicKey,
		SecretKey:    secretKey,
		PublicKeyB64: ToBase64URL(publicKey),
	}, nil
}

// NewKeypairFromBytes creates a keypair from raw bytes.
func NewKeypairFromBytes(secretKeyBytes, publicKeyBytes []byte) (*Keypair, error) {
	if len(secretKeyBytes) != MLKEMSecretKeySize {
		return nil, ErrInvalidSecretKeySize
	}
	if len(publicKeyBytes) != MLKEMPublicKeySize {
		return nil, ErrInvalidPublicKeySize
	}

	// Validate that the secret key parses as ML-KEM-768 key material
	priv := &mlkem768.PrivateKey{}
	if err := priv.Unpack(secretKeyBytes); err != nil {
		return nil, err
	}

	return &Keypair{
		PublicKey:    publicKeyBytes,
		SecretKey:    secretKeyBytes,
		PublicKeyB64: ToBase64URL(publicKeyBytes),
	}, nil
}

// Encapsulate runs ML-KEM-768 encapsulation against a public key, producing
// a fresh ciphertext and the 32-byte shared secret it encapsulates.
func Encapsulate(publicKey []byte) (encapsulatedKey, sharedSecret []byte, err error) {
	if len(publicKey) != MLKEMPublicKeySize {
		return nil, nil, ErrInvalidPublicKeySize
	}

	var pub mlkem768.PublicKey
	if err := pub.Unpack(publicKey); err != nil {
		return nil, nil, err
	}

	// nil seed makes EncapsulateTo draw from crypto/rand
	var seed []byte
	if randReader != nil {
		seed = make([]byte, mlkem768.EncapsulationSeedSize)
		if _, err := io.ReadFull(randReader, seed); err != nil {
			return nil, nil, err
		}
	}

	encapsulatedKey = make([]byte, MLKEMCiphertextSize)
	sharedSecret = make([]byte, MLKEMSharedKeySize)
	pub.EncapsulateTo(encapsulatedKey, sharedSecret, seed)

	return encapsulatedKey, sharedSecret, nil
}

// Decapsulate decapsulates a shared secret from the encapsulated key.
func (k *Keypair) Decapsulate(encapsulatedKey []byte) ([]byte, error) {
	if len(encapsulatedKey) != MLKEMCiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}

	var privKey mlkem768.PrivateKey
	if err := privKey.Unpack(k.SecretKey); err != nil {
		return nil, err
	}

	sharedSecret := make([]byte, MLKEMSharedKeySize)
	privKey.DecapsulateTo(sharedSecret, encapsulatedKey)

	return sharedSecret, nil
}

// ValidateKeypair validates that a keypair has the correct structure and sizes.
// Returns true if all validations pass, false otherwise.
func ValidateKeypair(keypair *Keypair) bool {
	if keypair == nil {
		return false
	}

	if keypair.PublicKey == nil || keypair.SecretKey == nil || keypair.PublicKeyB64 == "" {
		return false
	}

	if len(keypair.PublicKey) != MLKEMPublicKeySize {
		return false
	}

	if len(keypair.SecretKey) != MLKEMSecretKeySize {
		return false
	}

	decoded, err := FromBase64URL(keypair.PublicKeyB64)
	if err != nil {
		return false
	}

	if len(decoded) != len(keypair.PublicKey) {
		return false
	}

	for i := range decoded {
		if decoded[i] != keypair.PublicKey[i] {
			return false
		}
	}

	return true
}
