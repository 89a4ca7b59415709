package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// NewNonce returns a fresh random 96-bit AES-GCM nonce.
func NewNonce() ([]byte, error) {
	r := randReader
	if r == nil {
		r = rand.Reader
	}

	nonce := make([]byte, AESNonceSize)
	if _, err := io.ReadFull(r, nonce); err != nil {
		return nil, err
	}

	return nonce, nil
}

// EncryptAESGCM encrypts plaintext with AES-256-GCM. The additional data is
// bound into the authentication tag without being encrypted. Ciphertext and
// tag are returned separately.
func EncryptAESGCM(key, nonce, plaintext, additionalData []byte) (ciphertext, tag []byte, err error) {
	if len(key) != AESKeySize {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(nonce) != AESNonceSize {
		return nil, nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	sealed := aesgcm.Seal(nil, nonce, plaintext, additionalData)

	// Seal appends the 16-byte tag to the ciphertext
	split := len(sealed) - AESTagSize
	return sealed[:split], sealed[split:], nil
}

// DecryptAESGCM decrypts AES-256-GCM ciphertext, authenticating the tag over
// both the ciphertext and the additional data.
//
// Returns ErrDecryptionFailed when authentication fails.
func DecryptAESGCM(key, nonce, ciphertext, tag, additionalData []byte) ([]byte, error) {
	if len(key) != AESKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), AESKeySize)
	}
	if len(nonce) != AESNonceSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidNonceSize, len(nonce), AESNonceSize)
	}
	if len(tag) != AESTagSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidTagSize, len(tag), AESTagSize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := aesgcm.Open(nil, nonce, sealed, additionalData)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	return plaintext, nil
}
