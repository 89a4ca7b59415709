package keystore

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/chronoseal/capsule-go/internal/crypto"
)

// armorPrefix marks an encrypted key file.
const armorPrefix = "CSENC1\n"

// Argon2id parameters for the passphrase KDF. Stored alongside the
// ciphertext so they can be tuned without breaking existing files.
const (
	kdfName     = "argon2id"
	kdfTime     = 2
	kdfMemoryKB = 64 * 1024
	kdfThreads  = 1

	saltSize = 16
)

type envelope struct {
	Version     int    `json:"version"`
	KDF         string `json:"kdf"`
	KDFTime     uint32 `json:"kdf_time"`
	KDFMemoryKB uint32 `json:"kdf_memory_kb"`
	KDFThreads  uint8  `json:"kdf_threads"`
	Salt        string `json:"salt"`
	Nonce       string `json:"nonce"`
	Ciphertext  string `json:"ciphertext"`
}

func isArmored(data []byte) bool {
	return bytes.HasPrefix(data, []byte(armorPrefix))
}

// sealEnvelope encrypts plaintext under a passphrase-derived key using
// XChaCha20-Poly1305.
func sealEnvelope(plaintext, passphrase []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := argon2.IDKey(passphrase, salt, kdfTime, kdfMemoryKB, kdfThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	env := envelope{
		Version:     ArtifactVersion,
		KDF:         kdfName,
		KDFTime:     kdfTime,
		KDFMemoryKB: kdfMemoryKB,
		KDFThreads:  kdfThreads,
		Salt:        crypto.ToBase64URL(salt),
		Nonce:       crypto.ToBase64URL(nonce),
		Ciphertext:  crypto.ToBase64URL(aead.Seal(nil, nonce, plaintext, nil)),
	}

	data, err := json.Marshal(&env)
	if err != nil {
		return nil, err
	}
	return append([]byte(armorPrefix), data...), nil
}

// openEnvelope decrypts an armored key file with the passphrase.
func openEnvelope(data, passphrase []byte) ([]byte, error) {
	var env envelope
	if err := json.Unmarshal(bytes.TrimPrefix(data, []byte(armorPrefix)), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if env.Version != ArtifactVersion || env.KDF != kdfName {
		return nil, fmt.Errorf("%w: unsupported envelope", ErrCorrupted)
	}

	salt, err := crypto.FromBase64URL(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	nonce, err := crypto.FromBase64URL(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	ciphertext, err := crypto.FromBase64URL(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	key := argon2.IDKey(passphrase, salt, env.KDFTime, env.KDFMemoryKB, env.KDFThreads, chacha20poly1305.KeySize)
	defer zeroBytes(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("%w: bad nonce size", ErrCorrupted)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrPassphrase
	}
	return plaintext, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
