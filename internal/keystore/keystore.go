// Package keystore generates, persists, and loads the two capsule key pairs:
// an ML-KEM-768 encapsulation pair and an ML-DSA-65 signing pair. Both are
// derived from a single BIP-39 recovery phrase, so a vault can be rebuilt
// from the phrase alone.
package keystore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chronoseal/capsule-go/internal/crypto"
)

const (
	// ArtifactVersion is the key file format version.
	ArtifactVersion = 1

	kemFileName  = "kem.json"
	signFileName = "sign.json"

	kemAlgorithm  = "ML-KEM-768"
	signAlgorithm = "ML-DSA-65"
)

var (
	// ErrNotFound is returned when no key material exists at the store path.
	ErrNotFound = errors.New("keys not found")
	// ErrCorrupted is returned when stored bytes do not parse as valid key
	// material for the expected algorithm and sizes.
	ErrCorrupted = errors.New("key material corrupted")
	// ErrPassphrase is returned when an encrypted key file cannot be opened
	// with the configured passphrase.
	ErrPassphrase = errors.New("invalid passphrase")
	// ErrMnemonic is returned when a recovery phrase fails checksum or
	// wordlist validation.
	ErrMnemonic = errors.New("invalid recovery phrase")
	// ErrGeneration is returned when fresh key material cannot be produced,
	// for example when entropy or key derivation fails.
	ErrGeneration = errors.New("key generation failed")
)

// KeyPair bundles the encapsulation and signing key pairs. The secret halves
// never leave the process except inside the key store's own files.
type KeyPair struct {
	KEM  *crypto.Keypair
	Sign *crypto.SigningKeypair
}

// Fingerprint returns the public fingerprint of the key pair.
func (kp *KeyPair) Fingerprint() string {
	return Fingerprint(kp.KEM.PublicKey, kp.Sign.PublicKey)
}

// keyArtifact is the on-disk JSON shape of one key pair.
type keyArtifact struct {
	Version   int    `json:"version"`
	Algorithm string `json:"algorithm"`
	CreatedAt string `json:"created_at"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// Store persists key pairs under a directory, one JSON artifact per pair.
// When a passphrase is set, artifacts are sealed in an encrypted envelope.
type Store struct {
	dir        string
	passphrase []byte
}

// New creates a store rooted at dir. A nil or empty passphrase stores key
// files unencrypted; file permissions are the only protection then.
func New(dir string, passphrase []byte) *Store {
	return &Store{dir: dir, passphrase: passphrase}
}

func (s *Store) kemPath() string {
	return filepath.Join(s.dir, kemFileName)
}

func (s *Store) signPath() string {
	return filepath.Join(s.dir, signFileName)
}

// Exists reports whether both key artifacts are present.
func (s *Store) Exists() bool {
	if _, err := os.Stat(s.kemPath()); err != nil {
		return false
	}
	if _, err := os.Stat(s.signPath()); err != nil {
		return false
	}
	return true
}

// Generate creates a fresh recovery phrase, derives both key pairs from it,
// and persists them, overwriting any existing pair. Capsules sealed under a
// previous pair become permanently undecryptable unless that phrase was kept.
//
// The returned phrase is shown once; it is never written to disk.
func (s *Store) Generate() (*KeyPair, string, error) {
	mnemonic, err := NewMnemonic()
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	kp, err := DeriveKeyPair(mnemonic)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if err := s.save(kp); err != nil {
		return nil, "", err
	}
	return kp, mnemonic, nil
}

// Restore derives the key pairs from an existing recovery phrase and
// persists them, overwriting any existing pair.
func (s *Store) Restore(mnemonic string) (*KeyPair, error) {
	kp, err := DeriveKeyPair(mnemonic)
	if err != nil {
		return nil, err
	}

	if err := s.save(kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// Put persists an externally supplied key pair, overwriting any existing
// pair. Used when importing a vault.
func (s *Store) Put(kp *KeyPair) error {
	return s.save(kp)
}

// Load reads a previously persisted key pair.
func (s *Store) Load() (*KeyPair, error) {
	kemArt, err := s.readArtifact(s.kemPath(), kemAlgorithm)
	if err != nil {
		return nil, err
	}
	signArt, err := s.readArtifact(s.signPath(), signAlgorithm)
	if err != nil {
		return nil, err
	}

	kemSecret, err := crypto.FromBase64URL(kemArt.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	kemPublic, err := crypto.FromBase64URL(kemArt.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	kem, err := crypto.NewKeypairFromBytes(kemSecret, kemPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	signSecret, err := crypto.FromBase64URL(signArt.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	signPublic, err := crypto.FromBase64URL(signArt.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	sign, err := crypto.NewSigningKeypairFromBytes(signSecret, signPublic)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	return &KeyPair{KEM: kem, Sign: sign}, nil
}

func (s *Store) readArtifact(path, algorithm string) (*keyArtifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if isArmored(data) {
		if len(s.passphrase) == 0 {
			return nil, fmt.Errorf("%w: key file is encrypted", ErrPassphrase)
		}
		data, err = openEnvelope(data, s.passphrase)
		if err != nil {
			return nil, err
		}
	}

	var art keyArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if art.Version != ArtifactVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupted, art.Version)
	}
	if art.Algorithm != algorithm {
		return nil, fmt.Errorf("%w: algorithm %q, want %q", ErrCorrupted, art.Algorithm, algorithm)
	}
	return &art, nil
}

func (s *Store) save(kp *KeyPair) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}

	createdAt := time.Now().UTC().Format(time.RFC3339)

	kemArt := keyArtifact{
		Version:   ArtifactVersion,
		Algorithm: kemAlgorithm,
		CreatedAt: createdAt,
		PublicKey: kp.KEM.PublicKeyB64,
		SecretKey: crypto.ToBase64URL(kp.KEM.SecretKey),
	}
	signArt := keyArtifact{
		Version:   ArtifactVersion,
		Algorithm: signAlgorithm,
		CreatedAt: createdAt,
		PublicKey: kp.Sign.PublicKeyB64,
		SecretKey: crypto.ToBase64URL(kp.Sign.SecretKey),
	}

	if err := s.writeArtifact(s.kemPath(), &kemArt); err != nil {
		return err
	}
	return s.writeArtifact(s.signPath(), &signArt)
}

func (s *Store) writeArtifact(path string, art *keyArtifact) error {
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return err
	}

	if len(s.passphrase) > 0 {
		data, err = sealEnvelope(data, s.passphrase)
		if err != nil {
			return err
		}
	}

	return os.WriteFile(path, data, 0o600)
}
