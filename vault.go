package chronoseal

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chronoseal/capsule-go/internal/keystore"
	"github.com/chronoseal/capsule-go/internal/store"
)

// Vault is a handle to one capsule vault: a key pair plus an append-only
// collection of sealed capsules under a single directory.
//
// A Vault is safe for concurrent use. Mutating operations (key generation,
// sealing, import) serialize behind a write lock; reads run concurrently
// with each other but never with a write.
type Vault struct {
	cfg vaultConfig
	dir string

	keyStore *keystore.Store
	capStore store.Store
	logger   *logrus.Logger

	mu     sync.RWMutex
	closed bool
	keys   *keystore.KeyPair
}

// KeyInfo describes the vault's key pair.
type KeyInfo struct {
	// Fingerprint identifies the key pair.
	Fingerprint string
	// RecoveryPhrase is the BIP-39 phrase the keys derive from. It is set
	// only by GenerateKeys and is never persisted; record it or lose it.
	RecoveryPhrase string
}

// Open opens a vault rooted at dir, creating the directory layout on first
// use. A vault without keys opens fine; operations that need keys fail with
// ErrKeysNotFound until GenerateKeys or RestoreKeys runs.
func Open(dir string, opts ...Option) (*Vault, error) {
	if dir == "" {
		return nil, &ValidationError{Errors: []string{"vault directory is required"}}
	}

	cfg := vaultConfig{
		backend: BackendFiles,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = defaultLogger()
	}

	var capStore store.Store
	var err error
	switch cfg.backend {
	case BackendFiles:
		capStore, err = store.NewFS(filepath.Join(dir, "capsules"))
	case BackendSQLite:
		capStore, err = store.NewSQLite(filepath.Join(dir, "capsules.db"))
	default:
		return nil, &ValidationError{Errors: []string{fmt.Sprintf("unknown store backend %q", cfg.backend)}}
	}
	if err != nil {
		return nil, &StorageError{Op: "open capsule store", Err: err}
	}

	v := &Vault{
		cfg:      cfg,
		dir:      dir,
		keyStore: keystore.New(filepath.Join(dir, "keys"), cfg.passphrase),
		capStore: capStore,
		logger:   cfg.logger,
	}

	if v.keyStore.Exists() {
		keys, err := v.keyStore.Load()
		if err != nil {
			capStore.Close()
			return nil, wrapKeyError(err)
		}
		v.keys = keys
	}

	v.logger.WithFields(logrus.Fields{
		"dir":      dir,
		"backend":  string(cfg.backend),
		"has_keys": v.keys != nil,
	}).Debug("vault opened")

	return v, nil
}

// Close releases the vault's resources. Further operations fail with
// ErrVaultClosed. Closing an already-closed vault is a no-op.
func (v *Vault) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil
	}
	v.closed = true

	if err := v.capStore.Close(); err != nil {
		return &StorageError{Op: "close capsule store", Err: err}
	}
	return nil
}

// GenerateKeys produces a fresh encapsulation pair and signing pair, persists
// them, and returns the recovery phrase they derive from. Any existing pair
// is overwritten: capsules sealed under it become permanently undecryptable
// unless its phrase was kept.
func (v *Vault) GenerateKeys() (*KeyInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrVaultClosed
	}

	keys, mnemonic, err := v.keyStore.Generate()
	if err != nil {
		return nil, wrapKeyError(err)
	}
	v.keys = keys

	v.logger.WithFields(logrus.Fields{
		"fingerprint": keys.Fingerprint(),
	}).Info("key pair generated")

	return &KeyInfo{
		Fingerprint:    keys.Fingerprint(),
		RecoveryPhrase: mnemonic,
	}, nil
}

// RestoreKeys rebuilds and persists the key pair from a recovery phrase,
// overwriting any existing pair.
func (v *Vault) RestoreKeys(mnemonic string) (*KeyInfo, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrVaultClosed
	}

	keys, err := v.keyStore.Restore(mnemonic)
	if err != nil {
		return nil, wrapKeyError(err)
	}
	v.keys = keys

	v.logger.WithFields(logrus.Fields{
		"fingerprint": keys.Fingerprint(),
	}).Info("key pair restored")

	return &KeyInfo{Fingerprint: keys.Fingerprint()}, nil
}

// Keys returns information about the current key pair.
func (v *Vault) Keys() (*KeyInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}
	if v.keys == nil {
		return nil, ErrKeysNotFound
	}
	return &KeyInfo{Fingerprint: v.keys.Fingerprint()}, nil
}

// HasKeys reports whether the vault has a key pair.
func (v *Vault) HasKeys() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.keys != nil
}

// Dir returns the vault's root directory.
func (v *Vault) Dir() string {
	return v.dir
}

func defaultLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}
