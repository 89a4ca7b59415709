package chronoseal

import (
	"time"

	"github.com/sirupsen/logrus"
)

// StoreBackend specifies how capsule records are persisted.
type StoreBackend string

const (
	// BackendFiles stores one record file per capsule under the vault
	// directory. This is the default.
	BackendFiles StoreBackend = "files"
	// BackendSQLite stores records in a single SQLite database file.
	BackendSQLite StoreBackend = "sqlite"
)

const (
	defaultPollInterval = 30 * time.Second
)

// vaultConfig holds configuration for the vault.
type vaultConfig struct {
	backend    StoreBackend
	passphrase []byte
	clock      func() time.Time
	logger     *logrus.Logger
}

// waitConfig holds configuration for waiting on capsule unlocks.
type waitConfig struct {
	timeout      time.Duration
	pollInterval time.Duration
}

// Option configures the vault.
type Option func(*vaultConfig)

// WaitOption configures unlock waiting.
type WaitOption func(*waitConfig)

// WithStoreBackend selects the capsule record backend.
func WithStoreBackend(backend StoreBackend) Option {
	return func(c *vaultConfig) {
		c.backend = backend
	}
}

// WithSQLiteStore stores capsule records in a SQLite database instead of
// one file per capsule.
func WithSQLiteStore() Option {
	return WithStoreBackend(BackendSQLite)
}

// WithPassphrase encrypts key files at rest under the given passphrase.
// A vault opened without the matching passphrase cannot load its keys.
func WithPassphrase(passphrase string) Option {
	return func(c *vaultConfig) {
		c.passphrase = []byte(passphrase)
	}
}

// WithClock sets the time source consulted for sealing timestamps and
// time-lock decisions. Default: time.Now.
//
// The time-lock is advisory: whoever controls the clock controls it.
func WithClock(clock func() time.Time) Option {
	return func(c *vaultConfig) {
		c.clock = clock
	}
}

// WithLogger sets the logger used for vault operations.
func WithLogger(logger *logrus.Logger) Option {
	return func(c *vaultConfig) {
		c.logger = logger
	}
}

// WithWaitTimeout bounds how long an unlock wait may block. Zero means no
// bound beyond the caller's context.
func WithWaitTimeout(timeout time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.timeout = timeout
	}
}

// WithPollInterval sets how often an unlock wait re-checks the clock.
// Default: 30 seconds.
func WithPollInterval(interval time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.pollInterval = interval
	}
}
