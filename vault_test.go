package chronoseal

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a settable clock for time-lock tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// newTestVault opens a vault in a temp directory and generates keys.
func newTestVault(t *testing.T, opts ...Option) *Vault {
	t.Helper()

	vault, err := Open(t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { vault.Close() })

	if _, err := vault.GenerateKeys(); err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	return vault
}

func TestOpenEmptyDir(t *testing.T) {
	_, err := Open("")
	if !errors.Is(err, ErrValidation) {
		t.Errorf("Open(\"\") error = %v, want ErrValidation", err)
	}
}

func TestOpenWithoutKeys(t *testing.T) {
	vault, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()

	if vault.HasKeys() {
		t.Error("HasKeys() = true for fresh vault, want false")
	}
	if _, err := vault.Keys(); !errors.Is(err, ErrKeysNotFound) {
		t.Errorf("Keys() error = %v, want ErrKeysNotFound", err)
	}
	if _, err := vault.CreateCapsule("msg", "2035-01-01"); !errors.Is(err, ErrKeysNotFound) {
		t.Errorf("CreateCapsule() error = %v, want ErrKeysNotFound", err)
	}
	if _, err := vault.DecryptCapsule(0); !errors.Is(err, ErrKeysNotFound) {
		t.Errorf("DecryptCapsule() error = %v, want ErrKeysNotFound", err)
	}

	// Listing works without keys; there is nothing to list yet.
	summaries, err := vault.ListCapsules()
	if err != nil {
		t.Fatalf("ListCapsules() error = %v", err)
	}
	if len(summaries) != 0 {
		t.Errorf("ListCapsules() returned %d capsules, want 0", len(summaries))
	}
}

func TestGenerateKeys(t *testing.T) {
	vault, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()

	info, err := vault.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}

	if words := strings.Fields(info.RecoveryPhrase); len(words) != 24 {
		t.Errorf("RecoveryPhrase has %d words, want 24", len(words))
	}
	if !strings.HasPrefix(info.Fingerprint, "qsc1") {
		t.Errorf("Fingerprint = %q, want qsc1 prefix", info.Fingerprint)
	}
	if !vault.HasKeys() {
		t.Error("HasKeys() = false after GenerateKeys")
	}

	// Keys() reports the same fingerprint but never the phrase.
	keys, err := vault.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if keys.Fingerprint != info.Fingerprint {
		t.Errorf("Keys().Fingerprint = %q, want %q", keys.Fingerprint, info.Fingerprint)
	}
	if keys.RecoveryPhrase != "" {
		t.Error("Keys() leaked the recovery phrase")
	}
}

func TestOpenLoadsExistingKeys(t *testing.T) {
	dir := t.TempDir()

	vault, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	info, err := vault.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	vault.Close()

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() after close error = %v", err)
	}
	defer reopened.Close()

	keys, err := reopened.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if keys.Fingerprint != info.Fingerprint {
		t.Errorf("reopened fingerprint = %q, want %q", keys.Fingerprint, info.Fingerprint)
	}
}

func TestRestoreKeysDeterministic(t *testing.T) {
	vaultA, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vaultA.Close()
	infoA, err := vaultA.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}

	vaultB, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vaultB.Close()
	infoB, err := vaultB.RestoreKeys(infoA.RecoveryPhrase)
	if err != nil {
		t.Fatalf("RestoreKeys() error = %v", err)
	}

	if infoB.Fingerprint != infoA.Fingerprint {
		t.Errorf("restored fingerprint = %q, want %q", infoB.Fingerprint, infoA.Fingerprint)
	}
}

func TestRestoreKeysInvalidPhrase(t *testing.T) {
	vault, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()

	if _, err := vault.RestoreKeys("not a valid phrase"); !errors.Is(err, ErrMnemonicInvalid) {
		t.Errorf("RestoreKeys() error = %v, want ErrMnemonicInvalid", err)
	}
}

func TestGenerateKeysRotates(t *testing.T) {
	vault, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()

	first, err := vault.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	second, err := vault.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() rotation error = %v", err)
	}

	if first.Fingerprint == second.Fingerprint {
		t.Error("rotation kept the same fingerprint")
	}
	if first.RecoveryPhrase == second.RecoveryPhrase {
		t.Error("rotation kept the same recovery phrase")
	}
}

func TestOpenWithPassphrase(t *testing.T) {
	dir := t.TempDir()

	vault, err := Open(dir, WithPassphrase("correct horse"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	info, err := vault.GenerateKeys()
	if err != nil {
		t.Fatalf("GenerateKeys() error = %v", err)
	}
	vault.Close()

	// Right passphrase opens.
	reopened, err := Open(dir, WithPassphrase("correct horse"))
	if err != nil {
		t.Fatalf("Open() with passphrase error = %v", err)
	}
	keys, err := reopened.Keys()
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	if keys.Fingerprint != info.Fingerprint {
		t.Errorf("fingerprint = %q, want %q", keys.Fingerprint, info.Fingerprint)
	}
	reopened.Close()

	// Wrong passphrase fails at Open.
	if _, err := Open(dir, WithPassphrase("battery staple")); !errors.Is(err, ErrPassphraseInvalid) {
		t.Errorf("Open() with wrong passphrase error = %v, want ErrPassphraseInvalid", err)
	}

	// Missing passphrase fails too; the files are unreadable without it.
	if _, err := Open(dir); !errors.Is(err, ErrPassphraseInvalid) {
		t.Errorf("Open() without passphrase error = %v, want ErrPassphraseInvalid", err)
	}
}

func TestVaultClose(t *testing.T) {
	vault := newTestVault(t)

	if err := vault.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Close is idempotent.
	if err := vault.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	if _, err := vault.CreateCapsule("msg", "2035-01-01"); !errors.Is(err, ErrVaultClosed) {
		t.Errorf("CreateCapsule() after close error = %v, want ErrVaultClosed", err)
	}
	if _, err := vault.ListCapsules(); !errors.Is(err, ErrVaultClosed) {
		t.Errorf("ListCapsules() after close error = %v, want ErrVaultClosed", err)
	}
	if _, err := vault.DecryptCapsule(0); !errors.Is(err, ErrVaultClosed) {
		t.Errorf("DecryptCapsule() after close error = %v, want ErrVaultClosed", err)
	}
	if _, err := vault.GenerateKeys(); !errors.Is(err, ErrVaultClosed) {
		t.Errorf("GenerateKeys() after close error = %v, want ErrVaultClosed", err)
	}
	if _, err := vault.Export(); !errors.Is(err, ErrVaultClosed) {
		t.Errorf("Export() after close error = %v, want ErrVaultClosed", err)
	}
}

func TestVaultDir(t *testing.T) {
	dir := t.TempDir()
	vault, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer vault.Close()

	if vault.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", vault.Dir(), dir)
	}
}

func TestConcurrentReaders(t *testing.T) {
	clock := newFakeClock(time.Date(2035, 6, 1, 12, 0, 0, 0, time.UTC))
	vault := newTestVault(t, WithClock(clock.Now))

	for i := 0; i < 5; i++ {
		if _, err := vault.CreateCapsule("concurrent message", "2035-01-01"); err != nil {
			t.Fatalf("CreateCapsule() error = %v", err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, 30)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := vault.ListCapsules(); err != nil {
				errs <- err
			}
			if _, err := vault.DecryptCapsule(2); err != nil {
				errs <- err
			}
			if _, err := vault.VerifyCapsule(4); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("concurrent read error = %v", err)
	}
}
