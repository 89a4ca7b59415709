package keystore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateAndLoad(t *testing.T) {
	store := New(t.TempDir(), nil)

	if store.Exists() {
		t.Fatal("Exists() = true before Generate()")
	}

	kp, mnemonic, err := store.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if words := strings.Fields(mnemonic); len(words) != 24 {
		t.Errorf("recovery phrase has %d words, want 24", len(words))
	}
	if !store.Exists() {
		t.Error("Exists() = false after Generate()")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !bytes.Equal(loaded.KEM.SecretKey, kp.KEM.SecretKey) {
		t.Error("loaded KEM secret key differs from generated")
	}
	if !bytes.Equal(loaded.Sign.SecretKey, kp.Sign.SecretKey) {
		t.Error("loaded signing secret key differs from generated")
	}
	if loaded.Fingerprint() != kp.Fingerprint() {
		t.Error("loaded fingerprint differs from generated")
	}
}

func TestLoadNotFound(t *testing.T) {
	store := New(t.TempDir(), nil)

	_, err := store.Load()
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestRestoreRebuildsSameKeys(t *testing.T) {
	first := New(t.TempDir(), nil)
	kp, mnemonic, err := first.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	second := New(t.TempDir(), nil)
	restored, err := second.Restore(mnemonic)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}

	if !bytes.Equal(restored.KEM.SecretKey, kp.KEM.SecretKey) {
		t.Error("restored KEM secret key differs from original")
	}
	if !bytes.Equal(restored.Sign.SecretKey, kp.Sign.SecretKey) {
		t.Error("restored signing secret key differs from original")
	}
	if restored.Fingerprint() != kp.Fingerprint() {
		t.Error("restored fingerprint differs from original")
	}
}

func TestRestoreInvalidMnemonic(t *testing.T) {
	store := New(t.TempDir(), nil)

	for _, phrase := range []string{
		"",
		"not a real phrase",
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon",
	} {
		if _, err := store.Restore(phrase); !errors.Is(err, ErrMnemonic) {
			t.Errorf("Restore(%q) error = %v, want ErrMnemonic", phrase, err)
		}
	}
}

func TestGenerateOverwrites(t *testing.T) {
	store := New(t.TempDir(), nil)

	first, _, err := store.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, _, err := store.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if first.Fingerprint() == second.Fingerprint() {
		t.Error("two generations produced the same fingerprint")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Fingerprint() != second.Fingerprint() {
		t.Error("Load() did not return the most recent pair")
	}
}

func TestPassphraseProtection(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, []byte("correct horse"))

	kp, _, err := store.Generate()
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "kem.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !isArmored(raw) {
		t.Fatal("key file written without envelope despite passphrase")
	}
	if bytes.Contains(raw, []byte(kp.KEM.PublicKeyB64)) {
		t.Error("armored key file leaks key material")
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Fingerprint() != kp.Fingerprint() {
		t.Error("loaded fingerprint differs from generated")
	}

	if _, err := New(dir, []byte("wrong")).Load(); !errors.Is(err, ErrPassphrase) {
		t.Errorf("Load() with wrong passphrase error = %v, want ErrPassphrase", err)
	}
	if _, err := New(dir, nil).Load(); !errors.Is(err, ErrPassphrase) {
		t.Errorf("Load() without passphrase error = %v, want ErrPassphrase", err)
	}
}

func TestLoadCorrupted(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	if _, _, err := store.Generate(); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "kem.json"), []byte("{not json"), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := store.Load(); !errors.Is(err, ErrCorrupted) {
		t.Errorf("Load() error = %v, want ErrCorrupted", err)
	}
}

func TestKeyFilePermissions(t *testing.T) {
	dir := t.TempDir()
	store := New(dir, nil)

	if _, _, err := store.Generate(); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, name := range []string{"kem.json", "sign.json"} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("Stat(%s) error = %v", name, err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("%s permissions = %o, want 600", name, perm)
		}
	}
}

func TestFingerprint(t *testing.T) {
	kp1, err := DeriveKeyPair(mustMnemonic(t))
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}
	kp2, err := DeriveKeyPair(mustMnemonic(t))
	if err != nil {
		t.Fatalf("DeriveKeyPair() error = %v", err)
	}

	fp1 := kp1.Fingerprint()
	if !strings.HasPrefix(fp1, "qsc1") {
		t.Errorf("fingerprint %q missing qsc1 prefix", fp1)
	}
	if fp1 != kp1.Fingerprint() {
		t.Error("fingerprint is not stable for the same keys")
	}
	if fp1 == kp2.Fingerprint() {
		t.Error("two key pairs share a fingerprint")
	}
}

func mustMnemonic(t *testing.T) string {
	t.Helper()
	m, err := NewMnemonic()
	if err != nil {
		t.Fatalf("NewMnemonic() error = %v", err)
	}
	return m
}
