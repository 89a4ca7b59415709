package capsule

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/chronoseal/capsule-go/internal/crypto"
	"github.com/chronoseal/capsule-go/internal/timelock"
)

func newTestKeys(t *testing.T) (*crypto.Keypair, *crypto.SigningKeypair) {
	t.Helper()

	kem, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	sign, err := crypto.GenerateSigningKeypair()
	if err != nil {
		t.Fatalf("GenerateSigningKeypair() error = %v", err)
	}
	return kem, sign
}

func TestCreateDecryptRoundTrip(t *testing.T) {
	kem, sign := newTestKeys(t)

	message := []byte("Hello, future world!")
	sealedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec, err := Create(message, "2035-01-01", kem.PublicKey, sign, sealedAt)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if rec.CreatedAt != "2024-01-01T00:00:00Z" {
		t.Errorf("CreatedAt = %q, want %q", rec.CreatedAt, "2024-01-01T00:00:00Z")
	}
	if len(rec.EncapsulatedKey) != crypto.MLKEMCiphertextSize {
		t.Errorf("EncapsulatedKey size = %d, want %d", len(rec.EncapsulatedKey), crypto.MLKEMCiphertextSize)
	}
	if len(rec.Signature) != crypto.MLDSASignatureSize {
		t.Errorf("Signature size = %d, want %d", len(rec.Signature), crypto.MLDSASignatureSize)
	}

	// Still locked the day before
	_, err = Decrypt(rec, kem, sign.PublicKey, time.Date(2034, 12, 31, 23, 59, 59, 0, time.UTC))
	if !errors.Is(err, ErrTimeLocked) {
		t.Fatalf("Decrypt() before unlock error = %v, want ErrTimeLocked", err)
	}

	plaintext, err := Decrypt(rec, kem, sign.PublicKey, time.Date(2035, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(plaintext, message) {
		t.Errorf("Decrypt() = %q, want %q", plaintext, message)
	}

	if err := Verify(rec, sign.PublicKey); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestDecryptUnlocksAtStartOfDay(t *testing.T) {
	kem, sign := newTestKeys(t)

	rec, err := Create([]byte("midnight exactly"), "2030-06-15", kem.PublicKey, sign, time.Now())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := Decrypt(rec, kem, sign.PublicKey, time.Date(2030, 6, 15, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Errorf("Decrypt() at start of unlock day error = %v, want nil", err)
	}
}

func TestDecryptNeverReturnsPlaintextWhileLocked(t *testing.T) {
	kem, sign := newTestKeys(t)

	rec, err := Create([]byte("sealed"), "2040-01-01", kem.PublicKey, sign, time.Now())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, now := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2039, 12, 31, 23, 59, 59, 0, time.UTC),
	} {
		plaintext, err := Decrypt(rec, kem, sign.PublicKey, now)
		if !errors.Is(err, ErrTimeLocked) {
			t.Errorf("Decrypt() at %v error = %v, want ErrTimeLocked", now, err)
		}
		if plaintext != nil {
			t.Errorf("Decrypt() at %v returned plaintext while locked", now)
		}
	}
}

func TestCreateValidation(t *testing.T) {
	kem, sign := newTestKeys(t)
	now := time.Now()

	if _, err := Create(nil, "2035-01-01", kem.PublicKey, sign, now); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Create(empty message) error = %v, want ErrEmptyMessage", err)
	}

	if _, err := Create([]byte("msg"), "January 1st 2035", kem.PublicKey, sign, now); !errors.Is(err, timelock.ErrInvalidDate) {
		t.Errorf("Create(malformed date) error = %v, want ErrInvalidDate", err)
	}
}

func TestCreatePastUnlockDate(t *testing.T) {
	kem, sign := newTestKeys(t)

	// Past dates are accepted; the capsule is immediately unlockable
	rec, err := Create([]byte("already open"), "1999-12-31", kem.PublicKey, sign, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	plaintext, err := Decrypt(rec, kem, sign.PublicKey, time.Date(2024, 1, 1, 0, 0, 1, 0, time.UTC))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(plaintext) != "already open" {
		t.Errorf("Decrypt() = %q, want %q", plaintext, "already open")
	}
}

func TestDecryptTamperedFields(t *testing.T) {
	kem, sign := newTestKeys(t)
	unlocked := time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(r *Record)
		wantErr error
	}{
		{
			name:    "flipped encapsulated key bit",
			mutate:  func(r *Record) { r.EncapsulatedKey[0] ^= 0x01 },
			wantErr: ErrBadSignature,
		},
		{
			name:    "flipped nonce bit",
			mutate:  func(r *Record) { r.Nonce[0] ^= 0x01 },
			wantErr: ErrBadSignature,
		},
		{
			name:    "flipped ciphertext bit",
			mutate:  func(r *Record) { r.Ciphertext[0] ^= 0x01 },
			wantErr: ErrBadSignature,
		},
		{
			name:    "flipped tag bit",
			mutate:  func(r *Record) { r.Tag[0] ^= 0x01 },
			wantErr: ErrBadSignature,
		},
		{
			name:    "flipped signature bit",
			mutate:  func(r *Record) { r.Signature[100] ^= 0x01 },
			wantErr: ErrBadSignature,
		},
		{
			name:    "rewritten created_at",
			mutate:  func(r *Record) { r.CreatedAt = "2020-01-01T00:00:00Z" },
			wantErr: ErrBadSignature,
		},
		{
			name:    "rewritten unlock_date",
			mutate:  func(r *Record) { r.UnlockDate = "2000-01-01" },
			wantErr: ErrBadSignature,
		},
		{
			name:    "unparseable unlock_date",
			mutate:  func(r *Record) { r.UnlockDate = "20!5-01-01" },
			wantErr: ErrBadSignature,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Create([]byte("tamper target"), "2035-01-01", kem.PublicKey, sign, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
			if err != nil {
				t.Fatalf("Create() error = %v", err)
			}

			tt.mutate(rec)

			plaintext, err := Decrypt(rec, kem, sign.PublicKey, unlocked)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decrypt() error = %v, want %v", err, tt.wantErr)
			}
			if plaintext != nil {
				t.Error("Decrypt() returned plaintext for a tampered record")
			}
		})
	}
}

// A tampered unlock date that pushes the lock into the future keeps the
// time-lock check first; the capsule reports locked, not forged.
func TestDecryptTamperedDateStillLocked(t *testing.T) {
	kem, sign := newTestKeys(t)

	rec, err := Create([]byte("msg"), "2030-01-01", kem.PublicKey, sign, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec.UnlockDate = "2099-01-01"

	_, err = Decrypt(rec, kem, sign.PublicKey, time.Date(2031, 1, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTimeLocked) {
		t.Errorf("Decrypt() error = %v, want ErrTimeLocked", err)
	}
}

func TestDecryptWrongKEMKeypair(t *testing.T) {
	kem, sign := newTestKeys(t)
	otherKEM, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	rec, err := Create([]byte("msg"), "2020-01-01", kem.PublicKey, sign, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// The signature still verifies, but decapsulation with the wrong key
	// yields a different secret and the AEAD rejects.
	_, err = Decrypt(rec, otherKEM, sign.PublicKey, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrTagMismatch) {
		t.Errorf("Decrypt() error = %v, want ErrTagMismatch", err)
	}
}

func TestVerifyBeforeUnlockDate(t *testing.T) {
	kem, sign := newTestKeys(t)

	rec, err := Create([]byte("authentic"), "2099-01-01", kem.PublicKey, sign, time.Now())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Authenticity can be checked while the capsule is still locked
	if err := Verify(rec, sign.PublicKey); err != nil {
		t.Errorf("Verify() error = %v, want nil", err)
	}
}

func TestVerifyForeignSigningKey(t *testing.T) {
	kem, sign := newTestKeys(t)
	foreignSign, err := crypto.GenerateSigningKeypair()
	if err != nil {
		t.Fatalf("GenerateSigningKeypair() error = %v", err)
	}

	rec, err := Create([]byte("msg"), "2035-01-01", kem.PublicKey, foreignSign, time.Now())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := Verify(rec, sign.PublicKey); !errors.Is(err, ErrBadSignature) {
		t.Errorf("Verify() error = %v, want ErrBadSignature", err)
	}
}

func TestCreateFreshness(t *testing.T) {
	kem, sign := newTestKeys(t)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rec1, err := Create([]byte("same message"), "2035-01-01", kem.PublicKey, sign, now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	rec2, err := Create([]byte("same message"), "2035-01-01", kem.PublicKey, sign, now)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if bytes.Equal(rec1.EncapsulatedKey, rec2.EncapsulatedKey) {
		t.Error("two capsules share an encapsulated key")
	}
	if bytes.Equal(rec1.Nonce, rec2.Nonce) {
		t.Error("two capsules share a nonce")
	}
	if bytes.Equal(rec1.Ciphertext, rec2.Ciphertext) {
		t.Error("two capsules share ciphertext")
	}
	if bytes.Equal(rec1.Signature, rec2.Signature) {
		t.Error("two capsules share a signature")
	}
}

func TestSealedRecordSurvivesSerialization(t *testing.T) {
	kem, sign := newTestKeys(t)

	rec, err := Create([]byte("Hello, future world!"), "2035-01-01", kem.PublicKey, sign, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	decoded, err := Decode(Encode(rec))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	plaintext, err := Decrypt(decoded, kem, sign.PublicKey, time.Date(2035, 1, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if string(plaintext) != "Hello, future world!" {
		t.Errorf("Decrypt() = %q, want %q", plaintext, "Hello, future world!")
	}
}

func BenchmarkCreate(b *testing.B) {
	kem, err := crypto.GenerateKeypair()
	if err != nil {
		b.Fatal(err)
	}
	sign, err := crypto.GenerateSigningKeypair()
	if err != nil {
		b.Fatal(err)
	}
	message := bytes.Repeat([]byte{0x61}, 1024)
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Create(message, "2035-01-01", kem.PublicKey, sign, now); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecrypt(b *testing.B) {
	kem, err := crypto.GenerateKeypair()
	if err != nil {
		b.Fatal(err)
	}
	sign, err := crypto.GenerateSigningKeypair()
	if err != nil {
		b.Fatal(err)
	}
	rec, err := Create(bytes.Repeat([]byte{0x61}, 1024), "2020-01-01", kem.PublicKey, sign, time.Now())
	if err != nil {
		b.Fatal(err)
	}
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decrypt(rec, kem, sign.PublicKey, now); err != nil {
			b.Fatal(err)
		}
	}
}
