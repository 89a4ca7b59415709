package capsule

import (
	"errors"
	"fmt"
	"time"

	"github.com/chronoseal/capsule-go/internal/crypto"
	"github.com/chronoseal/capsule-go/internal/timelock"
)

// Closed error set for the sealing and unsealing paths. Callers translate
// these into their own error surface; primitive failures are never passed
// through untagged.
var (
	// ErrEmptyMessage is returned when sealing an empty message.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTimeLocked is returned when decrypting before the unlock date.
	ErrTimeLocked = errors.New("capsule is time-locked")
	// ErrEncapsulation is returned when the KEM fails to produce a key.
	ErrEncapsulation = errors.New("encapsulation failed")
	// ErrSigning is returned when the record signature cannot be produced.
	ErrSigning = errors.New("signing failed")
	// ErrBadSignature is returned when the record signature does not verify.
	ErrBadSignature = errors.New("signature verification failed")
	// ErrDecapsulation is returned when the encapsulated key cannot be opened.
	ErrDecapsulation = errors.New("decapsulation failed")
	// ErrTagMismatch is returned when AEAD authentication fails.
	ErrTagMismatch = errors.New("authentication tag mismatch")
)

// Create seals message into a new capsule record that unlocks on unlockDate.
//
// A fresh symmetric key is established by encapsulating against the KEM
// public key, the message is encrypted under it with created_at and
// unlock_date as associated data, and the whole record is signed. Past
// unlock dates are accepted; such a capsule is immediately unlockable.
func Create(message []byte, unlockDate string, kemPublicKey []byte, signKeys *crypto.SigningKeypair, now time.Time) (*Record, error) {
	if len(message) == 0 {
		return nil, ErrEmptyMessage
	}
	if _, err := timelock.ParseDate(unlockDate); err != nil {
		return nil, err
	}

	rec := &Record{
		CreatedAt:  now.UTC().Format(time.RFC3339),
		UnlockDate: unlockDate,
	}

	encapsulatedKey, sharedSecret, err := crypto.Encapsulate(kemPublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncapsulation, err)
	}
	rec.EncapsulatedKey = encapsulatedKey

	nonce, err := crypto.NewNonce()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncapsulation, err)
	}
	rec.Nonce = nonce

	ciphertext, tag, err := crypto.EncryptAESGCM(sharedSecret, nonce, message, rec.AdditionalData())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncapsulation, err)
	}
	rec.Ciphertext = ciphertext
	rec.Tag = tag

	signature, err := signKeys.Sign(rec.Transcript())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}
	rec.Signature = signature

	return rec, nil
}

// Decrypt unseals a capsule record.
//
// The time-lock is checked first so a locked capsule never has its
// ciphertext touched, then the signature, then decapsulation and AEAD
// decryption. The stored record is never mutated.
func Decrypt(rec *Record, kemKeys *crypto.Keypair, signPublicKey []byte, now time.Time) ([]byte, error) {
	status, err := timelock.Evaluate(rec.UnlockDate, now)
	if err != nil {
		// An unlock date that fails to parse cannot have been sealed by
		// Create; let signature verification report the mutation.
		if verr := Verify(rec, signPublicKey); verr != nil {
			return nil, verr
		}
		return nil, err
	}
	if status == timelock.StatusLocked {
		return nil, ErrTimeLocked
	}

	// CRITICAL: verify before any decryption so adversarially mutated
	// ciphertext is never processed as plaintext recovery.
	if err := Verify(rec, signPublicKey); err != nil {
		return nil, err
	}

	sharedSecret, err := kemKeys.Decapsulate(rec.EncapsulatedKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecapsulation, err)
	}

	plaintext, err := crypto.DecryptAESGCM(sharedSecret, rec.Nonce, rec.Ciphertext, rec.Tag, rec.AdditionalData())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTagMismatch, err)
	}

	return plaintext, nil
}

// Verify checks the record signature over the stored transcript. It does not
// consult the time-lock and never decrypts, so authenticity can be checked
// before the unlock date without exposing the message.
func Verify(rec *Record, signPublicKey []byte) error {
	if err := crypto.Verify(signPublicKey, rec.Transcript(), rec.Signature); err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return nil
}
