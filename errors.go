package chronoseal

import (
	"errors"
	"fmt"

	"github.com/chronoseal/capsule-go/internal/capsule"
	"github.com/chronoseal/capsule-go/internal/keystore"
	"github.com/chronoseal/capsule-go/internal/timelock"
)

// Sentinel errors for errors.Is() checks
var (
	// ErrVaultClosed is returned when operations are attempted on a closed vault.
	ErrVaultClosed = errors.New("vault has been closed")

	// ErrKeysNotFound is returned when no key pair has been generated yet.
	ErrKeysNotFound = errors.New("keys not found")

	// ErrKeyGeneration is returned when a key pair cannot be produced.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrKeyCorruption is returned when stored key material does not parse.
	ErrKeyCorruption = errors.New("key material corrupted")

	// ErrStorage is returned when persistence I/O fails.
	ErrStorage = errors.New("storage failure")

	// ErrValidation is returned when operation inputs are invalid.
	ErrValidation = errors.New("validation failed")

	// ErrEncapsulation is returned when the KEM cannot produce a key.
	ErrEncapsulation = errors.New("encapsulation failed")

	// ErrSigning is returned when a capsule signature cannot be produced.
	ErrSigning = errors.New("signing failed")

	// ErrTimeLocked is returned when decrypting a capsule before its unlock date.
	ErrTimeLocked = errors.New("capsule is time-locked")

	// ErrSignatureInvalid is returned when capsule signature verification fails.
	ErrSignatureInvalid = errors.New("signature verification failed")

	// ErrDecapsulation is returned when the encapsulated key cannot be opened.
	ErrDecapsulation = errors.New("decapsulation failed")

	// ErrTagMismatch is returned when AEAD authentication fails.
	ErrTagMismatch = errors.New("authentication tag mismatch")

	// ErrIndexOutOfRange is returned when a capsule index is not in the store.
	ErrIndexOutOfRange = errors.New("capsule index out of range")

	// ErrPassphraseInvalid is returned when key files cannot be opened with
	// the configured passphrase.
	ErrPassphraseInvalid = errors.New("invalid passphrase")

	// ErrMnemonicInvalid is returned when a recovery phrase is not valid.
	ErrMnemonicInvalid = errors.New("invalid recovery phrase")

	// ErrInvalidImportData is returned when imported vault data is invalid.
	ErrInvalidImportData = errors.New("invalid import data")

	// ErrVaultNotEmpty is returned when importing into a vault that already
	// has keys or capsules.
	ErrVaultNotEmpty = errors.New("vault is not empty")

	// ErrWebhookNotFound is returned by the HTTP surfaces when a webhook ID
	// is unknown.
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrRateLimited is returned by the HTTP client when the server rejects
	// a request for exceeding its rate limit.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ChronoSealError is implemented by all vault errors.
type ChronoSealError interface {
	error
	ChronoSealError() // marker method
}

// KeyGenerationError indicates the underlying algorithm could not produce a
// key pair.
type KeyGenerationError struct {
	Err error
}

func (e *KeyGenerationError) Error() string {
	return fmt.Sprintf("key generation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *KeyGenerationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *KeyGenerationError) Is(target error) bool {
	return target == ErrKeyGeneration
}

// ChronoSealError implements the ChronoSealError interface.
func (e *KeyGenerationError) ChronoSealError() {}

// KeyCorruptionError indicates stored key bytes do not parse as valid key
// material for the expected algorithm and sizes.
type KeyCorruptionError struct {
	Err error
}

func (e *KeyCorruptionError) Error() string {
	return fmt.Sprintf("key material corrupted: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *KeyCorruptionError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *KeyCorruptionError) Is(target error) bool {
	return target == ErrKeyCorruption
}

// ChronoSealError implements the ChronoSealError interface.
func (e *KeyCorruptionError) ChronoSealError() {}

// StorageError represents a persistence I/O failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// ChronoSealError implements the ChronoSealError interface.
func (e *StorageError) ChronoSealError() {}

// ValidationError contains one or more input validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %v", e.Errors)
}

// Is implements errors.Is for sentinel error matching.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ChronoSealError implements the ChronoSealError interface.
func (e *ValidationError) ChronoSealError() {}

// EncapsulationError indicates the KEM failed to establish a symmetric key.
type EncapsulationError struct {
	Err error
}

func (e *EncapsulationError) Error() string {
	return fmt.Sprintf("encapsulation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *EncapsulationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *EncapsulationError) Is(target error) bool {
	return target == ErrEncapsulation
}

// ChronoSealError implements the ChronoSealError interface.
func (e *EncapsulationError) ChronoSealError() {}

// SigningError indicates the capsule signature could not be produced.
type SigningError struct {
	Err error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("signing failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *SigningError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *SigningError) Is(target error) bool {
	return target == ErrSigning
}

// ChronoSealError implements the ChronoSealError interface.
func (e *SigningError) ChronoSealError() {}

// TimeLockedError is returned when decryption is attempted before the
// capsule's unlock date. UnlockDate is carried for display.
type TimeLockedError struct {
	UnlockDate string
}

func (e *TimeLockedError) Error() string {
	return fmt.Sprintf("capsule is time-locked until %s", e.UnlockDate)
}

// Is implements errors.Is for sentinel error matching.
func (e *TimeLockedError) Is(target error) bool {
	return target == ErrTimeLocked
}

// ChronoSealError implements the ChronoSealError interface.
func (e *TimeLockedError) ChronoSealError() {}

// SignatureInvalidError indicates potential tampering with a stored capsule.
type SignatureInvalidError struct {
	Message string
}

func (e *SignatureInvalidError) Error() string {
	return fmt.Sprintf("signature verification failed: %s", e.Message)
}

// Is implements errors.Is for sentinel error matching.
func (e *SignatureInvalidError) Is(target error) bool {
	return target == ErrSignatureInvalid
}

// ChronoSealError implements the ChronoSealError interface.
func (e *SignatureInvalidError) ChronoSealError() {}

// DecapsulationError indicates the encapsulated key could not be opened with
// the private encapsulation key.
type DecapsulationError struct {
	Err error
}

func (e *DecapsulationError) Error() string {
	return fmt.Sprintf("decapsulation failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *DecapsulationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *DecapsulationError) Is(target error) bool {
	return target == ErrDecapsulation
}

// ChronoSealError implements the ChronoSealError interface.
func (e *DecapsulationError) ChronoSealError() {}

// TagMismatchError indicates AEAD authentication rejected the ciphertext,
// tag, or associated data.
type TagMismatchError struct {
	Err error
}

func (e *TagMismatchError) Error() string {
	return fmt.Sprintf("authentication tag mismatch: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *TagMismatchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for sentinel error matching.
func (e *TagMismatchError) Is(target error) bool {
	return target == ErrTagMismatch
}

// ChronoSealError implements the ChronoSealError interface.
func (e *TagMismatchError) ChronoSealError() {}

// IndexOutOfRangeError indicates a capsule index beyond the store's size.
type IndexOutOfRangeError struct {
	Index int
	Size  int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("capsule index %d out of range (store holds %d)", e.Index, e.Size)
}

// Is implements errors.Is for sentinel error matching.
func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

// ChronoSealError implements the ChronoSealError interface.
func (e *IndexOutOfRangeError) ChronoSealError() {}

// wrapKeyError converts keystore errors to public errors.
// This ensures that errors.Is() checks work with public sentinel errors.
func wrapKeyError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, keystore.ErrNotFound):
		return ErrKeysNotFound
	case errors.Is(err, keystore.ErrPassphrase):
		return ErrPassphraseInvalid
	case errors.Is(err, keystore.ErrMnemonic):
		return ErrMnemonicInvalid
	case errors.Is(err, keystore.ErrGeneration):
		return &KeyGenerationError{Err: err}
	case errors.Is(err, keystore.ErrCorrupted):
		return &KeyCorruptionError{Err: err}
	default:
		return &StorageError{Op: "key persistence", Err: err}
	}
}

// wrapCapsuleError converts sealing and unsealing errors to public errors.
func wrapCapsuleError(err error, unlockDate string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, capsule.ErrEmptyMessage):
		return &ValidationError{Errors: []string{"message must not be empty"}}
	case errors.Is(err, timelock.ErrInvalidDate):
		return &ValidationError{Errors: []string{err.Error()}}
	case errors.Is(err, capsule.ErrTimeLocked):
		return &TimeLockedError{UnlockDate: unlockDate}
	case errors.Is(err, capsule.ErrBadSignature):
		return &SignatureInvalidError{Message: "capsule record does not match its signature"}
	case errors.Is(err, capsule.ErrDecapsulation):
		return &DecapsulationError{Err: err}
	case errors.Is(err, capsule.ErrTagMismatch):
		return &TagMismatchError{Err: err}
	case errors.Is(err, capsule.ErrEncapsulation):
		return &EncapsulationError{Err: err}
	case errors.Is(err, capsule.ErrSigning):
		return &SigningError{Err: err}
	default:
		return err
	}
}
