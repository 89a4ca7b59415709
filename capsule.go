package chronoseal

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chronoseal/capsule-go/internal/capsule"
	"github.com/chronoseal/capsule-go/internal/metrics"
	"github.com/chronoseal/capsule-go/internal/store"
	"github.com/chronoseal/capsule-go/internal/timelock"
)

// Status is the time-lock state of a capsule.
type Status string

const (
	// StatusLocked means the unlock date has not been reached.
	StatusLocked Status = "locked"
	// StatusUnlockable means decryption is permitted.
	StatusUnlockable Status = "unlockable"
)

// CapsuleSummary is the listing view of one capsule. It never contains
// plaintext or key material.
type CapsuleSummary struct {
	// Index is the capsule's 0-based position in creation order.
	Index int
	// CreatedAt is the sealing timestamp, RFC 3339 in UTC.
	CreatedAt string
	// UnlockDate is the YYYY-MM-DD date the capsule unlocks.
	UnlockDate string
	// Status is the time-lock state at the time of the call.
	Status Status
}

// DecryptResult carries a recovered plaintext and its capsule's metadata.
type DecryptResult struct {
	Plaintext  string
	CreatedAt  string
	UnlockDate string
}

// VerifyResult reports capsule authenticity without revealing plaintext.
type VerifyResult struct {
	// Verified is true when the signature matches the stored record.
	Verified bool
	// Reason explains a false Verified.
	Reason     string
	CreatedAt  string
	UnlockDate string
}

// CreateCapsule seals message into a new capsule that unlocks on unlockDate
// (YYYY-MM-DD) and appends it to the store. Past unlock dates are accepted;
// such a capsule is immediately unlockable.
func (v *Vault) CreateCapsule(message, unlockDate string) (*CapsuleSummary, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, ErrVaultClosed
	}
	if v.keys == nil {
		return nil, ErrKeysNotFound
	}

	now := v.cfg.clock()
	rec, err := capsule.Create([]byte(message), unlockDate, v.keys.KEM.PublicKey, v.keys.Sign, now)
	if err != nil {
		return nil, wrapCapsuleError(err, unlockDate)
	}

	index, err := v.capStore.Append(rec)
	if err != nil {
		return nil, &StorageError{Op: "append capsule", Err: err}
	}

	metrics.CapsulesCreated.Inc()
	v.setStoredGauge()

	v.logger.WithFields(logrus.Fields{
		"index":       index,
		"unlock_date": rec.UnlockDate,
	}).Info("capsule sealed")

	return &CapsuleSummary{
		Index:      index,
		CreatedAt:  rec.CreatedAt,
		UnlockDate: rec.UnlockDate,
		Status:     v.statusAt(rec.UnlockDate, now),
	}, nil
}

// ListCapsules returns every capsule's metadata in creation order, each with
// its time-lock status at the time of the call. Indices are stable across
// calls absent new writes.
func (v *Vault) ListCapsules() ([]CapsuleSummary, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}

	metas, err := v.capStore.List()
	if err != nil {
		return nil, &StorageError{Op: "list capsules", Err: err}
	}

	now := v.cfg.clock()
	summaries := make([]CapsuleSummary, 0, len(metas))
	for _, m := range metas {
		summaries = append(summaries, CapsuleSummary{
			Index:      m.Index,
			CreatedAt:  m.CreatedAt,
			UnlockDate: m.UnlockDate,
			Status:     v.statusAt(m.UnlockDate, now),
		})
	}
	return summaries, nil
}

// Capsule returns the metadata of one capsule by 0-based index.
func (v *Vault) Capsule(index int) (*CapsuleSummary, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}

	rec, err := v.getRecord(index)
	if err != nil {
		return nil, err
	}

	return &CapsuleSummary{
		Index:      index,
		CreatedAt:  rec.CreatedAt,
		UnlockDate: rec.UnlockDate,
		Status:     v.statusAt(rec.UnlockDate, v.cfg.clock()),
	}, nil
}

// DecryptCapsule unseals the capsule at a 0-based index.
//
// The time-lock is enforced first: a locked capsule fails with
// TimeLockedError before any cryptographic work. Then the signature is
// verified, the symmetric key decapsulated, and the message decrypted.
func (v *Vault) DecryptCapsule(index int) (*DecryptResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}
	if v.keys == nil {
		return nil, ErrKeysNotFound
	}

	rec, err := v.getRecord(index)
	if err != nil {
		return nil, err
	}

	plaintext, err := capsule.Decrypt(rec, v.keys.KEM, v.keys.Sign.PublicKey, v.cfg.clock())
	if err != nil {
		wrapped := wrapCapsuleError(err, rec.UnlockDate)
		metrics.DecryptDenied.WithLabelValues(denialReason(wrapped)).Inc()

		v.logger.WithFields(logrus.Fields{
			"index":  index,
			"reason": denialReason(wrapped),
		}).Warn("decrypt denied")

		return nil, wrapped
	}

	metrics.CapsulesDecrypted.Inc()

	return &DecryptResult{
		Plaintext:  string(plaintext),
		CreatedAt:  rec.CreatedAt,
		UnlockDate: rec.UnlockDate,
	}, nil
}

// VerifyCapsule checks the authenticity of the capsule at a 0-based index
// without revealing plaintext. The time-lock does not apply: a capsule's
// signature can be checked while it is still locked.
func (v *Vault) VerifyCapsule(index int) (*VerifyResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}
	if v.keys == nil {
		return nil, ErrKeysNotFound
	}

	rec, err := v.getRecord(index)
	if err != nil {
		return nil, err
	}

	res := &VerifyResult{
		CreatedAt:  rec.CreatedAt,
		UnlockDate: rec.UnlockDate,
	}
	if err := capsule.Verify(rec, v.keys.Sign.PublicKey); err != nil {
		res.Reason = "capsule record does not match its signature"
		return res, nil
	}
	res.Verified = true
	return res, nil
}

// getRecord reads and decodes one record. Callers hold v.mu.
func (v *Vault) getRecord(index int) (*capsule.Record, error) {
	rec, err := v.capStore.Get(index)
	if err != nil {
		if errors.Is(err, store.ErrIndexOutOfRange) {
			size, lenErr := v.capStore.Len()
			if lenErr != nil {
				size = 0
			}
			return nil, &IndexOutOfRangeError{Index: index, Size: size}
		}
		if errors.Is(err, capsule.ErrInvalidRecord) {
			return nil, &StorageError{Op: "decode capsule record", Err: err}
		}
		return nil, &StorageError{Op: "read capsule", Err: err}
	}
	return rec, nil
}

// statusAt computes a capsule's display status. A stored date that fails to
// parse shows as locked; decrypt surfaces the real error.
func (v *Vault) statusAt(unlockDate string, now time.Time) Status {
	st, err := timelock.Evaluate(unlockDate, now)
	if err != nil {
		return StatusLocked
	}
	return Status(st)
}

// setStoredGauge refreshes the stored-capsule gauge. Callers hold v.mu.
func (v *Vault) setStoredGauge() {
	if n, err := v.capStore.Len(); err == nil {
		metrics.CapsulesStored.Set(float64(n))
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeLocked):
		return "time_locked"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTagMismatch):
		return "tag_mismatch"
	case errors.Is(err, ErrDecapsulation):
		return "decapsulation"
	default:
		return "other"
	}
}
