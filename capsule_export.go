package chronoseal

import (
	"fmt"
	"time"

	"github.com/chronoseal/capsule-go/internal/capsule"
	"github.com/chronoseal/capsule-go/internal/crypto"
	"github.com/chronoseal/capsule-go/internal/keystore"
)

// ExportVersion is the current export format version.
const ExportVersion = 1

// ExportedVault contains all data needed to rebuild a vault elsewhere.
// WARNING: this contains private key material - handle securely.
//
// The ML-KEM-768 public key is NOT included as it can be derived from the
// secret key.
type ExportedVault struct {
	// Version is the export format version. MUST be 1.
	Version int `json:"version"`
	// Fingerprint identifies the exported key pair. Informational; verified
	// against the key material on import when set.
	Fingerprint string `json:"fingerprint,omitempty"`
	// KEMSecretKey is the ML-KEM-768 secret key (base64url, 2400 bytes decoded).
	KEMSecretKey string `json:"kemSecretKey"`
	// SignSecretKey is the ML-DSA-65 secret key (base64url, 4032 bytes decoded).
	SignSecretKey string `json:"signSecretKey"`
	// SignPublicKey is the ML-DSA-65 public key (base64url, 1952 bytes decoded).
	SignPublicKey string `json:"signPublicKey"`
	// Capsules holds every sealed record (base64url) in creation order.
	Capsules []string `json:"capsules"`
	// ExportedAt is the export timestamp. Informational only.
	ExportedAt time.Time `json:"exportedAt"`
}

// Validate checks that the exported data is well-formed. Validation steps
// run in a fixed order so failures are deterministic.
func (e *ExportedVault) Validate() error {
	if e.Version != ExportVersion {
		return fmt.Errorf("%w: unsupported version %d, expected %d", ErrInvalidImportData, e.Version, ExportVersion)
	}

	if e.KEMSecretKey == "" {
		return fmt.Errorf("%w: kemSecretKey is required", ErrInvalidImportData)
	}
	kemSecret, err := crypto.FromBase64URL(e.KEMSecretKey)
	if err != nil {
		return fmt.Errorf("%w: invalid kemSecretKey encoding", ErrInvalidImportData)
	}
	if len(kemSecret) != crypto.MLKEMSecretKeySize {
		return fmt.Errorf("%w: kemSecretKey size %d, expected %d", ErrInvalidImportData, len(kemSecret), crypto.MLKEMSecretKeySize)
	}

	if e.SignSecretKey == "" {
		return fmt.Errorf("%w: signSecretKey is required", ErrInvalidImportData)
	}
	signSecret, err := crypto.FromBase64URL(e.SignSecretKey)
	if err != nil {
		return fmt.Errorf("%w: invalid signSecretKey encoding", ErrInvalidImportData)
	}
	if len(signSecret) != crypto.MLDSASecretKeySize {
		return fmt.Errorf("%w: signSecretKey size %d, expected %d", ErrInvalidImportData, len(signSecret), crypto.MLDSASecretKeySize)
	}

	if e.SignPublicKey == "" {
		return fmt.Errorf("%w: signPublicKey is required", ErrInvalidImportData)
	}
	signPublic, err := crypto.FromBase64URL(e.SignPublicKey)
	if err != nil {
		return fmt.Errorf("%w: invalid signPublicKey encoding", ErrInvalidImportData)
	}
	if len(signPublic) != crypto.MLDSAPublicKeySize {
		return fmt.Errorf("%w: signPublicKey size %d, expected %d", ErrInvalidImportData, len(signPublic), crypto.MLDSAPublicKeySize)
	}

	for i, c := range e.Capsules {
		if _, err := crypto.FromBase64URL(c); err != nil {
			return fmt.Errorf("%w: capsule %d is not valid base64url", ErrInvalidImportData, i)
		}
	}

	return nil
}

// Export returns a portable snapshot of the vault: both secret keys plus
// every capsule record in creation order.
func (v *Vault) Export() (*ExportedVault, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if v.closed {
		return nil, ErrVaultClosed
	}
	if v.keys == nil {
		return nil, ErrKeysNotFound
	}

	n, err := v.capStore.Len()
	if err != nil {
		return nil, &StorageError{Op: "list capsules", Err: err}
	}

	capsules := make([]string, 0, n)
	for i := 0; i < n; i++ {
		rec, err := v.getRecord(i)
		if err != nil {
			return nil, err
		}
		capsules = append(capsules, crypto.ToBase64URL(capsule.Encode(rec)))
	}

	return &ExportedVault{
		Version:       ExportVersion,
		Fingerprint:   v.keys.Fingerprint(),
		KEMSecretKey:  crypto.ToBase64URL(v.keys.KEM.SecretKey),
		SignSecretKey: crypto.ToBase64URL(v.keys.Sign.SecretKey),
		SignPublicKey: v.keys.Sign.PublicKeyB64,
		Capsules:      capsules,
		ExportedAt:    time.Now().UTC(),
	}, nil
}

// Import rebuilds this vault from an export: the key pair is restored and
// every capsule record appended in order. The vault must be empty, keys and
// capsules both; Import never merges.
func (v *Vault) Import(data *ExportedVault) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return ErrVaultClosed
	}
	if v.keys != nil {
		return ErrVaultNotEmpty
	}
	n, err := v.capStore.Len()
	if err != nil {
		return &StorageError{Op: "list capsules", Err: err}
	}
	if n > 0 {
		return ErrVaultNotEmpty
	}

	if err := data.Validate(); err != nil {
		return err
	}

	// Validate() already verified encodings and sizes
	kemSecret, _ := crypto.FromBase64URL(data.KEMSecretKey)
	signSecret, _ := crypto.FromBase64URL(data.SignSecretKey)
	signPublic, _ := crypto.FromBase64URL(data.SignPublicKey)

	// The KEM public key is derived from the secret key
	kem, err := crypto.KeypairFromSecretKey(kemSecret)
	if err != nil {
		return fmt.Errorf("%w: failed to reconstruct KEM keypair: %v", ErrInvalidImportData, err)
	}
	sign, err := crypto.NewSigningKeypairFromBytes(signSecret, signPublic)
	if err != nil {
		return fmt.Errorf("%w: failed to reconstruct signing keypair: %v", ErrInvalidImportData, err)
	}

	keys := &keystore.KeyPair{KEM: kem, Sign: sign}
	if data.Fingerprint != "" && data.Fingerprint != keys.Fingerprint() {
		return fmt.Errorf("%w: fingerprint does not match key material", ErrInvalidImportData)
	}

	records := make([]*capsule.Record, 0, len(data.Capsules))
	for i, c := range data.Capsules {
		raw, _ := crypto.FromBase64URL(c)
		rec, err := capsule.Decode(raw)
		if err != nil {
			return fmt.Errorf("%w: capsule %d: %v", ErrInvalidImportData, i, err)
		}
		records = append(records, rec)
	}

	if err := v.keyStore.Put(keys); err != nil {
		return wrapKeyError(err)
	}
	v.keys = keys

	for _, rec := range records {
		if _, err := v.capStore.Append(rec); err != nil {
			return &StorageError{Op: "append capsule", Err: err}
		}
	}
	v.setStoredGauge()

	return nil
}
