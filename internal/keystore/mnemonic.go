package keystore

import (
	"github.com/tyler-smith/go-bip39"

	"github.com/chronoseal/capsule-go/internal/crypto"
)

// HKDF info strings separating the two key derivations from one seed.
const (
	kemSeedInfo  = "chronoseal/kem/v1"
	signSeedInfo = "chronoseal/sign/v1"
)

// NewMnemonic returns a fresh 24-word BIP-39 recovery phrase.
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(256)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// DeriveKeyPair deterministically derives the encapsulation and signing key
// pairs from a recovery phrase. The same phrase always yields the same keys.
func DeriveKeyPair(mnemonic string) (*KeyPair, error) {
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, ErrMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")

	kemSeed, err := crypto.DeriveKey(seed, kemSeedInfo, crypto.MLKEMSeedSize)
	if err != nil {
		return nil, err
	}
	signSeed, err := crypto.DeriveKey(seed, signSeedInfo, crypto.MLDSASeedSize)
	if err != nil {
		return nil, err
	}

	kem, err := crypto.NewKeypairFromSeed(kemSeed)
	if err != nil {
		return nil, err
	}
	sign, err := crypto.NewSigningKeypairFromSeed(signSeed)
	if err != nil {
		return nil, err
	}

	return &KeyPair{KEM: kem, Sign: sign}, nil
}
