package crypto

import (
	"crypto/sha512"
	"io"

	"golang.org/x/crypto/hkdf"
)

// DeriveKey expands keyMaterial into length output bytes using HKDF-SHA-512.
// The info string provides domain separation between derived keys.
func DeriveKey(keyMaterial []byte, info string, length int) ([]byte, error) {
	reader := hkdf.New(sha512.New, keyMaterial, nil, []byte(info))

	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}

	return out, nil
}
