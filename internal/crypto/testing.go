package crypto

import "io"

// SetRandReaderForTesting replaces the package random source and returns a
// function that restores the previous one. Intended for deterministic tests.
func SetRandReaderForTesting(r io.Reader) func() {
	previous := randReader
	randReader = r
	return func() {
		randReader = previous
	}
}
