// Package chronoseal implements a quantum-safe digital time capsule vault.
//
// Messages are sealed with AES-256-GCM under a key established via
// ML-KEM-768 encapsulation and signed with ML-DSA-65, then stored in an
// append-only local vault. Each capsule carries an unlock date; decryption
// is refused before that day begins (UTC). The time-lock is advisory and
// enforced by this library against the local clock, not by cryptography.
//
// Basic usage:
//
//	vault, err := chronoseal.Open("/path/to/vault")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vault.Close()
//
//	// First run: generate keys and write down the recovery phrase.
//	keys, err := vault.GenerateKeys()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("Recovery phrase:", keys.RecoveryPhrase)
//
//	// Seal a message until New Year's Day 2035.
//	summary, err := vault.CreateCapsule("Hello, future world!", "2035-01-01")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Once the day arrives:
//	result, err := vault.DecryptCapsule(summary.Index)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(result.Plaintext)
package chronoseal
