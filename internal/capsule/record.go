// Package capsule implements the capsule lifecycle: sealing a message under a
// fresh encapsulated key, the signed record format, and the unseal path that
// enforces the time-lock and verifies authenticity before decrypting.
package capsule

import (
	"bytes"
	"encoding/binary"

	"github.com/chronoseal/capsule-go/internal/crypto"
)

// Record is one immutable sealed capsule. Decryption never mutates a record;
// it only computes a transient plaintext.
type Record struct {
	// CreatedAt is the sealing timestamp, RFC 3339 in UTC.
	CreatedAt string
	// UnlockDate is the YYYY-MM-DD date after which decryption is permitted.
	UnlockDate string
	// EncapsulatedKey is the ML-KEM-768 ciphertext carrying the symmetric key.
	EncapsulatedKey []byte
	// Nonce is the per-capsule AES-GCM nonce.
	Nonce []byte
	// Ciphertext is the AEAD output over the message.
	Ciphertext []byte
	// Tag is the AEAD authentication tag.
	Tag []byte
	// Signature is the ML-DSA-65 signature over the record transcript.
	Signature []byte
}

// AdditionalData returns the associated data bound into the AEAD tag:
// the created_at timestamp concatenated with the unlock date. Tampering
// with either field invalidates the tag.
func (r *Record) AdditionalData() []byte {
	ad := make([]byte, 0, len(r.CreatedAt)+len(r.UnlockDate))
	ad = append(ad, r.CreatedAt...)
	ad = append(ad, r.UnlockDate...)
	return ad
}

// Transcript returns the byte string the capsule signature covers: a format
// version byte, the ciphersuite, a domain-separation context, then every
// record field length-prefixed in a fixed order.
func (r *Record) Transcript() []byte {
	var buf bytes.Buffer
	buf.WriteByte(Version)
	buf.WriteString(crypto.AlgsCiphersuite)
	buf.WriteString(crypto.TranscriptContext)
	appendField(&buf, r.EncapsulatedKey)
	appendField(&buf, r.Nonce)
	appendField(&buf, r.Ciphertext)
	appendField(&buf, r.Tag)
	appendField(&buf, []byte(r.CreatedAt))
	appendField(&buf, []byte(r.UnlockDate))
	return buf.Bytes()
}

func appendField(buf *bytes.Buffer, field []byte) {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(field)))
	buf.Write(n[:])
	buf.Write(field)
}
