package capsule

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// Magic identifies a serialized capsule record.
	Magic = "QSCR"
	// Version is the record format version.
	Version = 1
)

// ErrInvalidRecord is returned when serialized bytes do not form a valid
// capsule record.
var ErrInvalidRecord = errors.New("invalid capsule record")

// Encode serializes a record: the magic, a version byte, then every field
// length-prefixed with a big-endian uint32 in a fixed order. The layout is
// stable across releases; decoding rejects unknown versions.
func Encode(r *Record) []byte {
	var buf bytes.Buffer
	buf.WriteString(Magic)
	buf.WriteByte(Version)
	appendField(&buf, []byte(r.CreatedAt))
	appendField(&buf, []byte(r.UnlockDate))
	appendField(&buf, r.EncapsulatedKey)
	appendField(&buf, r.Nonce)
	appendField(&buf, r.Ciphertext)
	appendField(&buf, r.Tag)
	appendField(&buf, r.Signature)
	return buf.Bytes()
}

// Decode parses a serialized record. Field bytes are copied out of data, so
// the caller may reuse the input buffer.
func Decode(data []byte) (*Record, error) {
	if len(data) < len(Magic)+1 {
		return nil, fmt.Errorf("%w: truncated header", ErrInvalidRecord)
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: bad magic", ErrInvalidRecord)
	}
	if data[len(Magic)] != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidRecord, data[len(Magic)])
	}

	rest := data[len(Magic)+1:]
	fields := make([][]byte, 0, 7)
	for i := 0; i < 7; i++ {
		field, remaining, err := readField(rest)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		rest = remaining
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidRecord, len(rest))
	}

	return &Record{
		CreatedAt:       string(fields[0]),
		UnlockDate:      string(fields[1]),
		EncapsulatedKey: fields[2],
		Nonce:           fields[3],
		Ciphertext:      fields[4],
		Tag:             fields[5],
		Signature:       fields[6],
	}, nil
}

func readField(data []byte) (field, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, fmt.Errorf("%w: truncated length prefix", ErrInvalidRecord)
	}
	n := int(binary.BigEndian.Uint32(data[:4]))
	data = data[4:]
	if len(data) < n {
		return nil, nil, fmt.Errorf("%w: field length %d exceeds remaining %d bytes", ErrInvalidRecord, n, len(data))
	}

	field = make([]byte, n)
	copy(field, data[:n])
	return field, data[n:], nil
}
