// Package store persists sealed capsule records as an append-only ordered
// collection. Records are indexed 0..n-1 in creation order; the index is the
// sole lookup key. Records are never reordered, rewritten, or deleted.
package store

import (
	"errors"

	"github.com/chronoseal/capsule-go/internal/capsule"
)

// ErrIndexOutOfRange is returned when an index does not address a stored
// capsule.
var ErrIndexOutOfRange = errors.New("capsule index out of range")

// Meta is the listing view of one stored capsule.
type Meta struct {
	// Index is the 0-based position in creation order.
	Index int
	// CreatedAt is the capsule's sealing timestamp.
	CreatedAt string
	// UnlockDate is the capsule's unlock date.
	UnlockDate string
}

// Store is an append-only collection of capsule records.
//
// Append must not run concurrently with any other call; reads may run
// concurrently with each other. Callers enforce this discipline.
type Store interface {
	// Append persists a record and returns its 0-based index.
	Append(rec *capsule.Record) (int, error)
	// Get returns the record at a 0-based index.
	Get(index int) (*capsule.Record, error)
	// List returns the metadata of every record in creation order.
	List() ([]Meta, error)
	// Len returns the number of stored records.
	Len() (int, error)
	// Close releases the backing resources.
	Close() error
}
