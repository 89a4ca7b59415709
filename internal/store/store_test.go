package store

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/chronoseal/capsule-go/internal/capsule"
)

func testRecord(i int) *capsule.Record {
	return &capsule.Record{
		CreatedAt:       fmt.Sprintf("2024-01-%02dT00:00:00Z", i+1),
		UnlockDate:      fmt.Sprintf("2035-01-%02d", i+1),
		EncapsulatedKey: []byte{byte(i), 1, 2},
		Nonce:           []byte{byte(i), 3},
		Ciphertext:      []byte("opaque ciphertext"),
		Tag:             []byte{byte(i), 4},
		Signature:       []byte{byte(i), 5},
	}
}

func TestStores(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) Store
	}{
		{
			name: "fs",
			open: func(t *testing.T) Store {
				s, err := NewFS(t.TempDir())
				if err != nil {
					t.Fatalf("NewFS() error = %v", err)
				}
				return s
			},
		},
		{
			name: "sqlite",
			open: func(t *testing.T) Store {
				s, err := NewSQLite(filepath.Join(t.TempDir(), "capsules.db"))
				if err != nil {
					t.Fatalf("NewSQLite() error = %v", err)
				}
				return s
			},
		},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			t.Run("empty store", func(t *testing.T) {
				s := backend.open(t)
				defer s.Close()

				n, err := s.Len()
				if err != nil {
					t.Fatalf("Len() error = %v", err)
				}
				if n != 0 {
					t.Errorf("Len() = %d, want 0", n)
				}

				metas, err := s.List()
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(metas) != 0 {
					t.Errorf("List() returned %d entries, want 0", len(metas))
				}

				if _, err := s.Get(0); !errors.Is(err, ErrIndexOutOfRange) {
					t.Errorf("Get(0) error = %v, want ErrIndexOutOfRange", err)
				}
			})

			t.Run("append assigns sequential indices", func(t *testing.T) {
				s := backend.open(t)
				defer s.Close()

				for i := 0; i < 3; i++ {
					index, err := s.Append(testRecord(i))
					if err != nil {
						t.Fatalf("Append() error = %v", err)
					}
					if index != i {
						t.Errorf("Append() index = %d, want %d", index, i)
					}
				}
			})

			t.Run("get round-trips records", func(t *testing.T) {
				s := backend.open(t)
				defer s.Close()

				want := testRecord(0)
				if _, err := s.Append(want); err != nil {
					t.Fatalf("Append() error = %v", err)
				}

				got, err := s.Get(0)
				if err != nil {
					t.Fatalf("Get() error = %v", err)
				}
				if got.CreatedAt != want.CreatedAt || got.UnlockDate != want.UnlockDate {
					t.Errorf("Get() metadata = (%q, %q), want (%q, %q)", got.CreatedAt, got.UnlockDate, want.CreatedAt, want.UnlockDate)
				}
				if !bytes.Equal(got.Ciphertext, want.Ciphertext) {
					t.Error("Get() ciphertext does not match appended record")
				}
				if !bytes.Equal(got.Signature, want.Signature) {
					t.Error("Get() signature does not match appended record")
				}
			})

			t.Run("get rejects out-of-range indices", func(t *testing.T) {
				s := backend.open(t)
				defer s.Close()

				if _, err := s.Append(testRecord(0)); err != nil {
					t.Fatalf("Append() error = %v", err)
				}

				for _, index := range []int{-1, 1, 1000} {
					if _, err := s.Get(index); !errors.Is(err, ErrIndexOutOfRange) {
						t.Errorf("Get(%d) error = %v, want ErrIndexOutOfRange", index, err)
					}
				}
			})

			t.Run("list preserves creation order", func(t *testing.T) {
				s := backend.open(t)
				defer s.Close()

				for i := 0; i < 3; i++ {
					if _, err := s.Append(testRecord(i)); err != nil {
						t.Fatalf("Append() error = %v", err)
					}
				}

				metas, err := s.List()
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				if len(metas) != 3 {
					t.Fatalf("List() returned %d entries, want 3", len(metas))
				}
				for i, m := range metas {
					if m.Index != i {
						t.Errorf("metas[%d].Index = %d, want %d", i, m.Index, i)
					}
					if m.UnlockDate != testRecord(i).UnlockDate {
						t.Errorf("metas[%d].UnlockDate = %q, want %q", i, m.UnlockDate, testRecord(i).UnlockDate)
					}
				}

				// Indices are stable across repeated calls absent new writes
				again, err := s.List()
				if err != nil {
					t.Fatalf("List() error = %v", err)
				}
				for i := range metas {
					if again[i] != metas[i] {
						t.Errorf("second List() differs at %d: %+v vs %+v", i, again[i], metas[i])
					}
				}
			})
		})
	}
}

func TestFSReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.Append(testRecord(i)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	s.Close()

	reopened, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS() reopen error = %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Len() after reopen = %d, want 2", n)
	}

	rec, err := reopened.Get(1)
	if err != nil {
		t.Fatalf("Get(1) error = %v", err)
	}
	if rec.UnlockDate != testRecord(1).UnlockDate {
		t.Errorf("Get(1).UnlockDate = %q, want %q", rec.UnlockDate, testRecord(1).UnlockDate)
	}

	index, err := reopened.Append(testRecord(2))
	if err != nil {
		t.Fatalf("Append() after reopen error = %v", err)
	}
	if index != 2 {
		t.Errorf("Append() after reopen index = %d, want 2", index)
	}
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capsules.db")

	s, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.Append(testRecord(i)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("NewSQLite() reopen error = %v", err)
	}
	defer reopened.Close()

	n, err := reopened.Len()
	if err != nil {
		t.Fatalf("Len() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("Len() after reopen = %d, want 2", n)
	}

	index, err := reopened.Append(testRecord(2))
	if err != nil {
		t.Fatalf("Append() after reopen error = %v", err)
	}
	if index != 2 {
		t.Errorf("Append() after reopen index = %d, want 2", index)
	}
}
