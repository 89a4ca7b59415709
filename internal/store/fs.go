package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chronoseal/capsule-go/internal/capsule"
)

const recordExt = ".qsc"

// FS stores one encoded record per file under a directory. File names carry
// a zero-padded sequence number so lexical order is creation order.
type FS struct {
	dir string

	mu    sync.Mutex
	count int
}

// NewFS opens (creating if needed) a filesystem store rooted at dir and
// counts the records already present.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "capsule-") && strings.HasSuffix(e.Name(), recordExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	return &FS{dir: dir, count: len(names)}, nil
}

func (s *FS) path(index int) string {
	// File names are 1-based for human listing; indices stay 0-based.
	return filepath.Join(s.dir, fmt.Sprintf("capsule-%06d%s", index+1, recordExt))
}

// Append persists a record and returns its 0-based index.
func (s *FS) Append(rec *capsule.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := s.count
	if err := os.WriteFile(s.path(index), capsule.Encode(rec), 0o600); err != nil {
		return 0, err
	}
	s.count++
	return index, nil
}

// Get returns the record at a 0-based index.
func (s *FS) Get(index int) (*capsule.Record, error) {
	if index < 0 || index >= s.size() {
		return nil, ErrIndexOutOfRange
	}

	data, err := os.ReadFile(s.path(index))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrIndexOutOfRange
		}
		return nil, err
	}
	return capsule.Decode(data)
}

// List returns the metadata of every record in creation order.
func (s *FS) List() ([]Meta, error) {
	n := s.size()

	metas := make([]Meta, 0, n)
	for i := 0; i < n; i++ {
		rec, err := s.Get(i)
		if err != nil {
			return nil, err
		}
		metas = append(metas, Meta{Index: i, CreatedAt: rec.CreatedAt, UnlockDate: rec.UnlockDate})
	}
	return metas, nil
}

// Len returns the number of stored records.
func (s *FS) Len() (int, error) {
	return s.size(), nil
}

// Close is a no-op for the filesystem store.
func (s *FS) Close() error {
	return nil
}

func (s *FS) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
