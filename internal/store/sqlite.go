package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chronoseal/capsule-go/internal/capsule"
)

// SQLite stores records in a single-file database. Two handles back it: a
// single-connection writer and a small reader pool, so listing and reads
// never queue behind an append.
type SQLite struct {
	writer *sql.DB
	reader *sql.DB
}

// NewSQLite opens (creating if needed) a SQLite-backed store at path and
// applies any pending schema migrations.
func NewSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)", path)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open writer: %w", err)
	}
	writer.SetMaxOpenConns(1)

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		writer.Close()
		return nil, fmt.Errorf("open reader: %w", err)
	}
	reader.SetMaxOpenConns(4)

	if err := writer.Ping(); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("ping writer: %w", err)
	}
	if err := reader.Ping(); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("ping reader: %w", err)
	}

	if err := migrateUp(writer); err != nil {
		writer.Close()
		reader.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLite{writer: writer, reader: reader}, nil
}

// Append persists a record and returns its 0-based index.
func (s *SQLite) Append(rec *capsule.Record) (int, error) {
	tx, err := s.writer.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO capsules (created_at, unlock_date, record) VALUES (?, ?, ?)`,
		rec.CreatedAt, rec.UnlockDate, capsule.Encode(rec),
	); err != nil {
		return 0, err
	}

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM capsules`).Scan(&count); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count - 1, nil
}

// Get returns the record at a 0-based index.
func (s *SQLite) Get(index int) (*capsule.Record, error) {
	if index < 0 {
		return nil, ErrIndexOutOfRange
	}

	var data []byte
	err := s.reader.QueryRow(
		`SELECT record FROM capsules ORDER BY seq LIMIT 1 OFFSET ?`, index,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrIndexOutOfRange
	}
	if err != nil {
		return nil, err
	}

	return capsule.Decode(data)
}

// List returns the metadata of every record in creation order.
func (s *SQLite) List() ([]Meta, error) {
	rows, err := s.reader.Query(`SELECT created_at, unlock_date FROM capsules ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metas []Meta
	for rows.Next() {
		m := Meta{Index: len(metas)}
		if err := rows.Scan(&m.CreatedAt, &m.UnlockDate); err != nil {
			return nil, err
		}
		metas = append(metas, m)
	}
	return metas, rows.Err()
}

// Len returns the number of stored records.
func (s *SQLite) Len() (int, error) {
	var count int
	if err := s.reader.QueryRow(`SELECT COUNT(*) FROM capsules`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes both database handles.
func (s *SQLite) Close() error {
	var firstErr error
	if err := s.writer.Close(); err != nil {
		firstErr = err
	}
	if err := s.reader.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
