package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/glebarez/go-sqlite"
)

type SQLiteStore struct {
	db         *sql.DB
	writeMutex *sync.Mutex
}

// NewSQLiteStore opens a store with the given filename as the db.
// If file name is empty, a new in-memory db is opened.
func NewSQLiteStore(filename string) (SQLiteStore, error) {
	if filename == "" {
		filename = "file::memory:?cache=shared"
	}
	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return SQLiteStore{}, fmt.Errorf("%w: open %s: %v", ErrUnavailable, filename, err)
	}
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS objects (
		key TEXT PRIMARY KEY,
		state TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		bytes BLOB
	)`)
	if err != nil {
		db.Close()
		return SQLiteStore{}, fmt.Errorf("%w: create table: %v", ErrUnavailable, err)
	}
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return SQLiteStore{}, fmt.Errorf("%w: set journal mode: %v", ErrUnavailable, err)
	}
	return SQLiteStore{
		db:         db,
		writeMutex: &sync.Mutex{},
	}, nil
}

func (s SQLiteStore) Head(ctx context.Context, key string) (Metadata, bool, error) {
	var meta Metadata
	var state string
	err := s.db.QueryRowContext(ctx,
		"SELECT state, content_type FROM objects WHERE key = ?", key,
	).Scan(&state, &meta.ContentType)
	if errors.Is(err, sql.ErrNoRows) {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, fmt.Errorf("%w: head %s: %v", ErrUnavailable, key, err)
	}
	meta.State = State(state)
	return meta, true, nil
}

func (s SQLiteStore) Get(ctx context.Context, key string) ([]byte, Metadata, error) {
	var meta Metadata
	var state string
	var bytes []byte
	err := s.db.QueryRowContext(ctx,
		"SELECT state, content_type, bytes FROM objects WHERE key = ?", key,
	).Scan(&state, &meta.ContentType, &bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, Metadata{}, ErrNotFound
	}
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	meta.State = State(state)
	return bytes, meta, nil
}

func (s SQLiteStore) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO objects (key, state, content_type, bytes) VALUES (?, ?, ?, ?)",
		key, string(meta.State), meta.ContentType, data)
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", ErrUnavailable, key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s SQLiteStore) Close() error {
	return s.db.Close()
}
