// Package sqlitestore persists the access token in a local SQLite file so it
// survives process restarts.
package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/pinterest-auth/internal/errors"
	"github.com/jrsteele09/pinterest-auth/token"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT    NOT NULL,
	key        TEXT    NOT NULL,
	value      TEXT    NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
)`

var _ token.Store = (*Store)(nil)

// Store keeps the token in the kv table under token.Namespace.
type Store struct {
	sqlDB *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, apperrors.Wrapf(err, "create storage folder")
	}
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, apperrors.Wrapf(err, "open sqlite db")
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrapf(err, "ping sqlite db")
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.Wrapf(err, "create schema")
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context) (string, error) {
	if s == nil || s.sqlDB == nil {
		return "", apperrors.ErrStoreClosed
	}
	var value string
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE namespace = ? AND key = ?`,
		token.Namespace, token.Key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", token.ErrNotFound
	}
	if err != nil {
		return "", apperrors.Wrapf(err, "select token")
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, accessToken string) error {
	if s == nil || s.sqlDB == nil {
		return apperrors.ErrStoreClosed
	}
	if accessToken == "" {
		return apperrors.ErrEmptyToken
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		token.Namespace, token.Key, accessToken, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return apperrors.Wrapf(err, "upsert token")
	}
	return nil
}
