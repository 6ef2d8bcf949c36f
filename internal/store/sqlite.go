package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vburojevic/buildtl/internal/domain"
)

const schemaSQL = `CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SessionKey is the key the session is stored under
const SessionKey = "buildtl.session"

// SQLiteStorage keeps the session in a key-value table of a SQLite database
type SQLiteStorage struct {
	db   *sql.DB
	path string
	key  string
}

// OpenSQLite opens (creating if needed) the database at path.
// Use ":memory:" for an in-memory database.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: path, key: SessionKey}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path
func (s *SQLiteStorage) Path() string {
	return s.path
}

// Load implements Storage
func (s *SQLiteStorage) Load() (*domain.Session, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return decode([]byte(value))
}

// Save implements Storage
func (s *SQLiteStorage) Save(session *domain.Session) error {
	b, err := encode(session)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.key, string(b), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// putRaw stores an arbitrary value under the session key
func (s *SQLiteStorage) putRaw(value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		s.key, value, time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}
