package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// SQLite is a Store backed by a single SQLite database file.
type SQLite struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// OpenSQLite opens (creating if needed) the settings database at path and
// applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("settings path must not be empty")
	}

	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("settings path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite settings %q: %w", cleanPath, err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping sqlite settings %q: %w", cleanPath, err)
	}

	if err := EnsureSchema(db); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &SQLite{path: cleanPath, db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLite) Path() string {
	if s == nil {
		return ""
	}

	return s.path
}

// Get implements Store.
func (s *SQLite) Get(key string) (string, bool, error) {
	var value string

	err := s.withRetry("get "+key, func() error {
		return s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, err
	}

	return value, true, nil
}

// Set implements Store.
func (s *SQLite) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("set "+key, func() error {
		_, err := s.db.Exec(`
INSERT INTO settings (key, value, updated_at_utc) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
  value=excluded.value,
  updated_at_utc=excluded.updated_at_utc
`, key, value, time.Now().UTC().Format(time.RFC3339Nano))

		return err
	})
}

// Delete implements Store.
func (s *SQLite) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("delete "+key, func() error {
		_, err := s.db.Exec(`DELETE FROM settings WHERE key = ?`, key)

		return err
	})
}

// List implements Store.
func (s *SQLite) List(prefix string) (map[string]string, error) {
	out := make(map[string]string)

	err := s.withRetry("list "+prefix, func() error {
		clear(out)

		rows, err := s.db.Query(`SELECT key, value FROM settings WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var k, v string
			if err := rows.Scan(&k, &v); err != nil {
				return err
			}

			out[k] = v
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (s *SQLite) withRetry(op string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, sql.ErrNoRows) {
			return err
		}

		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}

		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}

	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
