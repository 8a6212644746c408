package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"taskhub/internal/logger"
)

// SQLiteBackend stores session blobs in a single SQLite table.
type SQLiteBackend struct {
	db *sql.DB
}

// sqlitePragmas let writers wait for the lock instead of failing with SQLITE_BUSY.
const sqlitePragmas = "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func NewSQLiteBackend(ctx context.Context, dbPath string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// one writer at a time; chat sessions write concurrently
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", dbPath, err)
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug(ctx, "sqlite session storage ready", "path", dbPath)
	return &SQLiteBackend{db: db}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path + "&" + sqlitePragmas
	}
	return "file:" + path + "?" + sqlitePragmas
}

func createTables(ctx context.Context, db *sql.DB) error {
	createSessionState := `
	CREATE TABLE IF NOT EXISTS session_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	)`

	if _, err := db.ExecContext(ctx, createSessionState); err != nil {
		return fmt.Errorf("create table session_state: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) Close() error {
	return s.db.Close()
}

func (s *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM session_state WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (s *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO session_state (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query, key, string(value), time.Now().UTC())
	return err
}

func (s *SQLiteBackend) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM session_state WHERE key = ?", key)
	return err
}

func (s *SQLiteBackend) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key FROM session_state ORDER BY key")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
