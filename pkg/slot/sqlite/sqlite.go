// Package sqlite provides a SQLite-backed slot store. It lets several cart
// processes on one host share a cart through a single database file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/eightbitcafe/cart_sdk_go/pkg/slot"
)

//go:embed schema.sql
var schema string

// Store persists slots in SQLite.
type Store struct {
	sqlDB        *sql.DB
	pollInterval time.Duration
	now          func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithPollInterval sets how often Watch checks for changes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// dsn applies the connection pragmas on every pooled connection.
func dsn(path string) string {
	return filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
}

// Open opens the database at path and ensures the slots table exists.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ensure slots table: %w", err)
	}
	s := &Store{sqlDB: sqlDB, pollInterval: slot.DefaultPollInterval, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Get implements slot.Backend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	raw, _, err := s.Version(ctx, key)
	return raw, err
}

// Version returns the slot value and its write counter. A missing slot
// reports version 0.
func (s *Store) Version(ctx context.Context, key string) ([]byte, int64, error) {
	if strings.TrimSpace(key) == "" {
		return nil, 0, slot.ErrKeyRequired
	}
	var (
		raw     []byte
		version int64
	)
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value, version FROM slots WHERE key = ?`, key).Scan(&raw, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, classify("get", err)
	}
	return raw, version, nil
}

// Set implements slot.Backend. Every write bumps the slot version.
func (s *Store) Set(ctx context.Context, key string, raw []byte) error {
	if strings.TrimSpace(key) == "" {
		return slot.ErrKeyRequired
	}
	if raw == nil {
		raw = []byte{}
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO slots (key, value, version, updated_at) VALUES (?, ?, 1, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    version = slots.version + 1,
    updated_at = excluded.updated_at
`, key, raw, s.now().UTC().UnixMilli())
	if err != nil {
		return classify("set", err)
	}
	return nil
}

// Keys lists every stored slot name.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT key FROM slots ORDER BY key`)
	if err != nil {
		return nil, classify("keys", err)
	}
	defer rows.Close()
	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, classify("keys", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("keys", err)
	}
	return keys, nil
}

// Watch implements slot.Watcher by polling the slot version, so writes by
// other processes sharing the file are picked up.
func (s *Store) Watch(ctx context.Context, key string, fn func()) (func(), error) {
	if strings.TrimSpace(key) == "" {
		return nil, slot.ErrKeyRequired
	}
	read := func(ctx context.Context, key string) ([]byte, error) {
		_, version, err := s.Version(ctx, key)
		if err != nil {
			return nil, err
		}
		return []byte(fmt.Sprint(version)), nil
	}
	return slot.Poll(ctx, s.pollInterval, key, read, fn), nil
}

func classify(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3lib.SQLITE_FULL {
		return fmt.Errorf("sqlite slot %s: %v: %w", op, err, slot.ErrQuotaExceeded)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("sqlite slot %s: %v: %w", op, err, slot.ErrUnavailable)
}

var (
	_ slot.Backend = (*Store)(nil)
	_ slot.Watcher = (*Store)(nil)
)
