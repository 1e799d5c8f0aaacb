// Package settings persists user settings (the summary webhook URL) in a
// SQLite key-value table.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/renewer/internal/apperr"
)

// KeyWebhookURL is the storage key of the summary webhook URL.
const KeyWebhookURL = "webhookUrl"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store reads and writes the webhook URL.
type Store interface {
	WebhookURL(ctx context.Context) (string, error)
	SetWebhookURL(ctx context.Context, raw string) (string, error)
}

// SQLiteStore is a Store backed by the kv table.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (or creates) the settings database at dsn.
func Open(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("settings: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("settings: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("settings: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Get returns the value stored under key, or "" when unset.
func (s *SQLiteStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.conn.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("settings: get %s: %w", key, err)
	}
	return v, nil
}

// Set stores value under key.
func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	_, err := s.conn.ExecContext(ctx, `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, key, value)
	if err != nil {
		return fmt.Errorf("settings: set %s: %w", key, err)
	}
	return nil
}

// WebhookURL returns the configured webhook URL, "" when none is set.
func (s *SQLiteStore) WebhookURL(ctx context.Context) (string, error) {
	return s.Get(ctx, KeyWebhookURL)
}

// SetWebhookURL validates and stores the webhook URL. The trimmed value is
// returned.
func (s *SQLiteStore) SetWebhookURL(ctx context.Context, raw string) (string, error) {
	v, err := NormalizeWebhookURL(raw)
	if err != nil {
		return "", err
	}
	if err := s.Set(ctx, KeyWebhookURL, v); err != nil {
		return "", err
	}
	return v, nil
}

// NormalizeWebhookURL trims raw and checks it is an absolute http(s) URL.
func NormalizeWebhookURL(raw string) (string, error) {
	v := strings.TrimSpace(raw)
	if err := validation.Validate(v, validation.Required, validation.By(absoluteHTTPURL)); err != nil {
		return "", fmt.Errorf("%w: webhook url: %v", apperr.ErrValidation, err)
	}
	return v, nil
}

func absoluteHTTPURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("must use http or https")
	}
	return nil
}
