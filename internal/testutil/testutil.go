// Package testutil provides shared test helpers for setting up vaults and databases.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/renewer/internal/index"
	"github.com/starford/renewer/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "renewer-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// QuietLogger discards everything below error level.
func QuietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Env is a vault on disk with an index synced against it.
type Env struct {
	Dir   string
	Store *storage.FS
	DB    *index.DB
	Cache *index.Cache
}

// NewEnv writes files (vault path -> content) into a fresh vault and syncs
// the index.
func NewEnv(t *testing.T, files map[string]string) *Env {
	t.Helper()
	dir, store := TestVault(t)
	for p, content := range files {
		full := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	db := TestDB(t)
	logger := QuietLogger()
	cache := index.NewCache(db, store, logger)
	if err := index.Sync(cache, store, logger); err != nil {
		t.Fatal(err)
	}
	return &Env{Dir: dir, Store: store, DB: db, Cache: cache}
}

// ReadFile returns the content of a vault file.
func (e *Env) ReadFile(t *testing.T, p string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.Dir, filepath.FromSlash(p)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
