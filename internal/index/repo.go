package index

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/starford/renewer/internal/models"
)

// FileRow represents a row in the files table.
type FileRow struct {
	Path      string
	Checksum  string
	IsNote    bool
	UpdatedAt time.Time
}

// nameKey is the case-insensitive basename used for link-path lookups.
func nameKey(p string) string {
	return strings.ToLower(path.Base(p))
}

// UpsertFile inserts or replaces a file and its link records within a transaction.
func (db *DB) UpsertFile(f FileRow, links []models.LinkRef) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if f.UpdatedAt.IsZero() {
		f.UpdatedAt = time.Now()
	}
	_, err = tx.Exec(`
		INSERT INTO files (path, name, checksum, is_note, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			name       = excluded.name,
			checksum   = excluded.checksum,
			is_note    = excluded.is_note,
			updated_at = excluded.updated_at
	`, f.Path, nameKey(f.Path), f.Checksum, f.IsNote, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert file: %w", err)
	}

	// Replace links: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, f.Path)
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT INTO links (source, pos, original, link, text, kind, embed, target)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for i, l := range links {
			if _, err := stmt.Exec(f.Path, i, l.Original, l.Link, l.Text, string(l.Kind), l.Embed, l.Target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteFile removes a file and its outgoing links.
func (db *DB) DeleteFile(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM files WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a file, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM files WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// Links returns the link records of source in document order.
func (db *DB) Links(source string) ([]models.LinkRef, error) {
	rows, err := db.conn.Query(`SELECT original, link, text, kind, embed, target
		FROM links WHERE source = ? ORDER BY pos`, source)
	if err != nil {
		return nil, fmt.Errorf("index: links: %w", err)
	}
	defer rows.Close()

	var out []models.LinkRef
	for rows.Next() {
		var l models.LinkRef
		var kind string
		if err := rows.Scan(&l.Original, &l.Link, &l.Text, &kind, &l.Embed, &l.Target); err != nil {
			return nil, err
		}
		l.Kind = models.LinkKind(kind)
		out = append(out, l)
	}
	return out, rows.Err()
}

// Backlinks returns the distinct note paths whose links resolved to target.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT source FROM links WHERE target = ? ORDER BY source`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// PathsByName returns every file path whose basename matches name
// case-insensitively, shortest path first.
func (db *DB) PathsByName(name string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT path FROM files WHERE name = ? ORDER BY length(path), path`, strings.ToLower(name))
	if err != nil {
		return nil, fmt.Errorf("index: paths by name: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// AllChecksums returns path -> checksum for every indexed file.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM files`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanStrings(rows rowScanner) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
