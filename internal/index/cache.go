package index

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/starford/renewer/internal/apperr"
	"github.com/starford/renewer/internal/checksum"
	"github.com/starford/renewer/internal/models"
	"github.com/starford/renewer/internal/parser"
	"github.com/starford/renewer/internal/storage"
)

var schemeRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*:`)

// Cache is the vault metadata cache: it answers which links a note contains
// and where a link path points, keeping the SQLite index in step with disk.
type Cache struct {
	db     *DB
	store  storage.Provider
	logger *slog.Logger
}

// NewCache creates a metadata cache over db and store.
func NewCache(db *DB, store storage.Provider, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{db: db, store: store, logger: logger}
}

// IsNote reports whether p names a Markdown note.
func IsNote(p string) bool {
	return strings.HasSuffix(strings.ToLower(p), ".md")
}

// IsExternal reports whether link carries a URL scheme (http:, mailto:, obsidian:).
func IsExternal(link string) bool {
	return schemeRe.MatchString(link)
}

// LinkPath strips the #fragment from link and percent-decodes the rest.
// Undecodable input is returned as-is.
func LinkPath(link string) string {
	if i := strings.Index(link, "#"); i >= 0 {
		link = link[:i]
	}
	if decoded, err := url.PathUnescape(link); err == nil {
		return decoded
	}
	return link
}

// FileLinks returns the current link records of the note at p with their
// resolved targets. Notes that opt out of relinking report no links.
func (c *Cache) FileLinks(p string) ([]models.LinkRef, error) {
	data, err := c.store.Read(p)
	if err != nil {
		return nil, err
	}
	res, err := c.indexNote(p, data)
	if err != nil {
		return nil, err
	}
	if !res.Relink {
		return nil, nil
	}
	return res.Links, nil
}

// IndexFile parses data (for notes) and upserts it into the index.
func (c *Cache) IndexFile(p string, data []byte) error {
	if !IsNote(p) {
		return c.db.UpsertFile(FileRow{Path: p, Checksum: checksum.Sum(data), UpdatedAt: time.Now()}, nil)
	}
	_, err := c.indexNote(p, data)
	return err
}

func (c *Cache) indexNote(p string, data []byte) (*parser.Result, error) {
	res, err := parser.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("index: parse %s: %w", p, err)
	}
	for i := range res.Links {
		if target, ok := c.FirstLinkpathDest(res.Links[i].Link, p); ok {
			res.Links[i].Target = target
		}
	}
	cs := checksum.Sum(data)
	if stored, _ := c.db.GetChecksum(p); stored == cs {
		return res, nil
	}
	row := FileRow{Path: p, Checksum: cs, IsNote: true, UpdatedAt: time.Now()}
	if err := c.db.UpsertFile(row, res.Links); err != nil {
		return nil, err
	}
	return res, nil
}

// Refresh re-reads p from disk; a missing file is dropped from the index.
func (c *Cache) Refresh(p string) error {
	data, err := c.store.Read(p)
	if errors.Is(err, apperr.ErrNotFound) {
		return c.db.DeleteFile(p)
	}
	if err != nil {
		return err
	}
	return c.IndexFile(p, data)
}

// Remove drops p from the index.
func (c *Cache) Remove(p string) error {
	return c.db.DeleteFile(p)
}

// Backlinks returns the notes whose indexed links resolved to target.
func (c *Cache) Backlinks(target string) ([]string, error) {
	return c.db.Backlinks(target)
}

// FirstLinkpathDest resolves a link path written in source to a vault file.
func (c *Cache) FirstLinkpathDest(link, source string) (string, bool) {
	return c.LinkpathDest(link, source)
}

// LinkpathDest resolves a link path against several sources, most relevant
// first. Candidates are tried in phases: relative to each source's directory,
// then vault absolute, then the shortest vault path ending with the link
// path. Extensionless candidates also try ".md".
func (c *Cache) LinkpathDest(link string, sources ...string) (string, bool) {
	if IsExternal(link) {
		return "", false
	}
	lp := LinkPath(link)
	if lp == "" {
		return "", false
	}

	var candidates []string
	if !strings.HasPrefix(lp, "/") {
		for _, src := range sources {
			candidates = append(candidates, path.Join(path.Dir(src), lp))
		}
	}
	candidates = append(candidates, path.Clean(strings.TrimPrefix(lp, "/")))
	for _, cand := range candidates {
		if p, ok := c.existing(cand); ok {
			return p, true
		}
	}

	suffix := path.Clean(strings.TrimPrefix(lp, "/"))
	for strings.HasPrefix(suffix, "../") {
		suffix = strings.TrimPrefix(suffix, "../")
	}
	suffixes := []string{suffix}
	if path.Ext(suffix) == "" {
		suffixes = append(suffixes, suffix+".md")
	}
	for _, sfx := range suffixes {
		paths, err := c.db.PathsByName(path.Base(sfx))
		if err != nil {
			c.logger.Warn("index: name lookup failed", slog.String("name", sfx), slog.String("error", err.Error()))
			return "", false
		}
		if p, ok := matchSuffix(paths, sfx); ok {
			return p, true
		}
	}
	return "", false
}

func (c *Cache) existing(cand string) (string, bool) {
	if cand == "." || cand == ".." || strings.HasPrefix(cand, "../") {
		return "", false
	}
	if c.store.Exists(cand) {
		return cand, true
	}
	if path.Ext(cand) == "" && c.store.Exists(cand+".md") {
		return cand + ".md", true
	}
	return "", false
}

// matchSuffix returns the first path equal to suffix or ending with
// "/"+suffix, ignoring case. paths are ordered shortest first.
func matchSuffix(paths []string, suffix string) (string, bool) {
	suffix = strings.ToLower(suffix)
	for _, p := range paths {
		lp := strings.ToLower(p)
		if lp == suffix || strings.HasSuffix(lp, "/"+suffix) {
			return p, true
		}
	}
	return "", false
}
