// Package linkrewrite keeps Markdown links and embeds relative to the note
// that contains them, on demand and when a note moves between directories.
package linkrewrite

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/starford/renewer/internal/index"
	"github.com/starford/renewer/internal/models"
	"github.com/starford/renewer/internal/parser"
)

// Vault is the file access the rewriter needs from its host.
type Vault interface {
	List(dir string) ([]models.FileMetadata, error)
	Read(path string) ([]byte, error)
	Write(path string, content []byte) error
	Copy(src, dst string) error
	Exists(path string) bool
}

// MetadataCache reports the links of a note and resolves link paths.
type MetadataCache interface {
	FileLinks(path string) ([]models.LinkRef, error)
	// LinkpathDest resolves link against sources, most relevant first.
	LinkpathDest(link string, sources ...string) (string, bool)
	Backlinks(target string) ([]string, error)
	Refresh(path string) error
}

// Notifier shows a short message to the user.
type Notifier interface {
	Notice(msg string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(msg string)

// Notice calls f(msg).
func (f NotifierFunc) Notice(msg string) { f(msg) }

// Options tune rewriting behaviour.
type Options struct {
	// Workers bounds concurrent files in UpdateAll.
	Workers int
	// RenameDelay is how long OnRename waits before rewriting.
	RenameDelay time.Duration
	// LocalizeAttachments copies embedded attachments that live outside the
	// note's directory next to the note.
	LocalizeAttachments bool
	// EmbedWidth is appended as "|<width>" to regenerated attachment embed
	// text; 0 disables it.
	EmbedWidth int
	// RepairBacklinks also rewrites notes that linked to a moved note.
	RepairBacklinks bool
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Workers:             8,
		RenameDelay:         100 * time.Millisecond,
		LocalizeAttachments: true,
		EmbedWidth:          400,
		RepairBacklinks:     true,
	}
}

// Rewriter rewrites link destinations in notes.
type Rewriter struct {
	vault    Vault
	cache    MetadataCache
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	mu    sync.Mutex
	moves map[string]time.Time // recently handled renames, keyed new\x00old
}

// New creates a Rewriter. A nil notifier discards notices.
func New(vault Vault, cache MetadataCache, notifier Notifier, logger *slog.Logger, opts Options) *Rewriter {
	if notifier == nil {
		notifier = NotifierFunc(func(string) {})
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultOptions().Workers
	}
	return &Rewriter{
		vault:    vault,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		moves:    make(map[string]time.Time),
	}
}

// resolveHint carries move context into a rewrite pass.
type resolveHint struct {
	// prev is the note's previous path; its links were written relative to it.
	prev string
	// moved maps old -> new vault paths of files moved by this operation.
	moved map[string]string
}

// pair is one planned substitution.
type pair struct {
	original    string
	replacement string
}

// Replace rewrites the links of file that do not point at their target
// relative to file's location and returns how many were updated. When notify
// is set the outcome is also reported through the Notifier.
func (r *Rewriter) Replace(ctx context.Context, file string, notify bool) (int, error) {
	return r.replace(ctx, file, notify, resolveHint{})
}

func (r *Rewriter) replace(ctx context.Context, file string, notify bool, hint resolveHint) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	links, err := r.cache.FileLinks(file)
	if err != nil {
		r.fail(file, notify, err)
		return 0, fmt.Errorf("linkrewrite: links of %s: %w", file, err)
	}

	var pairs []pair
	for _, l := range links {
		if p, ok := r.plan(file, l, hint, notify); ok {
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	content, err := r.vault.Read(file)
	if err != nil {
		r.fail(file, notify, err)
		return 0, fmt.Errorf("linkrewrite: read %s: %w", file, err)
	}
	updated, count := applyPairs(content, pairs)
	if count == 0 {
		return 0, nil
	}
	if err := r.vault.Write(file, updated); err != nil {
		r.fail(file, notify, err)
		return 0, fmt.Errorf("linkrewrite: write %s: %w", file, err)
	}
	if err := r.cache.Refresh(file); err != nil {
		r.logger.Warn("linkrewrite: refresh cache failed", slog.String("path", file), slog.String("error", err.Error()))
	}

	msg := fmt.Sprintf("Update %d links in %s.", count, file)
	r.logger.Info(msg, slog.String("path", file), slog.Int("links", count))
	if notify {
		r.notifier.Notice(msg)
	}
	return count, nil
}

func (r *Rewriter) fail(file string, notify bool, err error) {
	r.logger.Error("linkrewrite: update failed", slog.String("path", file), slog.String("error", err.Error()))
	if notify {
		r.notifier.Notice("Update links error, see log.")
	}
}

// applyPairs substitutes the first occurrence of each original in the body
// (frontmatter and code excluded), in order, and reports how many were found.
func applyPairs(content []byte, pairs []pair) ([]byte, int) {
	offset := 0
	if res, err := parser.Parse(content); err == nil {
		offset = res.BodyOffset
	}
	head, body := string(content[:offset]), string(content[offset:])

	count := 0
	for _, p := range pairs {
		var ok bool
		if body, ok = parser.ReplaceOutsideCode(body, p.original, p.replacement); ok {
			count++
		}
	}
	return []byte(head + body), count
}

// plan applies the decision table to one link. It returns the substitution
// and true when the link needs rewriting.
//
//	R0 wikilink, external URL or anchor-only link      -> skip
//	R1 target not resolvable                           -> skip
//	R2 attachment embed outside the note's directory   -> copy next to the note, link the copy
//	R3 display text is a stale path                    -> regenerate from the target name
//	R4 decoded destination differs from the ideal path -> rewrite destination
func (r *Rewriter) plan(file string, l models.LinkRef, hint resolveHint, notify bool) (pair, bool) {
	if l.Kind != models.LinkMarkdown {
		return pair{}, false
	}
	open := strings.Index(l.Original, "](")
	if open < 0 || !strings.HasSuffix(l.Original, ")") {
		return pair{}, false
	}
	dest, title := parser.SplitDestination(l.Original[open+2 : len(l.Original)-1])
	if index.IsExternal(dest) || index.LinkPath(dest) == "" {
		return pair{}, false
	}

	target, ok := r.resolve(dest, file, hint)
	if !ok {
		return pair{}, false
	}

	isNote := index.IsNote(target)
	newPath := idealPath(file, target)

	if l.Embed && !isNote && leavesDir(newPath) && r.opts.LocalizeAttachments {
		local := path.Base(target)
		if parent := path.Base(path.Dir(target)); parent != "." && parent != "/" {
			local = path.Join(parent, local)
		}
		copyDst := path.Join(path.Dir(file), local)
		if err := r.localize(target, copyDst); err != nil {
			r.logger.Warn("linkrewrite: copy failed",
				slog.String("from", target), slog.String("to", copyDst), slog.String("error", err.Error()))
			if notify {
				r.notifier.Notice(fmt.Sprintf("Copy %s to %s failed: %v", target, copyDst, err))
			}
			return pair{}, false
		}
		newPath = local
	}

	newText := l.Text
	if staleText(l, isNote) {
		newText = displayName(target)
		if l.Embed && !isNote && r.opts.EmbedWidth > 0 {
			newText = fmt.Sprintf("%s|%d", newText, r.opts.EmbedWidth)
		}
	}

	newDest := dest
	if index.LinkPath(dest) != newPath {
		newDest = encodeLinkPath(newPath) + fragment(dest)
	}

	if newText == l.Text && newDest == dest {
		return pair{}, false
	}

	prefix := ""
	if l.Embed {
		prefix = "!"
	}
	return pair{
		original:    l.Original,
		replacement: prefix + "[" + newText + "](" + newDest + title + ")",
	}, true
}

// resolve finds the vault file dest points to. Links of a moved note are
// resolved against its previous location first, and files moved by the same
// operation are looked up in hint.moved before the cache.
func (r *Rewriter) resolve(dest, file string, hint resolveHint) (string, bool) {
	sources := []string{file}
	if hint.prev != "" {
		sources = []string{hint.prev, file}
	}
	if lp := index.LinkPath(dest); lp != "" && !strings.HasPrefix(lp, "/") {
		for _, src := range sources {
			if moved, ok := hint.moved[path.Join(path.Dir(src), lp)]; ok {
				return moved, true
			}
		}
	}
	return r.cache.LinkpathDest(dest, sources...)
}

// localize copies src to dst unless dst already holds the same bytes.
func (r *Rewriter) localize(src, dst string) error {
	if r.vault.Exists(dst) {
		have, err := r.vault.Read(dst)
		if err != nil {
			return err
		}
		want, err := r.vault.Read(src)
		if err != nil {
			return err
		}
		if bytes.Equal(have, want) {
			return nil
		}
		return errors.New("destination exists with different content")
	}
	if err := r.vault.Copy(src, dst); err != nil {
		return err
	}
	if err := r.cache.Refresh(dst); err != nil {
		r.logger.Warn("linkrewrite: refresh cache failed", slog.String("path", dst), slog.String("error", err.Error()))
	}
	return nil
}

// staleText reports whether a link's display text is a leftover path rather
// than a name: for notes a path-like text, for attachments an empty or
// path-like text.
func staleText(l models.LinkRef, isNote bool) bool {
	t := strings.TrimSpace(l.Text)
	if isNote {
		return strings.Contains(t, "/") || strings.HasSuffix(strings.ToLower(t), ".md") || strings.Contains(t, "%")
	}
	return t == "" || strings.Contains(t, "/")
}

func fragment(dest string) string {
	if i := strings.Index(dest, "#"); i >= 0 {
		return dest[i:]
	}
	return ""
}
