package linkrewrite

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// idealPath is where a link in note should point to reach target: the vault
// path for notes at the vault root, otherwise the path relative to the note's
// directory.
func idealPath(note, target string) string {
	dir := path.Dir(note)
	if dir == "." || dir == "/" {
		return target
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// leavesDir reports whether a relative path climbs out of its base directory.
func leavesDir(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

// encodeLinkPath renders p as a Markdown link destination. Spaces become %20;
// when that still leaves characters unsafe in a destination the path is
// fully URI-encoded instead.
func encodeLinkPath(p string) string {
	spaced := strings.ReplaceAll(p, " ", "%20")
	if !needsFullEncoding(p) {
		return spaced
	}
	return (&url.URL{Path: p}).EscapedPath()
}

func needsFullEncoding(p string) bool {
	for _, r := range p {
		switch {
		case r == '(' || r == ')' || r == '<' || r == '>' || r == '%':
			return true
		case r < 0x20 || r == 0x7f:
			return true
		}
	}
	return false
}

// displayName is a file's basename, without ".md" for notes.
func displayName(target string) string {
	base := path.Base(target)
	if strings.EqualFold(path.Ext(base), ".md") {
		return strings.TrimSuffix(base, path.Ext(base))
	}
	return base
}
