// Package models defines the domain types for renewer.
package models

import "time"

// LinkKind distinguishes Markdown links from wikilinks.
type LinkKind string

const (
	LinkMarkdown LinkKind = "markdown"
	LinkWiki     LinkKind = "wikilink"
)

// LinkRef is one link or embed occurrence reported by the metadata cache.
// Original is the exact source text, Link the destination without its title.
type LinkRef struct {
	Original string   `json:"original"`
	Link     string   `json:"link"`
	Text     string   `json:"text"`
	Kind     LinkKind `json:"kind"`
	Embed    bool     `json:"embed"`
	// Target is the vault path the link resolved to when it was indexed.
	Target string `json:"target,omitempty"`
}

// FileMetadata describes any file in the vault.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary is the normalized result of a webhook summary request.
type Summary struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Thumbnail string `json:"thumbnail"`
}
