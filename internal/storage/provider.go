// Package storage defines the vault file-system abstraction.
package storage

import "github.com/starford/renewer/internal/models"

// Provider is the interface for vault file operations.
// All paths are slash-separated and relative to the vault root.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.FileMetadata, error)
	// Files returns metadata for every file under dir, attachments included.
	Files(dir string) ([]models.FileMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
	// Copy duplicates src to dst, creating parent directories.
	Copy(src, dst string) error
	// Exists reports whether a regular file exists at path.
	Exists(path string) bool
	// Root returns the absolute vault directory.
	Root() string
}
