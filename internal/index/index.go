package index

import "github.com/starford/renewer/internal/models"

// FileIndex defines the persistence operations of the metadata cache.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type FileIndex interface {
	UpsertFile(f FileRow, links []models.LinkRef) error
	DeleteFile(path string) error
	GetChecksum(path string) (string, error)
	Links(source string) ([]models.LinkRef, error)
	Backlinks(target string) ([]string, error)
	PathsByName(name string) ([]string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies FileIndex at compile time.
var _ FileIndex = (*DB)(nil)
