// Package noteservice coordinates vault operations that span storage, the
// metadata cache and the link rewriter.
package noteservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/renewer/internal/apperr"
	"github.com/starford/renewer/internal/checksum"
	"github.com/starford/renewer/internal/index"
	"github.com/starford/renewer/internal/linkrewrite"
	"github.com/starford/renewer/internal/models"
	"github.com/starford/renewer/internal/storage"
)

// NoteLinks describes the links of one note.
type NoteLinks struct {
	Path      string           `json:"path"`
	Checksum  string           `json:"checksum"`
	Links     []models.LinkRef `json:"links"`
	Backlinks []string         `json:"backlinks"`
}

// MoveResult reports a completed move.
type MoveResult struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Links int    `json:"links"`
}

// Service coordinates storage, index and rewriter operations.
type Service struct {
	store    storage.Provider
	cache    *index.Cache
	rewriter *linkrewrite.Rewriter
}

// NewService creates a new note service.
func NewService(store storage.Provider, cache *index.Cache, rewriter *linkrewrite.Rewriter) *Service {
	return &Service{store: store, cache: cache, rewriter: rewriter}
}

// Links returns the links of a note with their resolved targets, and the
// notes linking to it.
func (s *Service) Links(_ context.Context, path string) (*NoteLinks, error) {
	if !index.IsNote(path) {
		return nil, fmt.Errorf("%w: %s is not a note", apperr.ErrValidation, path)
	}
	data, err := s.store.Read(path)
	if err != nil {
		return nil, err
	}
	links, err := s.cache.FileLinks(path)
	if err != nil {
		return nil, err
	}
	bl, err := s.cache.Backlinks(path)
	if err != nil {
		return nil, err
	}
	return &NoteLinks{
		Path:      path,
		Checksum:  checksum.Sum(data),
		Links:     nonNilSlice(links),
		Backlinks: nonNilSlice(bl),
	}, nil
}

// UpdateLinks rewrites the links of one note.
func (s *Service) UpdateLinks(ctx context.Context, path string) (int, error) {
	if !index.IsNote(path) {
		return 0, fmt.Errorf("%w: %s is not a note", apperr.ErrValidation, path)
	}
	return s.rewriter.Replace(ctx, path, true)
}

// UpdateAll rewrites the links of every note.
func (s *Service) UpdateAll(ctx context.Context, progress linkrewrite.ProgressFunc) (linkrewrite.Report, error) {
	return s.rewriter.UpdateAll(ctx, progress)
}

// Move renames a note inside the vault and rewrites links affected by the
// move: the note's own and those of notes pointing at it.
func (s *Service) Move(ctx context.Context, from, to string) (*MoveResult, error) {
	from, to = strings.TrimPrefix(from, "/"), strings.TrimPrefix(to, "/")
	if from == to {
		return nil, fmt.Errorf("%w: source and destination are the same", apperr.ErrValidation)
	}
	if !index.IsNote(from) || !index.IsNote(to) {
		return nil, fmt.Errorf("%w: only notes (.md) can be moved", apperr.ErrValidation)
	}
	if err := s.store.Move(from, to); err != nil {
		return nil, err
	}
	if err := s.cache.Remove(from); err != nil {
		return nil, err
	}
	if err := s.cache.Refresh(to); err != nil {
		return nil, err
	}
	n, err := s.rewriter.OnRename(ctx, to, from)
	if err != nil {
		return nil, err
	}
	return &MoveResult{From: from, To: to, Links: n}, nil
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
