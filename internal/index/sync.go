package index

import (
	"log/slog"

	"github.com/starford/renewer/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - attachments are recorded first so note links can resolve against them
//   - new/changed notes are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(cache *Cache, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.Files("")
	if err != nil {
		return err
	}

	checksums, err := cache.db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	var notes []string
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		if IsNote(m.Path) {
			notes = append(notes, m.Path)
			continue
		}
		if err := cache.db.UpsertFile(FileRow{Path: m.Path, Checksum: m.Checksum, UpdatedAt: m.UpdatedAt}, nil); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		}
	}

	// Notes need a files row before any link can resolve to them by name.
	for _, p := range notes {
		if err := cache.db.UpsertFile(FileRow{Path: p, IsNote: true}, nil); err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	for _, p := range notes {
		data, err := store.Read(p)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if err := cache.IndexFile(p, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", p))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := cache.db.DeleteFile(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}
