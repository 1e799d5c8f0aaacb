package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/starford/renewer/internal/storage"
)

// renamePairWindow bounds how long a Rename on an old path waits for the
// matching Create on the new path.
const renamePairWindow = time.Second

// EventCallback is called after a watcher-driven index change.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// RenameCallback is called when a note moved within the vault. moves maps
// every old path of the operation to its new path: the note alone for a file
// move, every file inside the directory for a directory move, which calls
// back once per note.
type RenameCallback func(newPath, oldPath string, moves map[string]string)

// Hooks are the optional watcher callbacks.
type Hooks struct {
	OnChange EventCallback
	OnRename RenameCallback
}

type pendingRename struct {
	old string
	dir bool
	at  time.Time
}

// Watch starts an fsnotify watcher on the vault root and processes file
// change events until ctx is cancelled.
//
// fsnotify reports a move as Rename on the old path followed by Create on
// the new one. Watch pairs them (same basename, or the only pending rename,
// within renamePairWindow) and reports the move through hooks.OnRename after
// the new path is indexed. New directories are added to the watch list and a
// debounced reconciliation pass catches moves out of the vault.
func Watch(ctx context.Context, cache *Cache, store storage.Provider, logger *slog.Logger, hooks Hooks) error {
	vaultRoot := store.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dirs := make(map[string]struct{})
	if err := addDirsRecursive(w, vaultRoot, dirs); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var pending []pendingRename

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(2 * renamePairWindow)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(2 * renamePairWindow)
		}
	}

	changed := func(kind, rel string) {
		if hooks.OnChange != nil {
			hooks.OnChange(kind, rel)
		}
	}
	renamed := func(newRel, oldRel string, moves map[string]string) {
		logger.Debug("watcher: moved", slog.String("from", oldRel), slog.String("to", newRel))
		if hooks.OnRename != nil {
			hooks.OnRename(newRel, oldRel, moves)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			if err := Sync(cache, store, logger); err != nil {
				logger.Warn("reconcile: sync failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if storage.IsHidden(filepath.Base(absPath)) {
				continue
			}
			rel, relErr := filepath.Rel(vaultRoot, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			now := time.Now()

			switch {
			case ev.Op&fsnotify.Create != 0:
				info, statErr := os.Stat(absPath)
				if statErr != nil {
					continue
				}
				if info.IsDir() {
					if addErr := addDirsRecursive(w, absPath, dirs); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					}
					var oldDir string
					var moved bool
					oldDir, pending, moved = takePending(pending, rel, true, now)
					moves := make(map[string]string)
					var order []string
					indexDir(cache, store, absPath, logger, func(newRel string) {
						if !moved {
							changed("created", newRel)
							return
						}
						oldRel := path.Join(oldDir, newRel[len(rel)+1:])
						_ = cache.Remove(oldRel)
						moves[oldRel] = newRel
						if IsNote(newRel) {
							order = append(order, oldRel)
						}
					})
					for _, oldRel := range order {
						renamed(moves[oldRel], oldRel, moves)
					}
					continue
				}

				data, readErr := store.Read(rel)
				if readErr != nil {
					logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", readErr.Error()))
					continue
				}
				if idxErr := cache.IndexFile(rel, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				var oldRel string
				var moved bool
				oldRel, pending, moved = takePending(pending, rel, false, now)
				if moved {
					renamed(rel, oldRel, map[string]string{oldRel: rel})
				} else {
					changed("created", rel)
				}

			case ev.Op&fsnotify.Write != 0:
				data, readErr := store.Read(rel)
				if readErr != nil {
					continue
				}
				if idxErr := cache.IndexFile(rel, data); idxErr != nil {
					logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
					continue
				}
				logger.Debug("watcher: indexed", slog.String("path", rel))
				changed("updated", rel)

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				_, isDir := dirs[absPath]
				if isDir {
					forgetDirs(w, absPath, dirs)
				} else {
					if delErr := cache.Remove(rel); delErr != nil {
						logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					}
					changed("deleted", rel)
				}
				if ev.Op&fsnotify.Rename != 0 && (isDir || IsNote(rel)) {
					pending = append(pending, pendingRename{old: rel, dir: isDir, at: now})
					scheduleReconcile()
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// takePending finds the pending rename that newRel completes and removes it.
// Expired entries are dropped. A same-basename match wins; otherwise a lone
// pending rename of the same kind is taken.
func takePending(pending []pendingRename, newRel string, dir bool, now time.Time) (string, []pendingRename, bool) {
	live := pending[:0]
	for _, p := range pending {
		if now.Sub(p.at) <= renamePairWindow {
			live = append(live, p)
		}
	}

	match, candidates := -1, 0
	for i, p := range live {
		if p.dir != dir || p.old == newRel {
			continue
		}
		candidates++
		if path.Base(p.old) == path.Base(newRel) {
			match = i
			break
		}
		if candidates == 1 {
			match = i
		}
	}
	if match < 0 || (candidates > 1 && path.Base(live[match].old) != path.Base(newRel)) {
		return "", live, false
	}
	old := live[match].old
	return old, append(live[:match], live[match+1:]...), true
}

// indexDir indexes every file found in a newly created directory and calls
// visit with each indexed path.
func indexDir(cache *Cache, store storage.Provider, dirPath string, logger *slog.Logger, visit func(rel string)) {
	vaultRoot := store.Root()
	var notes []string
	_ = filepath.WalkDir(dirPath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if storage.IsHidden(d.Name()) {
			if d.IsDir() && p != dirPath {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(vaultRoot, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		data, readErr := store.Read(rel)
		if readErr != nil {
			return nil
		}
		if idxErr := cache.IndexFile(rel, data); idxErr != nil {
			logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", idxErr.Error()))
			return nil
		}
		notes = append(notes, rel)
		return nil
	})
	for _, rel := range notes {
		visit(rel)
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string, dirs map[string]struct{}) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && storage.IsHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			return err
		}
		dirs[p] = struct{}{}
		return nil
	})
}

// forgetDirs drops root and its subdirectories from the watch set.
func forgetDirs(w *fsnotify.Watcher, root string, dirs map[string]struct{}) {
	prefix := root + string(os.PathSeparator)
	for d := range dirs {
		if d == root || len(d) > len(prefix) && d[:len(prefix)] == prefix {
			_ = w.Remove(d)
			delete(dirs, d)
		}
	}
}
