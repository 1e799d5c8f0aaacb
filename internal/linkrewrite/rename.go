package linkrewrite

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"
)

// dedupWindow suppresses a second OnRename for the same move, which happens
// when a move made through the API is also seen by the watcher.
const dedupWindow = 5 * time.Second

// ShouldHandleRename reports whether a rename from oldPath to file needs its
// links rewritten: a note that changed directory.
func ShouldHandleRename(file, oldPath string) bool {
	if oldPath == "" || file == "" {
		return false
	}
	if !strings.HasSuffix(strings.ToLower(file), ".md") {
		return false
	}
	return path.Dir(file) != path.Dir(oldPath)
}

// OnRename handles a note moved from oldPath to file. After the settle delay
// the note's own links are rewritten (with a notice) and, when enabled,
// notes that linked to the old location are repaired. It returns the number
// of links rewritten in the moved note.
func (r *Rewriter) OnRename(ctx context.Context, file, oldPath string) (int, error) {
	return r.OnMove(ctx, file, oldPath, nil)
}

// OnMove is OnRename for a note moved along with other files, as in a
// directory move. moves maps every old path of the operation to its new path.
func (r *Rewriter) OnMove(ctx context.Context, file, oldPath string, moves map[string]string) (int, error) {
	if !ShouldHandleRename(file, oldPath) {
		return 0, nil
	}
	if r.seenMove(file, oldPath) {
		r.logger.Debug("linkrewrite: rename already handled", slog.String("path", file), slog.String("old_path", oldPath))
		return 0, nil
	}

	if r.opts.RenameDelay > 0 {
		t := time.NewTimer(r.opts.RenameDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		case <-t.C:
		}
	}

	moved := make(map[string]string, len(moves)+1)
	for from, to := range moves {
		moved[from] = to
	}
	moved[oldPath] = file
	n, err := r.replace(ctx, file, true, resolveHint{prev: oldPath, moved: moved})
	if err != nil {
		return 0, err
	}
	if r.opts.RepairBacklinks {
		r.repairBacklinks(ctx, file, oldPath, moved)
	}
	return n, nil
}

// repairBacklinks rewrites notes whose links pointed at oldPath.
func (r *Rewriter) repairBacklinks(ctx context.Context, file, oldPath string, moved map[string]string) {
	sources, err := r.cache.Backlinks(oldPath)
	if err != nil {
		r.logger.Warn("linkrewrite: backlinks lookup failed", slog.String("path", oldPath), slog.String("error", err.Error()))
		return
	}
	links, notes := 0, 0
	for _, src := range sources {
		if src == file || src == oldPath {
			continue
		}
		// Moved in the same operation; handled by its own rename.
		if _, gone := moved[src]; gone {
			continue
		}
		n, err := r.replace(ctx, src, false, resolveHint{moved: moved})
		if err != nil {
			continue
		}
		if n > 0 {
			links += n
			notes++
		}
	}
	if links > 0 {
		r.notifier.Notice(fmt.Sprintf("Update %d links in %d notes linking to %s.", links, notes, file))
	}
}

func (r *Rewriter) seenMove(file, oldPath string) bool {
	key := file + "\x00" + oldPath
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for k, at := range r.moves {
		if now.Sub(at) > dedupWindow {
			delete(r.moves, k)
		}
	}
	if at, ok := r.moves[key]; ok && now.Sub(at) <= dedupWindow {
		return true
	}
	r.moves[key] = now
	return false
}
