package linkrewrite

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Report aggregates the outcome of UpdateAll.
type Report struct {
	// Links is the total number of rewritten links.
	Links int
	// Files is the number of notes that changed.
	Files int
	// Scanned is the number of notes visited.
	Scanned int
	// Failed maps note paths to the error that stopped their rewrite.
	Failed map[string]error
}

// Message is the user-facing summary of the report.
func (r Report) Message() string {
	if len(r.Failed) > 0 {
		return "Update links error, see log."
	}
	suffix := ""
	if r.Files > 1 {
		suffix = "s"
	}
	return fmt.Sprintf("Update %d links in %d file%s.", r.Links, r.Files, suffix)
}

// FailedPaths lists failed notes in lexical order.
func (r Report) FailedPaths() []string {
	out := make([]string, 0, len(r.Failed))
	for p := range r.Failed {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ProgressFunc is called once per finished note.
type ProgressFunc func(path string, links int, err error)

// UpdateAll rewrites every note in the vault. Notes are processed
// concurrently with at most Options.Workers in flight; a failing note does
// not stop the others. The report message is sent through the Notifier.
func (r *Rewriter) UpdateAll(ctx context.Context, progress ProgressFunc) (Report, error) {
	files, err := r.vault.List("")
	if err != nil {
		r.notifier.Notice("Update links error, see log.")
		r.logger.Error("linkrewrite: list vault failed", slog.String("error", err.Error()))
		return Report{}, fmt.Errorf("linkrewrite: list vault: %w", err)
	}

	rep := Report{Scanned: len(files), Failed: make(map[string]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)
	for _, f := range files {
		p := f.Path
		g.Go(func() error {
			n, err := r.Replace(ctx, p, false)
			mu.Lock()
			if err != nil {
				rep.Failed[p] = err
			} else if n > 0 {
				rep.Links += n
				rep.Files++
			}
			mu.Unlock()
			if progress != nil {
				progress(p, n, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	msg := rep.Message()
	if len(rep.Failed) > 0 {
		r.logger.Error(msg, slog.Int("failed", len(rep.Failed)), slog.Any("paths", rep.FailedPaths()))
	} else {
		r.logger.Info(msg, slog.Int("links", rep.Links), slog.Int("files", rep.Files))
	}
	r.notifier.Notice(msg)
	return rep, nil
}
