package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/renewer/internal/index"
	"github.com/starford/renewer/internal/linkrewrite"
	"github.com/starford/renewer/internal/noteservice"
	"github.com/starford/renewer/internal/settings"
	"github.com/starford/renewer/internal/storage"
	"github.com/starford/renewer/internal/summary"
)

// Components are the services shared by the server, the CLI commands and the
// MCP server.
type Components struct {
	Store    *storage.FS
	DB       *index.DB
	Cache    *index.Cache
	Settings *settings.SQLiteStore
	Rewriter *linkrewrite.Rewriter
	Service  *noteservice.Service
	Summary  *summary.Client
}

// NewLogger builds the JSON logger used across the application.
func NewLogger(cfg *Config, w *os.File) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
}

// Open opens the vault, the index and the settings store, syncs the index
// and wires the services. notifier receives user-facing notices.
func Open(ctx context.Context, cfg *Config, logger *slog.Logger, notifier linkrewrite.Notifier) (*Components, error) {
	// Ensure vault directory exists.
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	st, err := settings.Open(cfg.SQLite.Path)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init settings: %w", err)
	}

	if cfg.Summary.WebhookURL != "" {
		if cur, err := st.WebhookURL(ctx); err == nil && cur == "" {
			if _, err := st.SetWebhookURL(ctx, cfg.Summary.WebhookURL); err != nil {
				logger.Warn("seed webhook url failed", slog.String("error", err.Error()))
			}
		}
	}

	cache := index.NewCache(db, store, logger)
	if err := index.Sync(cache, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	rw := linkrewrite.New(store, cache, notifier, logger, linkrewrite.Options{
		Workers:             cfg.Relink.Workers,
		RenameDelay:         cfg.Relink.RenameDelay,
		LocalizeAttachments: cfg.Relink.LocalizeAttachments,
		EmbedWidth:          cfg.Relink.EmbedWidth,
		RepairBacklinks:     cfg.Relink.RepairBacklinks,
	})

	client := summary.NewClient(st,
		summary.WithTimeout(cfg.Summary.Timeout),
		summary.WithRateLimit(cfg.Summary.RateLimit),
		summary.WithLogger(logger),
	)

	return &Components{
		Store:    store,
		DB:       db,
		Cache:    cache,
		Settings: st,
		Rewriter: rw,
		Service:  noteservice.NewService(store, cache, rw),
		Summary:  client,
	}, nil
}

// Close releases the databases.
func (c *Components) Close() error {
	serr := c.Settings.Close()
	if err := c.DB.Close(); err != nil {
		return err
	}
	return serr
}
