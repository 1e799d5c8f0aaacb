package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/adrg/xdg"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/renewer/internal"
	pkgconfig "github.com/starford/renewer/pkg/config"
)

const xdgConfigFile = "renewer/config.yaml"

// loadConfig reads the --config file. When it does not exist the XDG config
// directories are searched, and when nothing is found the defaults are used.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	path := cmd.Root().String("config")

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		found, xerr := xdg.SearchConfigFile(xdgConfigFile)
		if xerr != nil {
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("default config: %w", err)
			}
			return cfg, nil
		}
		path = found
	}

	if err := pkgconfig.Load(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "renewer",
		Usage:  "Keeps Markdown vault links relative and requests YouTube summaries from a webhook",
		Action: serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("RENEWER_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP server and the vault watcher",
				Action: serve,
			},
			relinkCommand(),
			moveCommand(),
			summarizeCommand(),
			settingsCommand(),
			mcpCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
