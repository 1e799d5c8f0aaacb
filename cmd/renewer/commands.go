package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	"github.com/starford/renewer/internal"
	"github.com/starford/renewer/internal/linkrewrite"
	"github.com/starford/renewer/internal/mcpserver"
	"github.com/starford/renewer/internal/summary"
)

var errUsage = errors.New("invalid arguments")

// open loads the config and the shared components with logs on stderr.
func open(ctx context.Context, cmd *cli.Command, notifier linkrewrite.Notifier) (*internal.Components, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger := internal.NewLogger(cfg, os.Stderr)
	return internal.Open(ctx, cfg, logger, notifier)
}

// isFailure reports whether a notice describes a failure. The rewriter's
// failure notices say "error" or "failed".
func isFailure(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "error") || strings.Contains(m, "failed")
}

func printNotice(msg string) {
	if isFailure(msg) {
		color.Red("%s", msg)
		return
	}
	color.Green("%s", msg)
}

func confirm(in io.Reader, prompt string) bool {
	color.New(color.FgYellow).Printf("%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("notes"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func relinkCommand() *cli.Command {
	return &cli.Command{
		Name:      "relink",
		Usage:     "Rewrite links of the given notes, or of the whole vault with --all",
		ArgsUsage: "[note.md...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Usage: "Rewrite every note in the vault"},
			&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip the confirmation prompt"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			all := cmd.Bool("all")
			notes := cmd.Args().Slice()
			if all == (len(notes) > 0) {
				return fmt.Errorf("%w: pass note paths or --all", errUsage)
			}

			if all {
				return relinkAll(ctx, cmd)
			}

			c, err := open(ctx, cmd, linkrewrite.NotifierFunc(printNotice))
			if err != nil {
				return err
			}
			defer c.Close()

			for _, p := range notes {
				if _, err := c.Service.UpdateLinks(ctx, p); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func relinkAll(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") && !confirm(os.Stdin, "This may modify a large number of files. Continue?") {
		color.Yellow("Aborted.")
		return nil
	}

	c, err := open(ctx, cmd, linkrewrite.NotifierFunc(printNotice))
	if err != nil {
		return err
	}
	defer c.Close()

	files, err := c.Store.List("")
	if err != nil {
		return err
	}
	bar := getProgressBar(len(files), "Updating links")
	rep, err := c.Service.UpdateAll(ctx, func(string, int, error) {
		_ = bar.Add(1)
	})
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	for _, p := range rep.FailedPaths() {
		color.Red("  %s: %v", p, rep.Failed[p])
	}
	return nil
}

func moveCommand() *cli.Command {
	return &cli.Command{
		Name:      "move",
		Usage:     "Move a note and rewrite its links and backlinks",
		ArgsUsage: "<from.md> <to.md>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("%w: move needs <from> and <to>", errUsage)
			}
			c, err := open(ctx, cmd, linkrewrite.NotifierFunc(printNotice))
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Service.Move(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
			if err != nil {
				return err
			}
			color.Green("Moved %s -> %s (%d links updated)", res.From, res.To, res.Links)
			return nil
		},
	}
}

func summarizeCommand() *cli.Command {
	return &cli.Command{
		Name:      "summarize",
		Usage:     "Request a summary of a YouTube video from the configured webhook",
		ArgsUsage: "<video-url>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "title", Usage: "Video title sent to the webhook"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("%w: summarize needs a video url", errUsage)
			}
			videoURL := cmd.Args().First()

			c, err := open(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			bar := progressbar.NewOptions(-1,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription(color.CyanString("Waiting for summary")),
				progressbar.OptionSpinnerType(14),
				progressbar.OptionEnableColorCodes(true),
			)
			done := make(chan struct{})
			go func() {
				tick := time.NewTicker(100 * time.Millisecond)
				defer tick.Stop()
				for {
					select {
					case <-done:
						return
					case <-tick.C:
						_ = bar.Add(1)
					}
				}
			}()

			s, err := c.Summary.Fetch(ctx, videoURL, cmd.String("title"))
			close(done)
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
			if err != nil {
				color.Red("%s", summary.ErrorMessage(err))
				return err
			}

			color.New(color.Bold).Println(s.Title)
			color.Cyan("%s", s.Thumbnail)
			fmt.Println()
			fmt.Println(s.Content)
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read or change stored settings",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Print the webhook URL",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					c, err := open(ctx, cmd, nil)
					if err != nil {
						return err
					}
					defer c.Close()

					u, err := c.Settings.WebhookURL(ctx)
					if err != nil {
						return err
					}
					if u == "" {
						color.Yellow("Webhook URL is not set.")
						return nil
					}
					fmt.Println(u)
					return nil
				},
			},
			{
				Name:      "set",
				Usage:     "Store the webhook URL",
				ArgsUsage: "<url>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.Args().Len() != 1 {
						return fmt.Errorf("%w: set needs a url", errUsage)
					}
					c, err := open(ctx, cmd, nil)
					if err != nil {
						return err
					}
					defer c.Close()

					u, err := c.Settings.SetWebhookURL(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					color.Green("Webhook URL saved: %s", u)
					return nil
				},
			},
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve the MCP tools over stdio",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			c, err := open(ctx, cmd, nil)
			if err != nil {
				return err
			}
			defer c.Close()

			return mcpserver.New(c.Store, c.Service, c.Settings, c.Summary).ServeStdio()
		},
	}
}
