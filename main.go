package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/cdd-platform/cdd/internal/codegen"
	"github.com/cdd-platform/cdd/internal/commands"
	"github.com/cdd-platform/cdd/internal/logging"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func adaptorFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "adaptor",
		Aliases: []string{"a"},
		Usage:   "only use the named adaptor (repeatable)",
	}
}

func main() {
	ctrl := &commands.Controller{
		Flags:  &commands.Flags{},
		Logger: zerolog.Nop(),
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var logCloser io.Closer

	app := &cli.Command{
		Name:                   "cdd",
		Usage:                  "Keep language projects in sync with an OpenAPI specification",
		Version:                build(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to cdd.yml (default: search the current and parent directories)",
				Sources:     cli.EnvVars("CDD_CONFIG"),
				Destination: &ctrl.Flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("CDD_LOG_LEVEL"),
				Value:       "warn",
				Destination: &ctrl.Flags.LogLevel,
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "verbose mode (-v, -vv)",
				Config:  cli.BoolConfig{Count: &ctrl.Flags.Verbosity},
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "also write JSON logs to this file (rotated)",
				Sources:     cli.EnvVars("CDD_LOG_FILE"),
				Destination: &ctrl.Flags.LogFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logging.New(logging.Options{
				Level:     ctrl.Flags.LogLevel,
				Verbosity: ctrl.Flags.Verbosity,
				File:      ctrl.Flags.LogFile,
			})
			if err != nil {
				return ctx, err
			}

			log.Logger = logger
			ctrl.Logger = logger
			logCloser = closer

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write a default cdd.yml and a starter OpenAPI spec",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "project name (prompted for when omitted)",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "overwrite an existing cdd.yml and spec",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Init(ctx, commands.InitOptions{
						ProjectName: c.String("name"),
						Force:       c.Bool("force"),
					})
				},
			},
			{
				Name:  "sync",
				Usage: "Sync every adaptor's project with the spec",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "print the planned changes without applying them",
					},
					adaptorFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Sync(ctx, commands.SyncOptions{
						DryRun:   c.Bool("dry-run"),
						Adaptors: c.StringSlice("adaptor"),
					})
				},
			},
			{
				Name:  "generate",
				Usage: "Render the spec as " + strings.Join(codegen.DefaultRegistry.Formats(), " or "),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "output format (" + strings.Join(codegen.DefaultRegistry.Formats(), ", ") + ")",
						Value:   "sql",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   `output file, "-" for stdout (default: the configured schema for sql, stdout otherwise)`,
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "check the generated SQL against an in-memory SQLite database",
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Generate(ctx, commands.GenerateOptions{
						Format: c.String("format"),
						Output: c.String("output"),
						Verify: c.Bool("verify"),
					})
				},
			},
			{
				Name:  "regenerate",
				Usage: "Regenerate adaptor projects from their templates (overwrites existing files)",
				Flags: []cli.Flag{adaptorFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Regenerate(ctx, commands.RegenerateOptions{
						Adaptors: c.StringSlice("adaptor"),
					})
				},
			},
			{
				Name:  "watch",
				Usage: "Sync whenever the spec or the config changes",
				Flags: []cli.Flag{adaptorFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.Watch(ctx, commands.SyncOptions{
						Adaptors: c.StringSlice("adaptor"),
					})
				},
			},
			{
				Name:  "history",
				Usage: "List past sync runs",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "number of runs to show, 0 for all",
						Value: commands.DefaultHistoryLimit,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return ctrl.History(ctx, commands.HistoryOptions{
						Limit: int(c.Int("limit")),
					})
				},
			},
		},
	}

	ctx := context.Background()

	if err := app.Run(ctx, os.Args); err != nil {
		// Joined errors from several adaptors are reported one per line.
		for _, line := range strings.Split(err.Error(), "\n") {
			log.Error().Msg(line)
		}
		os.Exit(1)
	}
}
