package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/folio/internal"
	"github.com/starford/folio/internal/apperr"
	pkgconfig "github.com/starford/folio/pkg/config"
)

// loadConfig reads the config file (defaults when absent) and applies flag
// overrides.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOrDefault(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("source") {
		cfg.Source.Path = cmd.String("source")
	}
	if cmd.IsSet("output") {
		cfg.Output.Path = cmd.String("output")
	}
	if cmd.IsSet("jobs") {
		cfg.Processing.Workers = int(cmd.Int("jobs"))
	}
	if cmd.Bool("force") {
		cfg.Processing.Force = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func build(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if _, err := internal.Build(ctx, internal.WithConfig(cfg)); err != nil {
		if errors.Is(err, apperr.ErrItemsFailed) {
			return err
		}
		return fmt.Errorf("build error: %w", err)
	}
	return nil
}

func watch(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("port") {
		cfg.Preview.Port = int(cmd.Int("port"))
	}
	return internal.Watch(ctx, cmd.Bool("serve"), internal.WithConfig(cfg))
}

func history(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return internal.History(ctx, int(cmd.Int("limit")), cmd.String("run"), internal.WithConfig(cfg))
}

func main() {
	cmd := &cli.Command{
		Name:   "folio",
		Usage:  "Incremental photo gallery builder: multi-size WebP renditions and per-gallery manifests",
		Action: build,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "folio.yaml",
				Value:       "folio.yaml",
				Sources:     cli.EnvVars("FOLIO_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Re-render every image regardless of timestamps",
			},
			&cli.IntFlag{
				Name:    "jobs",
				Aliases: []string{"j"},
				Usage:   "Concurrent images (0 = one per CPU)",
			},
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source base directory (overrides source.path)",
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "Output base directory (overrides output.path)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "build",
				Usage:  "Build every gallery once",
				Action: build,
			},
			{
				Name:   "watch",
				Usage:  "Rebuild on source changes",
				Action: watch,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "serve",
						Usage: "Serve the output tree with live-reload events",
					},
					&cli.IntFlag{
						Name:  "port",
						Usage: "Preview server port (overrides preview.port)",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "Show recent builds, or one build's failures, from the journal",
				Action: history,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "run",
						Usage: "Show galleries and failed images of one run (ID or unique prefix)",
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
