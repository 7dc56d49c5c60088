// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/photo"
	"github.com/starford/folio/internal/preview"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
	"github.com/starford/folio/internal/watch"
)

func newApplication(opts []Option) (*application, error) {
	app := &application{}
	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.logger == nil {
		app.logger = newLogger(app.config.App, os.Stderr)
		slog.SetDefault(app.logger)
	}
	if app.encoder == nil {
		app.encoder = photo.NewWebPEncoder(app.config.Output.Quality)
	}
	return app, nil
}

// newLogger builds the slog logger: text on a terminal, JSON otherwise,
// unless the format is set explicitly.
func newLogger(cfg ApplicationConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	text := cfg.LogFormat == LogFormatText
	if cfg.LogFormat == "" || cfg.LogFormat == LogFormatAuto {
		if f, ok := w.(*os.File); ok {
			fd := f.Fd()
			text = isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
		}
	}
	if text {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Build runs one full build of every gallery.
func Build(ctx context.Context, opts ...Option) (*Report, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.build(ctx)
}

// Watch builds once, then rebuilds on every source change until ctx is
// cancelled or a shutdown signal arrives. With serve, the output tree is
// served with live-reload events on preview.port.
func Watch(ctx context.Context, serve bool, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpServer *http.Server
	if serve {
		if app.broker == nil {
			app.broker = sse.NewBroker(time.Second)
		}
		defer app.broker.Close()

		out, err := storage.NewFS(cfg.Output.Path)
		if err != nil {
			return fmt.Errorf("init output: %w", err)
		}
		httpServer = &http.Server{
			Addr:              cfg.Preview.Address(),
			Handler:           preview.NewRouter(out, app.broker),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	rebuild := func(ctx context.Context) error {
		_, err := app.build(ctx)
		if errors.Is(err, context.Canceled) {
			return err
		}
		if err != nil {
			// Reported already; keep watching.
			logger.Warn("build finished with errors", slog.String("error", err.Error()))
		}
		return nil
	}

	if err := rebuild(ctx); err != nil {
		return nil
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return watch.Run(gCtx, cfg.Source.Path, cfg.Preview.Debounce, logger, rebuild)
	})

	if httpServer != nil {
		g.Go(func() error {
			logger.Info("Starting preview server", slog.String("address", cfg.Preview.Address()))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down preview server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Watch stopped")
	return nil
}

// History renders the most recent journal entries. With a run ID (or a
// unique prefix of one) it renders that run's galleries and failed items
// instead.
func History(_ context.Context, limit int, runID string, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	if !app.config.Journal.Enabled() {
		return fmt.Errorf("journal is disabled; set journal.path in the config")
	}

	db, err := journal.Open(app.config.Journal.Path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer db.Close()

	if runID != "" {
		run, err := db.Get(runID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(app.stdout, renderRun(run))
		return err
	}

	runs, err := db.Recent(limit)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.stdout, renderHistory(runs))
	return err
}
