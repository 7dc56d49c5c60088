package internal

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gofrs/flock"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/gallery"
	"github.com/starford/folio/internal/journal"
	"github.com/starford/folio/internal/pipeline"
	"github.com/starford/folio/internal/sse"
	"github.com/starford/folio/internal/storage"
)

// lockFile sits in the output root. Hidden names are never treated as
// galleries.
const lockFile = ".folio.lock"

// GalleryReport is the outcome of one gallery within a build.
type GalleryReport struct {
	Name    string
	Empty   bool
	Summary pipeline.Summary
}

// Report is the outcome of one build.
type Report struct {
	RunID            string
	StartedAt        time.Time
	FinishedAt       time.Time
	Forced           bool
	Galleries        []GalleryReport
	Totals           pipeline.Summary
	RemovedGalleries []string
	SourceBytes      int64
	OutputBytes      int64
}

// Savings returns the output size reduction relative to the source, in
// percent. It is zero when nothing was measured.
func (r *Report) Savings() float64 {
	if r.SourceBytes <= 0 {
		return 0
	}
	return float64(r.SourceBytes-r.OutputBytes) / float64(r.SourceBytes) * 100
}

func (app *application) build(ctx context.Context) (*Report, error) {
	cfg := app.config
	logger := app.logger

	info, err := os.Stat(cfg.Source.Path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", apperr.ErrSourceMissing, cfg.Source.Path)
	}
	names, err := gallery.Discover(cfg.Source.Path)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s", apperr.ErrNoGalleries, cfg.Source.Path)
	}

	out, err := storage.NewFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output: %w", err)
	}

	lock := flock.New(filepath.Join(out.Root(), lockFile))
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrLocked, out.Root())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release build lock", slog.String("error", err.Error()))
		}
	}()

	report := &Report{
		StartedAt: time.Now(),
		Forced:    cfg.Processing.Force,
		Totals:    pipeline.Summary{OrphanFiles: map[string]int{}},
	}

	logger.Info("Build started",
		slog.String("source", cfg.Source.Path),
		slog.String("output", out.Root()),
		slog.Int("galleries", len(names)),
		slog.Bool("force", cfg.Processing.Force))

	app.updateSite(names)

	opts := pipeline.Options{Force: cfg.Processing.Force, Workers: cfg.Processing.Workers}
	valid := make(map[string]struct{}, len(names))

	for _, name := range names {
		valid[name] = struct{}{}
		glog := logger.With(slog.String("gallery", name))

		items, err := gallery.Scan(filepath.Join(cfg.Source.Path, name), cfg.Source.Extensions, cfg.Source.Exclude)
		if err != nil {
			glog.Error("scan failed", slog.String("error", err.Error()))
			gr := GalleryReport{Name: name, Summary: pipeline.Summary{Errors: 1}}
			report.Galleries = append(report.Galleries, gr)
			report.Totals.Add(gr.Summary)
			continue
		}
		if len(items) == 0 {
			glog.Warn("no images found, skipping")
			report.Galleries = append(report.Galleries, GalleryReport{Name: name, Empty: true})
			continue
		}
		report.SourceBytes += gallery.SourceSize(items)

		sub, err := out.Sub(name)
		if err != nil {
			return report, fmt.Errorf("output for %s: %w", name, err)
		}

		sum, err := pipeline.NewEngine(cfg.Output.Sizes, app.encoder, glog).ReconcileGallery(ctx, items, sub, opts)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, ctxErr
		}
		if err != nil {
			glog.Error("manifest write failed", slog.String("error", err.Error()))
			sum.Errors++
		}

		glog.Info("Gallery done",
			slog.Int("processed", sum.Processed),
			slog.Int("skipped", sum.Skipped),
			slog.Int("errors", sum.Errors),
			slog.Int("orphans", sum.OrphansRemoved))

		report.Galleries = append(report.Galleries, GalleryReport{Name: name, Summary: sum})
		report.Totals.Add(sum)
		app.publish(name, sum)
	}

	removed, err := pipeline.CleanOrphanGalleries(out, valid, logger)
	if err != nil {
		logger.Warn("orphan gallery scan failed", slog.String("error", err.Error()))
	}
	for _, name := range removed {
		logger.Info("removed orphan gallery", slog.String("gallery", name))
	}
	report.RemovedGalleries = removed

	if n, err := out.Size("", app.encoder.Ext()); err == nil {
		report.OutputBytes = n
	}
	report.FinishedAt = time.Now()

	logger.Info("Build finished",
		slog.Int("processed", report.Totals.Processed),
		slog.Int("skipped", report.Totals.Skipped),
		slog.Int("errors", report.Totals.Errors),
		slog.Int("orphans", report.Totals.OrphansRemoved),
		slog.String("source_size", humanize.Bytes(uint64(report.SourceBytes))),
		slog.String("output_size", humanize.Bytes(uint64(report.OutputBytes))),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	app.record(report)
	if app.listening() {
		app.broker.Publish(sse.Event{Type: "build.finished", Data: map[string]int{
			"processed": report.Totals.Processed,
			"skipped":   report.Totals.Skipped,
			"errors":    report.Totals.Errors,
			"orphans":   report.Totals.OrphansRemoved,
		}})
	}

	if _, err := fmt.Fprintln(app.stdout, renderSummary(report)); err != nil {
		logger.Warn("render summary failed", slog.String("error", err.Error()))
	}

	if report.Totals.Failed() {
		return report, fmt.Errorf("%w: %d of %d", apperr.ErrItemsFailed,
			report.Totals.Errors, report.Totals.Processed+report.Totals.Skipped+report.Totals.Errors)
	}
	return report, nil
}

// updateSite rewrites the galleries section of site.json when the file
// exists. Failures are logged, not fatal.
func (app *application) updateSite(names []string) {
	path := app.config.Site.ConfigPath
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			app.logger.Warn("site config unreadable", slog.String("path", path), slog.String("error", err.Error()))
		}
		return
	}
	if err := gallery.UpdateSiteConfig(path, names); err != nil {
		app.logger.Warn("site config update failed", slog.String("path", path), slog.String("error", err.Error()))
		return
	}
	app.logger.Info("Updated site config", slog.String("path", path), slog.Int("galleries", len(names)))
}

// listening reports whether any preview client is connected.
func (app *application) listening() bool {
	return app.broker != nil && app.broker.ClientCount() > 0
}

func (app *application) publish(name string, sum pipeline.Summary) {
	if !app.listening() {
		return
	}
	app.broker.PublishGallery(sse.GalleryCounts{
		Gallery:   name,
		Processed: sum.Processed,
		Skipped:   sum.Skipped,
		Errors:    sum.Errors,
		Orphans:   sum.OrphansRemoved,
	})
}

// record stores the run in the journal when enabled. Failures are logged.
func (app *application) record(report *Report) {
	cfg := app.config.Journal
	if !cfg.Enabled() {
		return
	}
	db, err := journal.Open(cfg.Path)
	if err != nil {
		app.logger.Warn("journal unavailable", slog.String("error", err.Error()))
		return
	}
	defer db.Close()

	run := journal.Run{
		StartedAt:  report.StartedAt,
		FinishedAt: report.FinishedAt,
		Forced:     report.Forced,
		Processed:  report.Totals.Processed,
		Skipped:    report.Totals.Skipped,
		Errors:     report.Totals.Errors,
		Orphans:    report.Totals.OrphansRemoved,
	}
	for _, g := range report.Galleries {
		run.Galleries = append(run.Galleries, journal.GalleryRun{
			Gallery:   g.Name,
			Processed: g.Summary.Processed,
			Skipped:   g.Summary.Skipped,
			Errors:    g.Summary.Errors,
			Orphans:   g.Summary.OrphansRemoved,
		})
		for _, it := range g.Summary.Items {
			if it.Status == pipeline.StatusFailed {
				run.Failures = append(run.Failures, journal.Failure{Gallery: g.Name, ItemID: it.ID, Message: it.Error})
			}
		}
	}

	id, err := db.Record(run)
	if err != nil {
		app.logger.Warn("journal record failed", slog.String("error", err.Error()))
		return
	}
	report.RunID = id
	app.logger.Debug("recorded run", slog.String("run_id", id))
}
