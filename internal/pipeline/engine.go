// Package pipeline implements incremental rendering of a gallery: staleness
// checks, per-item processing on a bounded worker pool, and reconciliation of
// the results with the previous manifest and the artifacts on disk.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/photo"
	"github.com/starford/folio/internal/storage"
)

// Options control a single gallery reconciliation.
type Options struct {
	Force bool
	// Workers bounds concurrent items. Zero or less means one per CPU.
	Workers int
}

// ItemResult is the per-item line of a Summary.
type ItemResult struct {
	ID     string
	Status Status
	Error  string
}

// Summary aggregates the outcomes of one gallery run.
type Summary struct {
	Processed int
	Skipped   int
	Errors    int
	// OrphansRemoved is deleted files divided by the tier count. It is exact
	// only when every tier held the same orphan set.
	OrphansRemoved int
	OrphanFiles    map[string]int
	Items          []ItemResult
}

// Failed reports whether any item ended in error.
func (s Summary) Failed() bool {
	return s.Errors > 0
}

// Add accumulates other into s. Items are appended and per-tier orphan
// counts summed.
func (s *Summary) Add(other Summary) {
	s.Processed += other.Processed
	s.Skipped += other.Skipped
	s.Errors += other.Errors
	s.OrphansRemoved += other.OrphansRemoved
	s.Items = append(s.Items, other.Items...)
	if len(other.OrphanFiles) > 0 && s.OrphanFiles == nil {
		s.OrphanFiles = make(map[string]int, len(other.OrphanFiles))
	}
	for tier, n := range other.OrphanFiles {
		s.OrphanFiles[tier] += n
	}
}

// Engine reconciles one gallery output directory with its source items.
type Engine struct {
	sizes  []models.SizeSpec
	proc   *Processor
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine creates an engine rendering sizes with enc.
func NewEngine(sizes []models.SizeSpec, enc photo.Encoder, logger *slog.Logger) *Engine {
	return &Engine{
		sizes:  sizes,
		proc:   NewProcessor(sizes, enc),
		logger: logger,
		now:    time.Now,
	}
}

// ReconcileGallery brings out up to date with items:
//   - stale items are rendered, fresh ones skipped
//   - skipped items keep their previous manifest record
//   - artifacts of identifiers absent from items are deleted
//   - the manifest is rewritten sorted by identifier
//
// Per-item failures are counted in the Summary. The returned error is
// reserved for a cancelled ctx or a manifest that cannot be written; on
// cancellation neither orphans nor the manifest are touched.
func (e *Engine) ReconcileGallery(ctx context.Context, items []models.SourceItem, out storage.Provider, opts Options) (Summary, error) {
	sum := Summary{OrphanFiles: make(map[string]int, len(e.sizes))}

	for _, s := range e.sizes {
		if err := out.EnsureDir(s.Name); err != nil {
			// Writes create their directories too; failures surface per item.
			e.logger.Warn("ensure tier dir failed", slog.String("tier", s.Name), slog.String("error", err.Error()))
		}
	}

	valid := make(map[string]struct{}, len(items))
	unique := make([]models.SourceItem, 0, len(items))
	var records []models.ImageRecord

	for _, it := range items {
		if _, dup := valid[it.ID]; dup {
			e.record(&sum, &records, nil, Outcome{
				Item:   it,
				Status: StatusFailed,
				Err:    fmt.Errorf("%w %q: %s", apperr.ErrDuplicateID, it.ID, it.Path),
			})
			continue
		}
		valid[it.ID] = struct{}{}
		unique = append(unique, it)
	}

	prior, err := manifest.Load(out)
	if err != nil {
		e.logger.Warn("previous manifest unreadable, starting empty", slog.String("error", err.Error()))
		prior = &manifest.Manifest{}
	}
	known := prior.Lookup()

	for o := range e.dispatch(ctx, unique, out, opts) {
		e.record(&sum, &records, known, o)
	}
	if err := ctx.Err(); err != nil {
		return sum, err
	}

	sum.OrphansRemoved, sum.OrphanFiles = e.cleanOrphans(out, valid)
	if sum.OrphansRemoved > 0 {
		e.logger.Info("removed orphaned images", slog.Int("count", sum.OrphansRemoved))
	}

	m := manifest.New(records, e.sizes, e.now())
	if err := manifest.Save(out, m); err != nil {
		return sum, err
	}
	return sum, nil
}

// dispatch runs the processor over items on at most opts.Workers goroutines
// and streams outcomes in completion order. The channel is closed once every
// started item has finished. Items not yet started when ctx is done are
// dropped.
func (e *Engine) dispatch(ctx context.Context, items []models.SourceItem, out storage.Provider, opts Options) <-chan Outcome {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan Outcome, len(items))
	go func() {
		defer close(results)

		var g errgroup.Group
		g.SetLimit(workers)
		for _, it := range items {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				results <- e.proc.Process(ctx, it, out, opts.Force)
				return nil
			})
		}
		_ = g.Wait()
	}()
	return results
}

// record folds one outcome into the summary and the new record set.
func (e *Engine) record(sum *Summary, records *[]models.ImageRecord, known map[string]models.ImageRecord, o Outcome) {
	name := o.Item.ID
	if o.Item.Path != "" {
		name = baseName(o.Item.Path)
	}

	if o.Status == StatusSkipped {
		rec, ok := known[o.Item.ID]
		if !ok {
			// Artifacts are fresh but the manifest lost the entry; rebuild it
			// from the image header.
			described, err := e.proc.Describe(o.Item)
			if err != nil {
				o = Outcome{Item: o.Item, Status: StatusFailed, Err: err}
			} else {
				rec = described
				e.logger.Info("restored manifest entry", slog.String("file", name))
			}
		}
		if o.Status == StatusSkipped {
			sum.Skipped++
			*records = append(*records, rec)
			e.logger.Debug("unchanged", slog.String("file", name))
		}
	}

	switch o.Status {
	case StatusProcessed:
		sum.Processed++
		*records = append(*records, *o.Record)
		e.logger.Info("processed", slog.String("file", name), slog.String("tiers", e.tierNames()))
	case StatusFailed:
		sum.Errors++
		e.logger.Error("failed", slog.String("file", name), slog.String("error", o.Err.Error()))
	}

	res := ItemResult{ID: o.Item.ID, Status: o.Status}
	if o.Err != nil {
		res.Error = o.Err.Error()
	}
	sum.Items = append(sum.Items, res)
}

func (e *Engine) tierNames() string {
	names := make([]string, len(e.sizes))
	for i, s := range e.sizes {
		names[i] = s.Name
	}
	return strings.Join(names, ", ")
}
