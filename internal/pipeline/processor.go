package pipeline

import (
	"bytes"
	"context"
	"fmt"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/photo"
	"github.com/starford/folio/internal/storage"
)

// Status is the terminal state of one item in a run.
type Status int

const (
	StatusSkipped Status = iota
	StatusProcessed
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSkipped:
		return "skipped"
	case StatusProcessed:
		return "processed"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Outcome is the result of processing one item. Record is set only for
// StatusProcessed, Err only for StatusFailed.
type Outcome struct {
	Item   models.SourceItem
	Status Status
	Record *models.ImageRecord
	Err    error
}

// Processor renders one source item into every configured tier.
//
// Artifact files are written atomically one at a time, but the tier set of an
// item is not: a failure part-way keeps the tiers already written. The next
// run finds the remaining tiers missing or older than the source and renders
// the item again.
type Processor struct {
	sizes []models.SizeSpec
	enc   photo.Encoder
}

// NewProcessor returns a processor for the given tiers and output encoder.
func NewProcessor(sizes []models.SizeSpec, enc photo.Encoder) *Processor {
	return &Processor{sizes: sizes, enc: enc}
}

// Ext returns the artifact file extension.
func (p *Processor) Ext() string {
	return p.enc.Ext()
}

// Paths returns the artifact path of id for every tier, in tier order.
func (p *Processor) Paths(id string) []string {
	out := make([]string, len(p.sizes))
	for i, s := range p.sizes {
		out[i] = ArtifactPath(s.Name, id, p.enc.Ext())
	}
	return out
}

// Process skips item when its artifacts are fresh (unless force is set) and
// otherwise renders every tier into out. Failures are returned in the
// Outcome, never as a panic or error.
func (p *Processor) Process(ctx context.Context, item models.SourceItem, out storage.Provider, force bool) (res Outcome) {
	res.Item = item
	if !NeedsProcessing(out, item.ModTime, p.Paths(item.ID), force) {
		res.Status = StatusSkipped
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Record = nil
			res.Err = fmt.Errorf("render %s: panic: %v", item.ID, r)
		}
	}()

	rec, err := p.render(ctx, item, out)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		return res
	}
	res.Status = StatusProcessed
	res.Record = &rec
	return res
}

func (p *Processor) render(ctx context.Context, item models.SourceItem, out storage.Provider) (models.ImageRecord, error) {
	img, err := photo.Decode(item.Path)
	if err != nil {
		return models.ImageRecord{}, err
	}
	img = photo.Flatten(img)

	b := img.Bounds()
	rec := models.ImageRecord{
		ID:          item.ID,
		Orientation: photo.OrientationOf(b.Dx(), b.Dy()),
		Width:       b.Dx(),
		Height:      b.Dy(),
	}

	var buf bytes.Buffer
	for _, s := range p.sizes {
		if err := ctx.Err(); err != nil {
			return models.ImageRecord{}, err
		}
		buf.Reset()
		if err := p.enc.Encode(&buf, photo.Resize(img, s.Size)); err != nil {
			return models.ImageRecord{}, fmt.Errorf("encode %s/%s: %w", s.Name, item.ID, err)
		}
		if err := out.Write(ArtifactPath(s.Name, item.ID, p.enc.Ext()), buf.Bytes()); err != nil {
			return models.ImageRecord{}, err
		}
	}
	return rec, nil
}

// Describe derives the manifest record of item from its image header alone.
func (p *Processor) Describe(item models.SourceItem) (models.ImageRecord, error) {
	w, h, err := photo.DecodeConfig(item.Path)
	if err != nil {
		return models.ImageRecord{}, err
	}
	return models.ImageRecord{
		ID:          item.ID,
		Orientation: photo.OrientationOf(w, h),
		Width:       w,
		Height:      h,
	}, nil
}
