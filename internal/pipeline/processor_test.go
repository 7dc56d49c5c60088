package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/testutil"
)

func TestProcess_RendersEveryTier(t *testing.T) {
	src := t.TempDir()
	out := testutil.Output(t)
	enc := &testutil.PNGEncoder{}
	sizes := []models.SizeSpec{{Name: "thumb", Size: 400}, {Name: "medium", Size: 800}, {Name: "full", Size: 1600}}
	p := NewProcessor(sizes, enc)

	item := testutil.Item(t, testutil.WriteImage(t, src, "sunset.jpg", 3000, 2000))
	res := p.Process(context.Background(), item, out, false)
	if res.Status != StatusProcessed {
		t.Fatalf("status = %v, err = %v", res.Status, res.Err)
	}
	want := models.ImageRecord{ID: "sunset", Orientation: models.Landscape, Width: 3000, Height: 2000}
	if *res.Record != want {
		t.Errorf("record = %+v, want %+v", *res.Record, want)
	}

	dims := map[string][2]int{"thumb": {400, 266}, "medium": {800, 533}, "full": {1600, 1066}}
	for tier, d := range dims {
		data, err := out.Read(ArtifactPath(tier, "sunset", ".png"))
		if err != nil {
			t.Fatalf("%s missing: %v", tier, err)
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Width != d[0] || cfg.Height != d[1] {
			t.Errorf("%s = %dx%d, want %dx%d", tier, cfg.Width, cfg.Height, d[0], d[1])
		}
	}
	if enc.Calls.Load() != 3 {
		t.Errorf("encoder calls = %d, want 3", enc.Calls.Load())
	}
}

func TestProcess_SkipsFreshAndForces(t *testing.T) {
	src := t.TempDir()
	out := testutil.Output(t)
	enc := &testutil.PNGEncoder{}
	p := NewProcessor(testutil.Sizes, enc)
	item := testutil.Item(t, testutil.WriteImage(t, src, "a.png", 20, 40))

	if res := p.Process(context.Background(), item, out, false); res.Status != StatusProcessed {
		t.Fatalf("first run status = %v", res.Status)
	}
	res := p.Process(context.Background(), item, out, false)
	if res.Status != StatusSkipped || res.Record != nil {
		t.Fatalf("second run = %+v, want skipped without record", res)
	}
	forced := p.Process(context.Background(), item, out, true)
	if forced.Status != StatusProcessed {
		t.Fatalf("forced run status = %v", forced.Status)
	}
	if forced.Record.Orientation != models.Portrait {
		t.Errorf("orientation = %q", forced.Record.Orientation)
	}
}

func TestProcess_NewerSourceIsStale(t *testing.T) {
	src := t.TempDir()
	out := testutil.Output(t)
	p := NewProcessor(testutil.Sizes, &testutil.PNGEncoder{})
	path := testutil.WriteImage(t, src, "a.png", 10, 10)
	_ = p.Process(context.Background(), testutil.Item(t, path), out, false)

	testutil.Touch(t, path, time.Now().Add(time.Hour))
	if res := p.Process(context.Background(), testutil.Item(t, path), out, false); res.Status != StatusProcessed {
		t.Fatalf("status = %v, want processed", res.Status)
	}
}

func TestProcess_CorruptIsFailure(t *testing.T) {
	src := t.TempDir()
	out := testutil.Output(t)
	p := NewProcessor(testutil.Sizes, &testutil.PNGEncoder{})

	res := p.Process(context.Background(), testutil.Item(t, testutil.WriteCorrupt(t, src, "bad.jpg")), out, false)
	if res.Status != StatusFailed || res.Err == nil {
		t.Fatalf("result = %+v, want failure", res)
	}
	if res.Err.Error() == "" {
		t.Error("failure should carry a readable message")
	}
}

func TestProcess_EncoderErrorKeepsEarlierTiers(t *testing.T) {
	src := t.TempDir()
	out := testutil.Output(t)
	enc := &failAfter{n: 1}
	p := NewProcessor(testutil.Sizes, enc)
	item := testutil.Item(t, testutil.WriteImage(t, src, "a.png", 10, 10))

	res := p.Process(context.Background(), item, out, false)
	if res.Status != StatusFailed {
		t.Fatalf("status = %v, want failed", res.Status)
	}
	if _, err := out.Read(ArtifactPath("thumb", "a", ".png")); err != nil {
		t.Error("first tier should remain on disk")
	}
	if _, err := out.Read(ArtifactPath("medium", "a", ".png")); err == nil {
		t.Error("second tier should not exist")
	}
	// The missing tier makes the item stale again.
	if !NeedsProcessing(out, item.ModTime, p.Paths("a"), false) {
		t.Error("partially written item should be stale")
	}
}

func TestProcess_PanicBecomesFailure(t *testing.T) {
	src := t.TempDir()
	out := testutil.Output(t)
	p := NewProcessor(testutil.Sizes, &failAfter{n: 0, panics: true})

	res := p.Process(context.Background(), testutil.Item(t, testutil.WriteImage(t, src, "a.png", 10, 10)), out, true)
	if res.Status != StatusFailed || res.Err == nil {
		t.Fatalf("result = %+v, want failure", res)
	}
}

func TestDescribe(t *testing.T) {
	src := t.TempDir()
	p := NewProcessor(testutil.Sizes, &testutil.PNGEncoder{})
	rec, err := p.Describe(testutil.Item(t, testutil.WriteImage(t, src, "tall.png", 30, 90)))
	if err != nil {
		t.Fatalf("Describe: %v", err)
	}
	want := models.ImageRecord{ID: "tall", Orientation: models.Portrait, Width: 30, Height: 90}
	if rec != want {
		t.Errorf("record = %+v, want %+v", rec, want)
	}
	if _, err := p.Describe(testutil.Item(t, testutil.WriteCorrupt(t, src, "bad.png"))); err == nil {
		t.Error("expected error for corrupt header")
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{StatusSkipped: "skipped", StatusProcessed: "processed", StatusFailed: "failed"} {
		if s.String() != want {
			t.Errorf("%d.String() = %q", int(s), s.String())
		}
	}
}

var errEncode = errors.New("encoder exploded")

// failAfter encodes PNG for the first n calls, then fails or panics.
type failAfter struct {
	n      int
	calls  int
	panics bool
}

func (f *failAfter) Encode(w io.Writer, img image.Image) error {
	f.calls++
	if f.calls > f.n {
		if f.panics {
			panic("encoder crashed")
		}
		return errEncode
	}
	return png.Encode(w, img)
}

func (f *failAfter) Ext() string { return ".png" }
