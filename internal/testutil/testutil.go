// Package testutil provides shared test helpers for building source galleries
// and output trees.
package testutil

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/storage"
)

// Logger returns a logger that only reports errors, to stderr.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Output creates a temporary output directory with a storage provider.
func Output(t *testing.T) *storage.FS {
	t.Helper()
	store, err := storage.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// WriteImage writes a w×h gradient image to dir/name. JPEG is used for .jpg
// and .jpeg names, PNG for everything else.
func WriteImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	return path
}

// WriteCorrupt writes bytes that no image decoder accepts.
func WriteCorrupt(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("this is not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Touch sets the modification time of path.
func Touch(t *testing.T, path string, when time.Time) {
	t.Helper()
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatal(err)
	}
}

// Item builds a SourceItem for an existing file.
func Item(t *testing.T, path string) models.SourceItem {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	return models.SourceItem{
		ID:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:    path,
		ModTime: info.ModTime(),
	}
}

// Items builds SourceItems for every path.
func Items(t *testing.T, paths ...string) []models.SourceItem {
	t.Helper()
	out := make([]models.SourceItem, 0, len(paths))
	for _, p := range paths {
		out = append(out, Item(t, p))
	}
	return out
}

// PNGEncoder stands in for the WebP encoder so pipeline tests don't need
// libwebp. It counts calls.
type PNGEncoder struct {
	Calls atomic.Int64
}

// Encode implements photo.Encoder.
func (e *PNGEncoder) Encode(w io.Writer, img image.Image) error {
	e.Calls.Add(1)
	return png.Encode(w, img)
}

// Ext implements photo.Encoder.
func (e *PNGEncoder) Ext() string { return ".png" }

// Sizes is a small tier set that keeps test renders cheap.
var Sizes = []models.SizeSpec{
	{Name: "thumb", Size: 16},
	{Name: "medium", Size: 32},
	{Name: "full", Size: 64},
}
