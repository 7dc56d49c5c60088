// Package gallery finds source galleries and their images on disk and keeps
// the site configuration's gallery list in step with them.
package gallery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/starford/folio/internal/models"
)

// DefaultExtensions are the source formats the decoder understands.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".tiff", ".bmp"}

// Discover returns the sorted names of non-hidden subdirectories of base.
func Discover(base string) ([]string, error) {
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, fmt.Errorf("gallery: read %s: %w", base, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// Scan lists the images directly inside dir. Extensions match
// case-insensitively; exclude holds doublestar patterns tested against the
// file name. Results are sorted by path.
func Scan(dir string, extensions, exclude []string) ([]models.SourceItem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("gallery: scan %s: %w", dir, err)
	}

	allowed := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}

	var out []models.SourceItem
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(name)
		if _, ok := allowed[strings.ToLower(ext)]; !ok {
			continue
		}
		if excluded(name, exclude) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("gallery: stat %s: %w", name, err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("gallery: resolve %s: %w", name, err)
		}
		out = append(out, models.SourceItem{
			ID:      strings.TrimSuffix(name, ext),
			Path:    abs,
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func excluded(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// DisplayName turns a directory name into a title: "black_and-white" →
// "Black And White".
func DisplayName(name string) string {
	spaced := strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.Und).String(spaced)
}

// SourceSize sums the sizes of the given items' files. Unreadable files are
// counted as zero.
func SourceSize(items []models.SourceItem) int64 {
	var total int64
	for _, it := range items {
		if info, err := os.Stat(it.Path); err == nil {
			total += info.Size()
		}
	}
	return total
}
