package pipeline

import (
	"path/filepath"
	"time"
)

// Stater reports file modification times.
type Stater interface {
	Stat(path string) (time.Time, error)
}

// ArtifactPath is the location of one rendition, relative to the gallery
// output directory: <tier>/<id><ext>.
func ArtifactPath(tier, id, ext string) string {
	return filepath.Join(tier, id+ext)
}

// NeedsProcessing reports whether a source modified at source must be
// rendered again. It is true when force is set, when any output is missing or
// unreadable, or when any output is strictly older than the source.
func NeedsProcessing(store Stater, source time.Time, paths []string, force bool) bool {
	if force {
		return true
	}
	for _, p := range paths {
		mod, err := store.Stat(p)
		if err != nil {
			return true
		}
		if mod.Before(source) {
			return true
		}
	}
	return false
}
