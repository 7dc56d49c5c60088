package pipeline

import (
	"log/slog"
	"path/filepath"

	"github.com/starford/folio/internal/storage"
)

// cleanOrphans deletes artifacts whose identifier is not in valid. It returns
// total deletions divided by the tier count, plus the per-tier counts.
func (e *Engine) cleanOrphans(out storage.Provider, valid map[string]struct{}) (int, map[string]int) {
	perTier := make(map[string]int, len(e.sizes))
	total := 0
	for _, s := range e.sizes {
		ids, err := out.List(s.Name, e.proc.Ext())
		if err != nil {
			e.logger.Warn("orphan scan failed", slog.String("tier", s.Name), slog.String("error", err.Error()))
			continue
		}
		for _, id := range ids {
			if _, ok := valid[id]; ok {
				continue
			}
			if err := out.Delete(ArtifactPath(s.Name, id, e.proc.Ext())); err != nil {
				e.logger.Warn("orphan delete failed", slog.String("tier", s.Name), slog.String("id", id), slog.String("error", err.Error()))
				continue
			}
			e.logger.Debug("removed orphan", slog.String("tier", s.Name), slog.String("id", id))
			perTier[s.Name]++
			total++
		}
	}
	if len(e.sizes) == 0 {
		return 0, perTier
	}
	return total / len(e.sizes), perTier
}

// CleanOrphanGalleries removes top-level output directories that have no
// matching source gallery. Hidden directories are left alone. It returns the
// removed names in sorted order.
func CleanOrphanGalleries(store storage.Provider, valid map[string]struct{}, logger *slog.Logger) ([]string, error) {
	dirs, err := store.Dirs("")
	if err != nil {
		return nil, err
	}
	var removed []string
	for _, d := range dirs {
		if _, ok := valid[d]; ok {
			continue
		}
		if err := store.RemoveAll(d); err != nil {
			logger.Warn("orphan gallery delete failed", slog.String("gallery", d), slog.String("error", err.Error()))
			continue
		}
		removed = append(removed, d)
	}
	return removed, nil
}

func baseName(path string) string {
	return filepath.Base(path)
}
