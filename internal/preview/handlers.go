package preview

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/manifest"
	"github.com/starford/folio/internal/storage"
)

// GallerySummary is one entry of GET /api/galleries.
type GallerySummary struct {
	Name      string `json:"name"`
	Images    int    `json:"images"`
	Generated string `json:"generated,omitempty"`
}

// Handler holds the preview route handlers.
type Handler struct {
	store storage.Provider
}

// NewHandler creates a new Handler.
func NewHandler(store storage.Provider) *Handler {
	return &Handler{store: store}
}

func (h *Handler) load(name string) (*manifest.Manifest, error) {
	if name == "" || strings.HasPrefix(name, ".") || strings.ContainsAny(name, `/\`) {
		return nil, apperr.ErrNotFound
	}
	data, err := h.store.Read(filepath.Join(name, manifest.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return manifest.Parse(data)
}

// ListGalleries handles GET /api/galleries.
func (h *Handler) ListGalleries(w http.ResponseWriter, _ *http.Request) {
	dirs, err := h.store.Dirs("")
	if err != nil {
		slog.Error("list galleries failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	out := make([]GallerySummary, 0, len(dirs))
	for _, d := range dirs {
		m, err := h.load(d)
		if err != nil {
			// Not built yet, or a stray directory.
			continue
		}
		out = append(out, GallerySummary{Name: d, Images: len(m.Images), Generated: m.Generated})
	}
	writeJSON(w, http.StatusOK, map[string]any{"galleries": out})
}

// GetGallery handles GET /api/galleries/{name} and returns its manifest.
func (h *Handler) GetGallery(w http.ResponseWriter, r *http.Request) {
	m, err := h.load(chi.URLParam(r, "name"))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("gallery not found"))
			return
		}
		slog.Error("load manifest failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, m)
}
