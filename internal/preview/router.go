// Package preview serves a built output tree over HTTP for local review,
// with an SSE stream announcing rebuilds.
package preview

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/folio/internal/storage"
)

// NewRouter creates the preview router over store (the output base).
// events, if non-nil, is mounted at GET /api/events.
func NewRouter(store storage.Provider, events http.Handler) chi.Router {
	h := NewHandler(store)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/galleries", h.ListGalleries)
	r.Get("/api/galleries/{name}", h.GetGallery)
	if events != nil {
		r.Get("/api/events", events.ServeHTTP)
	}

	assets := http.StripPrefix("/assets/", http.FileServer(http.Dir(store.Root())))
	r.Handle("/assets/*", assets)

	return r
}
