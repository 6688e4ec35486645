package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bambooreports/securedelivery/internal/services"
)

// NewRouter assembles the delivery API surface. All document and history
// routes sit behind the identity middleware; only the health endpoint is open.
func NewRouter(access *services.DocumentAccessFunction, history *services.DownloadHistoryFunction, allowedOrigins []string) http.Handler {
	h := &handler{access: access, history: history}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-User-Id", "X-User-Email", "X-User-Name"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireIdentity)

		r.Get("/content", h.content)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/{id}/download", h.download)
			r.Get("/{id}/stage", h.stage)
			r.Post("/{id}/view", h.openViewer)
		})

		r.Route("/viewer/{sessionId}", func(r chi.Router) {
			r.Get("/", h.viewerState)
			r.Get("/content", h.viewerContent)
			r.Post("/next", h.viewerAction)
			r.Post("/prev", h.viewerAction)
			r.Post("/zoom-in", h.viewerAction)
			r.Post("/zoom-out", h.viewerAction)
			r.Post("/theme", h.viewerAction)
			r.Delete("/", h.closeViewer)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.listHistory)
			r.Post("/{documentId}/redownload", h.redownload)
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
