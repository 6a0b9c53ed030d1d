package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/snaprace/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	searchHandler := handlers.NewSearchHandler(s.services.Bib, s.services.Selfie, s.logger)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handlers.HealthCheck)

		r.Route("/search", func(r chi.Router) {
			r.Get("/bib", searchHandler.Bib)
			r.Post("/selfie", searchHandler.Selfie)
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})
}
