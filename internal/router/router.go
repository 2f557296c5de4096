package router

import (
	"net/http"

	"promo-batch/internal/handler"
	"promo-batch/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	batchHandler *handler.BatchHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	// Health check endpoint (no authentication required)
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/sets", func(r chi.Router) {
			r.Get("/", batchHandler.ListSets)
			r.Post("/", batchHandler.Submit)
			r.Post("/{setID}/process", batchHandler.ProcessBatch)
			r.Post("/{setID}/retry", batchHandler.RetryFailed)
			r.Delete("/{setID}", batchHandler.DeleteSet)
		})
		r.Delete("/items/{itemID}", batchHandler.DeleteItem)
		r.Get("/templates", batchHandler.ListTemplates)
	})

	return r
}
