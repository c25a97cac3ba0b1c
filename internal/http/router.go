package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"shard-markdown/internal/handlers"
	"shard-markdown/internal/service"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	IngestService service.IngestService
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	// Add chi middleware
	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)

	// Add CORS middleware
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.IngestService)
	processHandler := handlers.NewProcessHandler(deps.IngestService)
	statsHandler := handlers.NewStatsHandler(deps.IngestService)
	queryHandler := handlers.NewQueryHandler(deps.IngestService)

	// Register API routes
	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Method(http.MethodPost, "/process", processHandler)
		r.Method(http.MethodPost, "/query", queryHandler)
		r.Method(http.MethodGet, "/collections/{name}/stats", statsHandler)
	})

	return r
}
