package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/service"
)

// StatsHandler serves the manifest statistics of one collection.
type StatsHandler struct {
	ingestService service.IngestService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(ingestService service.IngestService) *StatsHandler {
	return &StatsHandler{
		ingestService: ingestService,
	}
}

// ServeHTTP handles GET /api/collections/{name}/stats.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := chi.URLParam(r, "name")
	stats, err := h.ingestService.Stats(ctx, name)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to load collection stats")
		return
	}

	writeJSON(w, ctx, http.StatusOK, stats)
}
