package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/service"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	ingestService      service.IngestService
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(ingestService service.IngestService) *HealthHandler {
	return &HealthHandler{
		ingestService:      ingestService,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
//
// swagger:model HealthResponse
type HealthResponse struct {
	// Overall health status: "healthy" or "unhealthy"
	Status string `json:"status"`

	// Timestamp of the health check
	Timestamp string `json:"timestamp"`

	// Individual check results
	Checks map[string]string `json:"checks"`

	// List of issues (only present if status is unhealthy)
	Issues []string `json:"issues,omitempty"`
}

// ServeHTTP handles HTTP requests for health checks.
//
// Check the manifest database and the vector store.
// Returns 200 OK if healthy, 503 Service Unavailable otherwise.
//
// swagger:route GET /api/health healthCheck
//
// # Health check endpoint
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: System is healthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
//	'503':
//	  description: System is unhealthy
//	  schema:
//	    "$ref": "#/definitions/HealthResponse"
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	// Create context with timeout for health checks
	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string
	for name, err := range h.ingestService.Health(checkCtx) {
		if err != nil {
			logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			checks[name] = "error"
			issues = append(issues, name+"_unavailable")
			continue
		}
		checks[name] = "ok"
	}
	slices.Sort(issues)

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, ctx, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}
