package handlers

import (
	"encoding/json"
	"net/http"

	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/service"
)

// ProcessHandler handles HTTP requests for batch ingestion.
type ProcessHandler struct {
	ingestService service.IngestService
}

// NewProcessHandler creates a new ProcessHandler.
func NewProcessHandler(ingestService service.IngestService) *ProcessHandler {
	return &ProcessHandler{
		ingestService: ingestService,
	}
}

// ProcessRequest represents the HTTP request payload for batch ingestion.
type ProcessRequest struct {
	Paths      []string `json:"paths"`
	Collection string   `json:"collection,omitempty"`
	Recursive  bool     `json:"recursive"`
}

// ServeHTTP handles HTTP requests for batch ingestion.
//
// The batch runs synchronously and the response body is the batch result.
// Per-document failures are part of a 200 response, not an error status.
func (h *ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.ingestService.Process(ctx, service.ProcessRequest{
		Paths:      req.Paths,
		Collection: req.Collection,
		Recursive:  req.Recursive,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to process documents")
		return
	}

	logger.InfoContext(ctx, "batch processed",
		"batch_id", res.BatchID,
		"total", res.Total,
		"successful", res.Successful,
		"failed", len(res.Failed),
	)
	writeJSON(w, ctx, http.StatusOK, res)
}
