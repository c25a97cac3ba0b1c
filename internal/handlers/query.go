package handlers

import (
	"encoding/json"
	"net/http"

	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/service"
	"shard-markdown/internal/vectorstore"
)

const defaultQueryK = 5

// QueryHandler handles similarity searches over a collection.
type QueryHandler struct {
	ingestService service.IngestService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(ingestService service.IngestService) *QueryHandler {
	return &QueryHandler{
		ingestService: ingestService,
	}
}

// QueryRequest represents the HTTP request payload for a similarity search.
type QueryRequest struct {
	Collection string            `json:"collection,omitempty"`
	Text       string            `json:"text"`
	K          int               `json:"k,omitempty"`
	Filters    map[string]string `json:"filters,omitempty"`
}

// QueryMatch is one chunk returned by a search.
type QueryMatch struct {
	ID    string            `json:"id"`
	Score float32           `json:"score"`
	Text  string            `json:"text"`
	Meta  map[string]string `json:"metadata"`
}

// QueryResponse represents the HTTP response payload for a similarity search.
type QueryResponse struct {
	Matches []QueryMatch `json:"matches"`
}

// ServeHTTP handles POST /api/query.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.K == 0 {
		req.K = defaultQueryK
	}

	results, err := h.ingestService.Query(ctx, service.QueryRequest{
		Collection: req.Collection,
		Text:       req.Text,
		K:          req.K,
		Filters:    req.Filters,
	})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to query collection")
		return
	}

	writeJSON(w, ctx, http.StatusOK, QueryResponse{Matches: toMatches(results)})
}

func toMatches(results []vectorstore.SearchResult) []QueryMatch {
	matches := make([]QueryMatch, len(results))
	for i, r := range results {
		matches[i] = QueryMatch{ID: r.PointID, Score: r.Score, Text: r.Text, Meta: r.Meta}
	}
	return matches
}
