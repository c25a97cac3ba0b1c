package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"shard-markdown/internal/contextutil"
	"shard-markdown/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(w http.ResponseWriter, ctx context.Context, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid input: %s", err.Error()))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrExternalService):
		writeError(w, http.StatusBadGateway, "External service error")
	case errors.Is(err, service.ErrInternal):
		writeError(w, http.StatusInternalServerError, defaultMsg)
	default:
		logger.WarnContext(ctx, "unclassified service error", "error", err)
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error: message,
	})
}

// writeJSON writes v with the given status code.
func writeJSON(w http.ResponseWriter, ctx context.Context, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}
