// Package handlers implements the HTTP layer: request decoding, error
// mapping, and response encoding for the tutoring API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"doctutor/internal/contextutil"
	"doctutor/internal/docstore"
	"doctutor/internal/tutor"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

// writeJSON writes a JSON success response.
func writeJSON(ctx context.Context, w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger := contextutil.LoggerFromContext(ctx)
		logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// handleDomainError maps domain errors to HTTP status codes.
func handleDomainError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "request failed", "error", err)

	var validationErr *tutor.ValidationError
	if errors.As(err, &validationErr) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
		return
	}
	if errors.Is(err, tutor.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if errors.Is(err, tutor.ErrNotFound) || errors.Is(err, docstore.ErrUnknownDocument) {
		writeError(w, http.StatusNotFound, "Resource not found")
		return
	}
	if errors.Is(err, tutor.ErrExternalService) {
		writeError(w, http.StatusBadGateway, "External service error")
		return
	}
	writeError(w, http.StatusInternalServerError, defaultMsg)
}
