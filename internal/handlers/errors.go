package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"docrag/internal/contextutil"
	"docrag/internal/extract"
	"docrag/internal/llm"
	"docrag/internal/service"
	"docrag/internal/vectorstore"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

// handleServiceError maps service errors to appropriate HTTP status codes and responses.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, defaultMsg string) {
	logger := contextutil.LoggerFromContext(ctx)
	logger.ErrorContext(ctx, "service error", "error", err)

	var (
		validationErr *service.ValidationError
		extractionErr *extract.ExtractionError
		embeddingErr  *llm.EmbeddingError
		completionErr *llm.CompletionError
		indexErr      *vectorstore.IndexError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Validation error: %s", validationErr.Error()))
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "Document not found")
	case errors.As(err, &extractionErr):
		writeError(w, http.StatusUnprocessableEntity, fmt.Sprintf("Failed to extract text: %s", extractionErr.Error()))
	case errors.As(err, &embeddingErr):
		writeError(w, http.StatusBadGateway, "Embedding service error")
	case errors.As(err, &completionErr):
		writeError(w, http.StatusBadGateway, "Language model error")
	case errors.As(err, &indexErr):
		writeError(w, http.StatusServiceUnavailable, "Vector index unavailable")
	default:
		writeError(w, http.StatusInternalServerError, defaultMsg)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message, Status: "error"})
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}
