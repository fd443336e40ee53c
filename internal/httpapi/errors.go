package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bull/bitnet-rag/internal/indexer"
	"github.com/bull/bitnet-rag/internal/inference"
	"github.com/bull/bitnet-rag/internal/query"
	"github.com/bull/bitnet-rag/internal/staging"
	"github.com/bull/bitnet-rag/internal/worker"
)

var (
	errMalformedUpload = errors.New("malformed multipart upload")
	errBusy            = errors.New("server busy")
)

// classify maps a coordinator error to its status code and response body.
// This is the only place errors become HTTP statuses.
func classify(err error) (int, ErrorResponse) {
	var (
		failure   *worker.Failure
		serverErr *inference.ServerError
		tooLarge  *http.MaxBytesError
	)

	switch {
	// client input
	case errors.Is(err, indexer.ErrNoFiles):
		return http.StatusBadRequest, ErrorResponse{Error: "No files uploaded"}
	case errors.Is(err, query.ErrMissingQuery):
		return http.StatusBadRequest, ErrorResponse{Error: "Query is required"}
	case errors.Is(err, indexer.ErrBatchTooLarge),
		errors.Is(err, staging.ErrInvalidFilename),
		errors.Is(err, errMalformedUpload):
		return http.StatusBadRequest, ErrorResponse{Error: err.Error()}
	case errors.Is(err, staging.ErrFileTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error()}
	case errors.Is(err, indexer.ErrDocumentExists):
		return http.StatusConflict, ErrorResponse{Error: err.Error()}

	// not found
	case errors.Is(err, query.ErrNoRelevantDocument):
		return http.StatusNotFound, ErrorResponse{Error: "No relevant documents found"}

	// dependency failures with diagnostics
	case errors.As(err, &failure):
		return http.StatusInternalServerError, ErrorResponse{Error: "Worker processing failed", Details: failure.Error()}
	case errors.As(err, &serverErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to query inference server", Details: serverErr.Body}

	case errors.Is(err, errBusy):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "Server busy"}
	}

	// store failures and anything unclassified
	return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status, body := classify(err)
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "Request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	writeJSON(w, status, body)
}
