package httpapi

import (
	"log/slog"
	"net/http"
)

// Dependencies are the collaborators behind the HTTP routes.
type Dependencies struct {
	Ingestor Ingestor
	Querier  Querier
	Lister   DocumentLister
	Health   HealthChecker

	// MCP is mounted at /mcp when non-nil.
	MCP http.Handler

	MaxUploadBytes        int64
	MaxConcurrentRequests int
	Logger                *slog.Logger
}

// NewRouter builds the HTTP handler for the service.
//
//	POST /upload     ingest one or more files
//	POST /query      answer a query from the best-matching document
//	GET  /documents  list stored document IDs
//	GET  /health     store connectivity
//	GET  /           landing page
//	     /mcp        MCP streamable HTTP
//
// Upload and query share the concurrency bound; health and the landing page
// are never rejected as busy.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := LimitConcurrency(deps.MaxConcurrentRequests, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /upload", limit(NewUploadHandler(deps.Ingestor, deps.MaxUploadBytes, logger)))
	mux.Handle("POST /query", limit(NewQueryHandler(deps.Querier, logger)))
	mux.Handle("GET /documents", NewDocumentsHandler(deps.Lister, logger))
	mux.Handle("GET /health", NewHealthHandler(deps.Health))
	mux.Handle("GET /{$}", NewLandingHandler())
	if deps.MCP != nil {
		mux.Handle("/mcp", deps.MCP)
	}

	return LogRequests(mux, logger)
}
