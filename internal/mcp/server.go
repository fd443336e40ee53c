package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/bitnet-rag/internal/query"
)

// Querier answers a natural-language query.
type Querier interface {
	Ask(ctx context.Context, text string) (*query.Answer, error)
}

// DocumentLister lists stored document IDs.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]string, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Querier Querier
	Lister  DocumentLister
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "bitnet-rag",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_documents",
		Description: "Answer a question using the single best-matching uploaded document as context for the BitNet inference server.",
	}, makeQueryHandler(cfg.Querier))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the IDs of all uploaded documents.",
	}, makeListHandler(cfg.Lister))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
