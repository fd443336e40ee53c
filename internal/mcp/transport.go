package mcp

import (
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPHandlerOptions configures the streamable HTTP transport mounted at /mcp.
type HTTPHandlerOptions struct {
	// Stateless skips session tracking, so any replica can answer any request.
	// query_documents and list_documents never call back into the client,
	// which is all stateless mode gives up.
	Stateless bool
}

// HTTPHandler serves the document tools over streamable HTTP. Every request
// is answered by the same tool set; nil opts means a stateful transport.
func (s *Server) HTTPHandler(opts *HTTPHandlerOptions) http.Handler {
	var sdkOpts mcp.StreamableHTTPOptions
	if opts != nil {
		sdkOpts.Stateless = opts.Stateless
	}
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &sdkOpts)
}
