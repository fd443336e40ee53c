// Package mcp exposes the query coordinator and the document list as Model
// Context Protocol tools.
package mcp

// QueryDocumentsInput defines the input parameters for the query_documents tool.
type QueryDocumentsInput struct {
	// Query is the natural-language question.
	Query string `json:"query" jsonschema:"the question to answer from the uploaded documents"`
}

// QueryDocumentsOutput contains the inference answer and the context it was
// built from.
type QueryDocumentsOutput struct {
	// Found is false when the store holds no candidate document.
	Found bool   `json:"found"`
	Query string `json:"query"`
	// Context is the full content of the best-matching document.
	Context string `json:"context,omitempty"`
	// Source is the ID of the document used as context.
	Source string  `json:"source,omitempty"`
	Score  float64 `json:"score,omitempty"`
	// Response is the inference server's JSON body, passed through.
	Response any    `json:"response,omitempty"`
	Message  string `json:"message,omitempty"`
}

// ListDocumentsInput defines the input parameters for the list_documents tool.
// This tool takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput contains all stored document IDs.
type ListDocumentsOutput struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}
