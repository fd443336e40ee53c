// Package httpapi is the HTTP surface: upload and query endpoints, document
// listing, health and the landing page.
package httpapi

import "encoding/json"

// UploadResponse is returned by POST /upload on success.
type UploadResponse struct {
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Documents []string `json:"documents"`
}

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is returned by POST /query on success.
type QueryResponse struct {
	Query    string          `json:"query"`
	Context  string          `json:"context"`
	Response json.RawMessage `json:"response"`
}

// DocumentsResponse is returned by GET /documents.
type DocumentsResponse struct {
	Documents []string `json:"documents"`
	Count     int      `json:"count"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
