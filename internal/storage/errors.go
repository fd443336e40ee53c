package storage

import "errors"

var (
	// ErrStoreWrite is returned when a document cannot be embedded or persisted.
	ErrStoreWrite = errors.New("document store write failed")
	// ErrStoreQuery is returned when a similarity search fails in the backend.
	ErrStoreQuery = errors.New("document store query failed")

	ErrDocumentNotFound  = errors.New("document not found")
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
