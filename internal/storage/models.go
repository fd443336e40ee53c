package storage

import "time"

// Document is an uploaded text file registered in the store.
// ID is the sanitized filename and is unique within a collection.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata is stored alongside the document content.
type DocumentMetadata struct {
	SourceName string    // Original (sanitized) upload name
	IndexedAt  time.Time // When this version was added
}

// ScoredDocument is a retrieval candidate with its similarity to the query.
type ScoredDocument struct {
	*Document
	Score float64
}

// DefaultCollectionName is the collection used when none is configured.
const DefaultCollectionName = "uploaded_documents"

// Payload field names shared by the backends.
const (
	fieldDocumentID = "document_id"
	fieldContent    = "content"
	fieldSourceName = "source_name"
	fieldIndexedAt  = "indexed_at"
)
