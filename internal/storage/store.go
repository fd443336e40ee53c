// Package storage is the document store adapter. It persists uploaded
// documents with their embeddings and answers top-k similarity queries,
// delegating vector generation to an embedding.Embedder.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/bull/bitnet-rag/internal/embedding"
)

// Store is the contract the coordinators depend on.
//
// Add registers or overwrites the document with the same ID. Query returns up
// to topK documents by descending similarity; an empty store yields an empty
// slice and a nil error. Implementations add no locking beyond what their
// backend provides.
type Store interface {
	Add(ctx context.Context, doc *Document) error
	Query(ctx context.Context, text string, topK int) ([]*ScoredDocument, error)
	Exists(ctx context.Context, id string) (bool, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	ListDocuments(ctx context.Context) ([]string, error)
	Clear(ctx context.Context) error
	Health(ctx context.Context) error
	Close() error
}

// NewDocument builds a document keyed by name with source_name metadata.
func NewDocument(name, content string) *Document {
	return &Document{
		ID:      name,
		Content: content,
		Metadata: DocumentMetadata{
			SourceName: name,
			IndexedAt:  time.Now().UTC(),
		},
	}
}

// embedOne generates a single vector and checks its size against the embedder.
func embedOne(ctx context.Context, embedder embedding.Embedder, text string) ([]float32, error) {
	vectors, err := embedder.GenerateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}
	if len(vectors[0]) != embedder.Dimension() {
		return nil, fmt.Errorf("%w: got %d dimensions, expected %d",
			ErrDimensionMismatch, len(vectors[0]), embedder.Dimension())
	}
	return vectors[0], nil
}
