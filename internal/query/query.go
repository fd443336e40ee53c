// Package query is the retrieval-augmented query coordinator: top-1 retrieval
// from the document store followed by one inference call.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bull/bitnet-rag/internal/inference"
	"github.com/bull/bitnet-rag/internal/storage"
)

var (
	// ErrMissingQuery is returned for an empty or whitespace-only query.
	ErrMissingQuery = errors.New("query is required")
	// ErrNoRelevantDocument is returned when the store has no candidates.
	ErrNoRelevantDocument = errors.New("no relevant documents found")
)

// Answer is the relayed inference result with the context that produced it.
type Answer struct {
	Query    string          `json:"query"`
	Context  string          `json:"context"`
	Source   string          `json:"source"`
	Score    float64         `json:"score"`
	Response json.RawMessage `json:"response"`
}

// Service answers queries. It keeps no state between calls: every Ask does a
// fresh retrieval and a fresh inference request.
type Service struct {
	store  storage.Store
	asker  inference.Asker
	logger *slog.Logger
}

// NewService creates a query coordinator.
func NewService(store storage.Store, asker inference.Asker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, asker: asker, logger: logger}
}

// Ask retrieves the best-matching document and forwards {context, query}
// to the inference server.
func (s *Service) Ask(ctx context.Context, text string) (*Answer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingQuery
	}

	results, err := s.store.Query(ctx, text, 1)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	if len(results) == 0 {
		return nil, ErrNoRelevantDocument
	}
	best := results[0]
	s.logger.Debug("Retrieved context", "document", best.ID, "score", best.Score)

	response, err := s.asker.Ask(ctx, inference.Payload{
		Context: best.Content,
		Query:   text,
	})
	if err != nil {
		s.logger.Warn("Inference request failed", "document", best.ID, "error", err)
		return nil, err
	}

	s.logger.Info("Answered query", "document", best.ID, "score", best.Score)
	return &Answer{
		Query:    text,
		Context:  best.Content,
		Source:   best.ID,
		Score:    best.Score,
		Response: response,
	}, nil
}
