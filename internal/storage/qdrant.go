package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/bull/bitnet-rag/internal/embedding"
)

// contentVector is the named vector holding document embeddings.
const contentVector = "content"

// pointNamespace derives stable Qdrant point IDs from document IDs, so adding
// the same filename twice overwrites a single point.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:bitnet-rag:documents"))

// QdrantStorage wraps the Qdrant client with connection management and health checks.
type QdrantStorage struct {
	client     *qdrant.Client
	embedder   embedding.Embedder
	collection string
	host       string
	port       int
}

var _ Store = (*QdrantStorage)(nil)

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port int, collection string, embedder embedding.Embedder) (*QdrantStorage, error) {
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		embedder:   embedder,
		collection: collection,
		host:       host,
		port:       port,
	}

	if err := storage.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the collection with a cosine "content" vector
// sized to the embedder, plus a keyword index on source_name.
// Idempotent - safe to call multiple times.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			contentVector: {
				Size:     uint64(s.embedder.Dimension()),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      fieldSourceName,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field %s: %w", fieldSourceName, err)
	}

	return nil
}

// Clear drops and recreates the collection.
func (s *QdrantStorage) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// Add embeds the document content and upserts it under a point ID derived
// from the document ID. The write waits for Qdrant to apply it.
func (s *QdrantStorage) Add(ctx context.Context, doc *Document) error {
	vector, err := embedOne(ctx, s.embedder, doc.Content)
	if err != nil {
		return fmt.Errorf("%w: embed %s: %w", ErrStoreWrite, doc.ID, err)
	}

	point := &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(pointID(doc.ID)),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			contentVector: qdrant.NewVector(vector...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			fieldDocumentID: doc.ID,
			fieldContent:    doc.Content,
			fieldSourceName: doc.Metadata.SourceName,
			fieldIndexedAt:  doc.Metadata.IndexedAt.Format(time.RFC3339),
		}),
	}

	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("%w: upsert %s: %w", ErrStoreWrite, doc.ID, err)
	}
	return nil
}

// Query performs vector similarity search and returns up to topK documents
// ordered by score descending.
func (s *QdrantStorage) Query(ctx context.Context, text string, topK int) ([]*ScoredDocument, error) {
	if topK <= 0 {
		topK = 1
	}

	vector, err := embedOne(ctx, s.embedder, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrStoreQuery, err)
	}

	vectorName := contentVector
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Using:          &vectorName,
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}

	scored := make([]*ScoredDocument, 0, len(results))
	for _, result := range results {
		scored = append(scored, &ScoredDocument{
			Document: documentFromPayload(result.Payload),
			Score:    float64(result.Score),
		})
	}
	return scored, nil
}

// Exists reports whether a document with the given ID is stored.
func (s *QdrantStorage) Exists(ctx context.Context, id string) (bool, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(id))},
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}
	return len(result) > 0, nil
}

// GetDocument retrieves a document by ID.
// Returns ErrDocumentNotFound if document doesn't exist.
func (s *QdrantStorage) GetDocument(ctx context.Context, id string) (*Document, error) {
	result, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(id))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	if len(result) == 0 {
		return nil, ErrDocumentNotFound
	}

	return documentFromPayload(result[0].Payload), nil
}

// ListDocuments returns all document IDs in the collection, sorted.
// Pages through the collection with the Scroll API.
func (s *QdrantStorage) ListDocuments(ctx context.Context) ([]string, error) {
	var ids []string
	var offset *qdrant.PointId
	batchSize := uint32(100)

	for {
		results, next, err := s.client.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: s.collection,
			Limit:          qdrant.PtrOf(batchSize),
			Offset:         offset,
			WithPayload:    qdrant.NewWithPayloadInclude(fieldDocumentID),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scroll documents: %w", err)
		}

		for _, result := range results {
			if id := result.Payload[fieldDocumentID].GetStringValue(); id != "" {
				ids = append(ids, id)
			}
		}

		// The offset is inclusive, so the next page starts at the id Qdrant returns
		if next == nil {
			break
		}
		offset = next
	}

	if ids == nil {
		ids = []string{}
	}
	sort.Strings(ids)
	return ids, nil
}

func pointID(documentID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(documentID)).String()
}

func documentFromPayload(payload map[string]*qdrant.Value) *Document {
	indexedAt, err := time.Parse(time.RFC3339, payload[fieldIndexedAt].GetStringValue())
	if err != nil {
		indexedAt = time.Time{}
	}
	return &Document{
		ID:      payload[fieldDocumentID].GetStringValue(),
		Content: payload[fieldContent].GetStringValue(),
		Metadata: DocumentMetadata{
			SourceName: payload[fieldSourceName].GetStringValue(),
			IndexedAt:  indexedAt,
		},
	}
}
