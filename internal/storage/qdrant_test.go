//go:build integration

package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/bitnet-rag/internal/embedding"
)

// setupTestStorage creates a test storage instance in a unique collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	collection := "test_" + uuid.New().String()
	storage, err := NewQdrantStorage("localhost", 6334, collection, embedding.NewHashEmbedder(0))
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = storage.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	t.Cleanup(func() {
		_ = storage.client.DeleteCollection(context.Background(), collection)
		storage.Close()
	})
	return storage
}

func TestQdrant_DocumentRoundTrip(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	doc := NewDocument("roundtrip.txt", "This is test content.")
	require.NoError(t, storage.Add(ctx, doc))

	retrieved, err := storage.GetDocument(ctx, "roundtrip.txt")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, retrieved.ID)
	assert.Equal(t, doc.Content, retrieved.Content)
	assert.Equal(t, doc.Metadata.SourceName, retrieved.Metadata.SourceName)

	_, err = storage.GetDocument(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestQdrant_OverwriteSameID(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Add(ctx, NewDocument("same.txt", "old")))
	require.NoError(t, storage.Add(ctx, NewDocument("same.txt", "new")))

	ids, err := storage.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"same.txt"}, ids)

	doc, err := storage.GetDocument(ctx, "same.txt")
	require.NoError(t, err)
	assert.Equal(t, "new", doc.Content)
}

func TestQdrant_QueryTopOne(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	empty, err := storage.Query(ctx, "anything", 1)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, storage.Add(ctx, NewDocument("d1.txt", "cats are mammals")))
	require.NoError(t, storage.Add(ctx, NewDocument("d2.txt", "rockets use fuel")))

	results, err := storage.Query(ctx, "tell me about mammals", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1.txt", results[0].ID)

	ids, err := storage.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"d1.txt", "d2.txt"}, ids)

	exists, err := storage.Exists(ctx, "d2.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}
