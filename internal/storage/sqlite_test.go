package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/bitnet-rag/internal/embedding"
)

// setupSQLiteStorage opens a store in a fresh temp directory.
func setupSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(t.TempDir(), "", embedding.NewHashEmbedder(0))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

type failingEmbedder struct{}

func (failingEmbedder) GenerateEmbeddings(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding backend down")
}

func (failingEmbedder) Dimension() int { return 8 }

func TestSQLite_AddAndGet(t *testing.T) {
	store := setupSQLiteStorage(t)
	ctx := context.Background()

	doc := NewDocument("notes.txt", "cats are mammals")
	require.NoError(t, store.Add(ctx, doc))

	got, err := store.GetDocument(ctx, "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", got.ID)
	assert.Equal(t, "cats are mammals", got.Content)
	assert.Equal(t, "notes.txt", got.Metadata.SourceName)
	assert.WithinDuration(t, doc.Metadata.IndexedAt, got.Metadata.IndexedAt, 0)

	exists, err := store.Exists(ctx, "notes.txt")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "missing.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.GetDocument(ctx, "missing.txt")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestSQLite_AddOverwrites(t *testing.T) {
	store := setupSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, NewDocument("a.txt", "first version")))
	require.NoError(t, store.Add(ctx, NewDocument("a.txt", "second version")))

	ids, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, ids)

	got, err := store.GetDocument(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second version", got.Content)
}

func TestSQLite_QueryEmptyStore(t *testing.T) {
	store := setupSQLiteStorage(t)

	results, err := store.Query(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestSQLite_QueryRanksBySimilarity(t *testing.T) {
	store := setupSQLiteStorage(t)
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, NewDocument("d1.txt", "cats are mammals")))
	require.NoError(t, store.Add(ctx, NewDocument("d2.txt", "rockets use fuel")))

	results, err := store.Query(ctx, "tell me about mammals", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "d1.txt", results[0].ID)
	assert.Equal(t, "cats are mammals", results[0].Content)

	all, err := store.Query(ctx, "tell me about mammals", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.GreaterOrEqual(t, all[0].Score, all[1].Score)
}

func TestSQLite_ListAndClear(t *testing.T) {
	store := setupSQLiteStorage(t)
	ctx := context.Background()

	for _, name := range []string{"c.txt", "a.txt", "b.txt"} {
		require.NoError(t, store.Add(ctx, NewDocument(name, "content of "+name)))
	}

	ids, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, ids)

	require.NoError(t, store.Clear(ctx))
	ids, err = store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSQLite_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := NewSQLiteStorage(dir, "", embedding.NewHashEmbedder(0))
	require.NoError(t, err)
	require.NoError(t, store.Add(ctx, NewDocument("keep.txt", "this content must survive a restart")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStorage(dir, "", embedding.NewHashEmbedder(0))
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.GetDocument(ctx, "keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "this content must survive a restart", got.Content)
}

func TestSQLite_CollectionsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewSQLiteStorage(dir, "first", embedding.NewHashEmbedder(0))
	require.NoError(t, err)
	defer first.Close()
	second, err := NewSQLiteStorage(dir, "second", embedding.NewHashEmbedder(0))
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, first.Add(ctx, NewDocument("x.txt", "only in first")))

	results, err := second.Query(ctx, "first", 1)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSQLite_EmbeddingFailureIsWriteError(t *testing.T) {
	store, err := NewSQLiteStorage(t.TempDir(), "", failingEmbedder{})
	require.NoError(t, err)
	defer store.Close()

	err = store.Add(context.Background(), NewDocument("a.txt", "text"))
	assert.ErrorIs(t, err, ErrStoreWrite)

	_, err = store.Query(context.Background(), "text", 1)
	assert.ErrorIs(t, err, ErrStoreQuery)
}

func TestSQLite_ClosedDatabase(t *testing.T) {
	store, err := NewSQLiteStorage(t.TempDir(), "", embedding.NewHashEmbedder(0))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	ctx := context.Background()
	assert.ErrorIs(t, store.Add(ctx, NewDocument("a.txt", "text")), ErrStoreWrite)

	_, err = store.Query(ctx, "text", 1)
	assert.ErrorIs(t, err, ErrStoreQuery)
	assert.Error(t, store.Health(ctx))
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.Zero(t, cosine([]float32{0, 0}, []float32{1, 1}))
}
