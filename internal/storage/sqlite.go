package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bull/bitnet-rag/internal/embedding"
)

// sqliteFile is the database file created inside the store directory.
const sqliteFile = "documents.db"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS documents (
	collection  TEXT NOT NULL,
	id          TEXT NOT NULL,
	content     TEXT NOT NULL,
	source_name TEXT NOT NULL,
	indexed_at  TEXT NOT NULL,
	dim         INTEGER NOT NULL,
	vector      TEXT NOT NULL,
	PRIMARY KEY (collection, id)
)`

// SQLiteStorage is a persistent local document store. Vectors are kept as
// JSON next to the content and ranked by cosine similarity in-process, which
// is adequate for the single-node document counts this service handles.
type SQLiteStorage struct {
	db         *sql.DB
	embedder   embedding.Embedder
	collection string
	path       string
}

var _ Store = (*SQLiteStorage)(nil)

// NewSQLiteStorage opens (or creates) the store under dir.
func NewSQLiteStorage(dir, collection string, embedder embedding.Embedder) (*SQLiteStorage, error) {
	if collection == "" {
		collection = DefaultCollectionName
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, sqliteFile)
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStorage{
		db:         db,
		embedder:   embedder,
		collection: collection,
		path:       dbPath,
	}, nil
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string { return s.path }

// Health pings the database.
func (s *SQLiteStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Add embeds and upserts the document. An existing row with the same ID is replaced.
func (s *SQLiteStorage) Add(ctx context.Context, doc *Document) error {
	vector, err := embedOne(ctx, s.embedder, doc.Content)
	if err != nil {
		return fmt.Errorf("%w: embed %s: %w", ErrStoreWrite, doc.ID, err)
	}
	vecJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("%w: encode vector: %w", ErrStoreWrite, err)
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (collection, id, content, source_name, indexed_at, dim, vector)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (collection, id) DO UPDATE SET
	content = excluded.content,
	source_name = excluded.source_name,
	indexed_at = excluded.indexed_at,
	dim = excluded.dim,
	vector = excluded.vector`,
		s.collection, doc.ID, doc.Content, doc.Metadata.SourceName,
		doc.Metadata.IndexedAt.UTC().Format(time.RFC3339Nano), len(vector), string(vecJSON),
	)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %w", ErrStoreWrite, doc.ID, err)
	}
	return nil
}

// Query ranks every document of matching dimension against the query vector.
// Ties keep ID order.
func (s *SQLiteStorage) Query(ctx context.Context, text string, topK int) ([]*ScoredDocument, error) {
	if topK <= 0 {
		topK = 1
	}

	query, err := embedOne(ctx, s.embedder, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", ErrStoreQuery, err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, content, source_name, indexed_at, vector FROM documents
WHERE collection = ? AND dim = ?
ORDER BY id`, s.collection, len(query))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}
	defer rows.Close()

	var results []*ScoredDocument
	for rows.Next() {
		var doc Document
		var indexedAt, vecStr string
		if err := rows.Scan(&doc.ID, &doc.Content, &doc.Metadata.SourceName, &indexedAt, &vecStr); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreQuery, err)
		}
		var vec []float32
		if err := json.Unmarshal([]byte(vecStr), &vec); err != nil || len(vec) != len(query) {
			continue
		}
		doc.Metadata.IndexedAt = parseTime(indexedAt)
		results = append(results, &ScoredDocument{Document: &doc, Score: cosine(query, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []*ScoredDocument{}
	}
	return results, nil
}

// Exists reports whether a document with the given ID is stored.
func (s *SQLiteStorage) Exists(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE collection = ? AND id = ?`, s.collection, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreQuery, err)
	}
	return true, nil
}

// GetDocument retrieves a document by ID.
// Returns ErrDocumentNotFound if document doesn't exist.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*Document, error) {
	var doc Document
	var indexedAt string
	err := s.db.QueryRowContext(ctx, `
SELECT id, content, source_name, indexed_at FROM documents
WHERE collection = ? AND id = ?`, s.collection, id,
	).Scan(&doc.ID, &doc.Content, &doc.Metadata.SourceName, &indexedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	doc.Metadata.IndexedAt = parseTime(indexedAt)
	return &doc, nil
}

// ListDocuments returns all document IDs in the collection, sorted.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM documents WHERE collection = ? ORDER BY id`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Clear deletes every document in the collection.
func (s *SQLiteStorage) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, s.collection); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	return nil
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
