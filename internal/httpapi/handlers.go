package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/bull/bitnet-rag/internal/indexer"
	"github.com/bull/bitnet-rag/internal/query"
)

// Ingestor runs an upload batch through the ingestion coordinator.
type Ingestor interface {
	Ingest(ctx context.Context, uploads []indexer.Upload) (*indexer.IngestResult, error)
}

// Querier answers a natural-language query.
type Querier interface {
	Ask(ctx context.Context, text string) (*query.Answer, error)
}

// DocumentLister lists stored document IDs.
type DocumentLister interface {
	ListDocuments(ctx context.Context) ([]string, error)
}

// NewUploadHandler handles POST /upload. Every file part of the multipart
// body is ingested, in the order the parts were sent. maxBytes <= 0 leaves
// the body size unbounded.
func NewUploadHandler(ingestor Ingestor, maxBytes int64, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if maxBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		}

		uploads, err := readUploads(r)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}

		result, err := ingestor.Ingest(r.Context(), uploads)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}

		writeJSON(w, http.StatusOK, UploadResponse{
			Message:   fmt.Sprintf("%d file(s) uploaded, stored, and processed successfully", result.Processed),
			Processed: result.Processed,
			Documents: result.Documents,
		})
	}
}

// readUploads streams the multipart body so part order is preserved.
// A request that is not multipart carries no files.
func readUploads(r *http.Request) ([]indexer.Upload, error) {
	reader, err := r.MultipartReader()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedUpload, err)
	}

	var uploads []indexer.Upload
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			return uploads, nil
		}
		if err != nil {
			return nil, wrapBodyError(err)
		}

		upload, ok, err := readPart(part)
		if err != nil {
			return nil, err
		}
		if ok {
			uploads = append(uploads, upload)
		}
	}
}

func readPart(part *multipart.Part) (indexer.Upload, bool, error) {
	defer part.Close()
	if part.FileName() == "" {
		return indexer.Upload{}, false, nil
	}
	content, err := io.ReadAll(part)
	if err != nil {
		return indexer.Upload{}, false, wrapBodyError(err)
	}
	return indexer.Upload{Filename: part.FileName(), Content: content}, true, nil
}

func wrapBodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: %v", errMalformedUpload, err)
}

// NewQueryHandler handles POST /query. A body that is not a JSON object with
// a string "query" field is treated as a missing query.
func NewQueryHandler(querier Querier, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Debug("Invalid query body", "error", err)
			writeError(w, logger, r, query.ErrMissingQuery)
			return
		}

		answer, err := querier.Ask(r.Context(), req.Query)
		if err != nil {
			writeError(w, logger, r, err)
			return
		}

		writeJSON(w, http.StatusOK, QueryResponse{
			Query:    answer.Query,
			Context:  answer.Context,
			Response: answer.Response,
		})
	}
}

// NewDocumentsHandler handles GET /documents.
func NewDocumentsHandler(lister DocumentLister, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := lister.ListDocuments(r.Context())
		if err != nil {
			writeError(w, logger, r, err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, DocumentsResponse{Documents: ids, Count: len(ids)})
	}
}
