// Package indexer is the ingestion coordinator: it stages uploaded files,
// registers them in the document store and dispatches one worker per file.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bull/bitnet-rag/internal/staging"
	"github.com/bull/bitnet-rag/internal/storage"
	"github.com/bull/bitnet-rag/internal/worker"
)

var (
	// ErrNoFiles is returned for an empty upload batch.
	ErrNoFiles = errors.New("no files uploaded")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatchFiles.
	ErrBatchTooLarge = errors.New("too many files in one upload")
	// ErrDocumentExists is returned under PolicyReject when the document ID is already stored.
	ErrDocumentExists = errors.New("document already exists")
)

// DuplicatePolicy decides what happens when an upload reuses a stored document ID.
type DuplicatePolicy string

const (
	// PolicyOverwrite replaces content and metadata of the stored document.
	PolicyOverwrite DuplicatePolicy = "overwrite"
	// PolicyReject fails the upload with ErrDocumentExists.
	PolicyReject DuplicatePolicy = "reject"
)

// Upload is one file of an upload batch.
type Upload struct {
	Filename string
	Content  []byte
}

// IngestResult contains statistics about an ingestion run. On failure it
// still lists the documents completed before the failing file.
type IngestResult struct {
	Processed int
	Documents []string
	Duration  time.Duration
}

// FileError reports which file of the batch failed.
type FileError struct {
	Index    int
	Filename string
	Err      error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %d (%s): %v", e.Index+1, e.Filename, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Config holds the coordinator settings.
type Config struct {
	Model         string          // model identifier passed to every worker
	Policy        DuplicatePolicy // empty means PolicyOverwrite
	MaxBatchFiles int             // 0 means unlimited
}

// Pipeline orchestrates staging, store registration and worker dispatch.
type Pipeline struct {
	staging    *staging.Dir
	store      storage.Store
	dispatcher worker.Dispatcher
	cfg        Config
	logger     *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	stagingDir *staging.Dir,
	store storage.Store,
	dispatcher worker.Dispatcher,
	cfg Config,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Policy == "" {
		cfg.Policy = PolicyOverwrite
	}
	return &Pipeline{
		staging:    stagingDir,
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// Ingest processes the batch strictly in order, one file at a time. The first
// failure stops the batch; files completed before it stay stored and are not
// rolled back.
func (p *Pipeline) Ingest(ctx context.Context, uploads []Upload) (*IngestResult, error) {
	start := time.Now()
	result := &IngestResult{Documents: []string{}}

	if len(uploads) == 0 {
		return result, ErrNoFiles
	}
	if p.cfg.MaxBatchFiles > 0 && len(uploads) > p.cfg.MaxBatchFiles {
		return result, fmt.Errorf("%w: %d files, limit %d", ErrBatchTooLarge, len(uploads), p.cfg.MaxBatchFiles)
	}

	p.logger.Info("Starting ingestion", "files", len(uploads), "model", p.cfg.Model)

	for i, upload := range uploads {
		id, err := p.processFile(ctx, upload)
		if err != nil {
			result.Duration = time.Since(start)
			p.logger.Warn("Failed to ingest file",
				"index", i,
				"filename", upload.Filename,
				"completed", result.Processed,
				"skipped", len(uploads)-i-1,
				"error", err,
			)
			return result, &FileError{Index: i, Filename: upload.Filename, Err: err}
		}
		result.Processed++
		result.Documents = append(result.Documents, id)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Ingestion complete", "processed", result.Processed, "duration", result.Duration)
	return result, nil
}

// processFile handles the full pipeline for a single file and returns its document ID.
func (p *Pipeline) processFile(ctx context.Context, upload Upload) (string, error) {
	name, err := staging.SanitizeFilename(upload.Filename)
	if err != nil {
		return "", err
	}

	if p.cfg.Policy == PolicyReject {
		exists, err := p.store.Exists(ctx, name)
		if err != nil {
			return "", fmt.Errorf("check duplicate: %w", err)
		}
		if exists {
			return "", fmt.Errorf("%w: %s", ErrDocumentExists, name)
		}
	}

	path, err := p.staging.Save(name, upload.Content)
	if err != nil {
		return "", err
	}
	p.logger.Debug("Staged file", "document", name, "size", len(upload.Content))

	content, err := p.staging.ReadText(path)
	if err != nil {
		return "", err
	}

	if err := p.store.Add(ctx, storage.NewDocument(name, content)); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}
	p.logger.Debug("Stored document", "document", name)

	if err := p.dispatcher.Run(ctx, p.cfg.Model, path); err != nil {
		return "", fmt.Errorf("dispatch worker: %w", err)
	}

	p.logger.Info("Ingested document", "document", name)
	return name, nil
}
