// Package app wires the store, worker dispatcher, inference client and both
// coordinators from a Config. Every handle is built once and injected; there
// are no package-level singletons.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/bull/bitnet-rag/internal/config"
	"github.com/bull/bitnet-rag/internal/embedding"
	"github.com/bull/bitnet-rag/internal/indexer"
	"github.com/bull/bitnet-rag/internal/inference"
	"github.com/bull/bitnet-rag/internal/query"
	"github.com/bull/bitnet-rag/internal/staging"
	"github.com/bull/bitnet-rag/internal/storage"
	"github.com/bull/bitnet-rag/internal/worker"
)

// App holds the constructed components.
type App struct {
	Config     *config.Config
	Store      storage.Store
	Staging    *staging.Dir
	Dispatcher worker.Dispatcher
	Inference  *inference.Client
	Ingestor   *indexer.Pipeline
	Querier    *query.Service
	Logger     *slog.Logger
}

// Build constructs every component. The caller owns the returned App and
// must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	embedder, err := NewEmbedder(cfg.Embedding)
	if err != nil {
		return nil, err
	}

	store, err := NewStore(ctx, cfg.Store, embedder)
	if err != nil {
		return nil, err
	}

	stagingDir, err := staging.New(cfg.StagingDir, cfg.MaxFileBytes)
	if err != nil {
		store.Close()
		return nil, err
	}

	inferenceClient, err := inference.NewClient(cfg.Inference.URL, cfg.Inference.Timeout)
	if err != nil {
		store.Close()
		return nil, err
	}

	dispatcher := worker.NewContainerDispatcher(worker.ContainerConfig{
		Runtime:    cfg.Worker.Runtime,
		Image:      cfg.Worker.Image,
		StagingDir: stagingDir.Root(),
		MountPoint: cfg.Worker.MountPoint,
		Timeout:    cfg.Worker.Timeout,
	}, logger.With("component", "worker"))

	ingestor := indexer.NewPipeline(stagingDir, store, dispatcher, indexer.Config{
		Model:         cfg.Worker.Model,
		Policy:        indexer.DuplicatePolicy(cfg.DuplicatePolicy),
		MaxBatchFiles: cfg.Limits.MaxBatchFiles,
	}, logger.With("component", "ingest"))

	querier := query.NewService(store, inferenceClient, logger.With("component", "query"))

	return &App{
		Config:     cfg,
		Store:      store,
		Staging:    stagingDir,
		Dispatcher: dispatcher,
		Inference:  inferenceClient,
		Ingestor:   ingestor,
		Querier:    querier,
		Logger:     logger,
	}, nil
}

// Close releases the store handle.
func (a *App) Close() error {
	return a.Store.Close()
}

// NewEmbedder returns the configured embedder.
func NewEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case config.EmbedderOpenAI:
		client, err := embedding.NewClient(cfg.OpenAIAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		return embedding.NewOpenAIEmbedder(client, 0), nil
	case config.EmbedderHash, "":
		return embedding.NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedder %q", cfg.Provider)
	}
}

// NewStore opens the configured backend. Qdrant collections are created on
// first use.
func NewStore(ctx context.Context, cfg config.StoreConfig, embedder embedding.Embedder) (storage.Store, error) {
	switch cfg.Backend {
	case config.BackendQdrant:
		store, err := storage.NewQdrantStorage(cfg.QdrantHost, cfg.QdrantPort, cfg.Collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		if err := store.EnsureCollection(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to ensure collection: %w", err)
		}
		return store, nil
	case config.BackendSQLite, "":
		store, err := storage.NewSQLiteStorage(cfg.Path, cfg.Collection, embedder)
		if err != nil {
			return nil, fmt.Errorf("failed to open document store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// NewLogger builds a slog logger writing text or JSON at the configured level.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
