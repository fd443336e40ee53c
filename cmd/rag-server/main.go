// Package main provides the HTTP entry point for the BitNet RAG service.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/bitnet-rag/internal/app"
	"github.com/bull/bitnet-rag/internal/config"
	"github.com/bull/bitnet-rag/internal/httpapi"
	mcpserver "github.com/bull/bitnet-rag/internal/mcp"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// stdout is reserved for the MCP stdio transport
	logger := app.NewLogger(cfg.Log, os.Stderr)
	slog.SetDefault(logger)

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	mcp := mcpserver.NewServer(&mcpserver.Config{
		Querier: a.Querier,
		Lister:  a.Store,
	})

	handler := httpapi.NewRouter(httpapi.Dependencies{
		Ingestor:              a.Ingestor,
		Querier:               a.Querier,
		Lister:                a.Store,
		Health:                a.Store,
		MCP:                   mcp.HTTPHandler(&mcpserver.HTTPHandlerOptions{Stateless: cfg.MCPStateless}),
		MaxUploadBytes:        cfg.Limits.MaxUploadBytes,
		MaxConcurrentRequests: cfg.Limits.MaxConcurrentRequests,
		Logger:                logger.With("component", "http"),
	})

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 2)
	go func() {
		logger.Info("Starting HTTP server",
			"addr", srv.Addr,
			"store", cfg.Store.Backend,
			"embedder", cfg.Embedding.Provider,
			"inference_url", cfg.Inference.URL,
		)
		errs <- srv.ListenAndServe()
	}()

	if cfg.MCPStdio {
		go func() {
			logger.Info("Starting MCP server (stdio mode)")
			if err := mcp.Run(ctx); err != nil {
				logger.Error("MCP stdio server stopped", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
