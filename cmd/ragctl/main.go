// Package main provides ragctl, a CLI for ingesting, querying and managing
// the document store without going through the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/bitnet-rag/internal/app"
	"github.com/bull/bitnet-rag/internal/config"
	"github.com/bull/bitnet-rag/internal/indexer"
)

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "BitNet RAG document store tool",
	Long: `CLI tool for the BitNet RAG document store.

Uses the same configuration as rag-server (environment, .env and RAG_CONFIG).`,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE...",
	Short: "Ingest local text files",
	Long: `Stages, stores and dispatches a worker for each file, in order.

Stops at the first failure; files processed before it stay stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var queryCmd = &cobra.Command{
	Use:   "query TEXT",
	Short: "Answer a query from the best-matching document",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored document IDs",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every stored document",
	Long:  "Clears the configured collection (Qdrant) or table rows (SQLite). Staged files are left in place.",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.AddCommand(ingestCmd, queryCmd, listCmd, resetCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}

func buildApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, app.NewLogger(cfg.Log, os.Stderr))
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	uploads := make([]indexer.Upload, 0, len(args))
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("Failed to read %s: %w", path, err)
		}
		uploads = append(uploads, indexer.Upload{Filename: filepath.Base(path), Content: content})
	}

	result, err := a.Ingestor.Ingest(ctx, uploads)
	if err != nil {
		return fmt.Errorf("Ingest failed: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d file(s) uploaded, stored, and processed successfully\n", result.Processed)
	for _, id := range result.Documents {
		fmt.Fprintf(out, "  - %s\n", id)
	}
	fmt.Fprintf(out, "Total time: %s\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	answer, err := a.Querier.Ask(ctx, args[0])
	if err != nil {
		return fmt.Errorf("Query failed: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(answer)
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ids, err := a.Store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("Failed to list documents: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, id := range ids {
		fmt.Fprintln(out, id)
	}
	fmt.Fprintf(out, "%d document(s)\n", len(ids))
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Store.Clear(ctx); err != nil {
		return fmt.Errorf("Failed to clear store: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Store cleared")
	return nil
}
