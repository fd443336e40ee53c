package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RAG_CONFIG", "PORT", "STAGING_DIR", "MAX_FILE_BYTES", "STORE_BACKEND", "STORE_PATH",
		"COLLECTION", "QDRANT_HOST", "QDRANT_PORT", "EMBEDDER", "EMBEDDING_DIMENSION",
		"OPENAI_API_KEY", "INFERENCE_SERVER_URL", "INFERENCE_TIMEOUT", "MODEL_ID",
		"WORKER_RUNTIME", "WORKER_IMAGE", "WORKER_MOUNT_POINT", "WORKER_TIMEOUT",
		"MAX_BATCH_FILES", "MAX_UPLOAD_BYTES", "MAX_CONCURRENT_REQUESTS",
		"LOG_LEVEL", "LOG_FORMAT", "DUPLICATE_POLICY", "MCP_STDIO", "MCP_STATELESS",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiresInferenceURL(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "INFERENCE_SERVER_URL is required")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFERENCE_SERVER_URL", "http://localhost:5001/infer")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./uploads", cfg.StagingDir)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "uploaded_documents", cfg.Store.Collection)
	assert.Equal(t, EmbedderHash, cfg.Embedding.Provider)
	assert.Equal(t, "Llama3-8B-1.58-100B-tokens-TQ2_0.gguf", cfg.Worker.Model)
	assert.Equal(t, "bitnet_with_files", cfg.Worker.Image)
	assert.Equal(t, "overwrite", cfg.DuplicatePolicy)
	assert.Zero(t, cfg.Worker.Timeout)
	assert.Zero(t, cfg.Inference.Timeout)
	assert.False(t, cfg.MCPStateless)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFERENCE_SERVER_URL", "http://infer:9000")
	t.Setenv("STORE_BACKEND", "QDRANT")
	t.Setenv("QDRANT_PORT", "7000")
	t.Setenv("WORKER_TIMEOUT", "90s")
	t.Setenv("MAX_CONCURRENT_REQUESTS", "4")
	t.Setenv("DUPLICATE_POLICY", "reject")
	t.Setenv("MCP_STDIO", "true")
	t.Setenv("MCP_STATELESS", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, BackendQdrant, cfg.Store.Backend)
	assert.Equal(t, 7000, cfg.Store.QdrantPort)
	assert.Equal(t, 90*time.Second, cfg.Worker.Timeout)
	assert.Equal(t, 4, cfg.Limits.MaxConcurrentRequests)
	assert.Equal(t, "reject", cfg.DuplicatePolicy)
	assert.True(t, cfg.MCPStdio)
	assert.True(t, cfg.MCPStateless)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9090"
staging_dir: /var/lib/rag/uploads
inference:
  url: http://from-file:5000
  timeout: 45s
worker:
  model: small.gguf
limits:
  max_batch_files: 5
mcp_stateless: true
`), 0o644))
	t.Setenv("RAG_CONFIG", path)
	t.Setenv("PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Port, "environment wins over the file")
	assert.Equal(t, "/var/lib/rag/uploads", cfg.StagingDir)
	assert.Equal(t, "http://from-file:5000", cfg.Inference.URL)
	assert.Equal(t, 45*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, "small.gguf", cfg.Worker.Model)
	assert.Equal(t, 5, cfg.Limits.MaxBatchFiles)
	assert.True(t, cfg.MCPStateless)
	assert.Equal(t, "bitnet_with_files", cfg.Worker.Image, "unset file fields keep defaults")
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("INFERENCE_SERVER_URL", "http://x")
	t.Setenv("QDRANT_PORT", "not-a-number")
	t.Setenv("WORKER_TIMEOUT", "soon")
	t.Setenv("MCP_STATELESS", "sometimes")

	_, err := Load()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "QDRANT_PORT")
	assert.Contains(t, err.Error(), "WORKER_TIMEOUT")
	assert.Contains(t, err.Error(), "MCP_STATELESS")
}

func TestValidate_Enums(t *testing.T) {
	cfg := Default()
	cfg.Inference.URL = "http://x"
	cfg.Store.Backend = "chroma"
	cfg.Embedding.Provider = "openai"
	cfg.DuplicatePolicy = "ignore"

	err := cfg.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), `unknown STORE_BACKEND "chroma"`)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY is required")
	assert.Contains(t, err.Error(), `unknown DUPLICATE_POLICY "ignore"`)
}
