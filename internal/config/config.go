// Package config loads service settings from an optional YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendQdrant = "qdrant"
)

// Embedders.
const (
	EmbedderHash   = "hash"
	EmbedderOpenAI = "openai"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full service configuration.
type Config struct {
	Port string `yaml:"port"`

	StagingDir   string `yaml:"staging_dir"`
	MaxFileBytes int64  `yaml:"max_file_bytes"`

	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Inference InferenceConfig `yaml:"inference"`
	Worker    WorkerConfig    `yaml:"worker"`
	Limits    LimitsConfig    `yaml:"limits"`
	Log       LogConfig       `yaml:"log"`

	DuplicatePolicy string `yaml:"duplicate_policy"`
	MCPStdio        bool   `yaml:"mcp_stdio"`
	MCPStateless    bool   `yaml:"mcp_stateless"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	Collection string `yaml:"collection"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
}

// EmbeddingConfig selects the embedder.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	Dimension    int    `yaml:"dimension"`
	OpenAIAPIKey string `yaml:"-"`
}

// InferenceConfig locates the inference server.
type InferenceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// WorkerConfig configures the external worker container.
type WorkerConfig struct {
	Model      string        `yaml:"model"`
	Runtime    string        `yaml:"runtime"`
	Image      string        `yaml:"image"`
	MountPoint string        `yaml:"mount_point"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LimitsConfig bounds request sizes and concurrency. Zero disables a limit.
type LimitsConfig struct {
	MaxBatchFiles         int   `yaml:"max_batch_files"`
	MaxUploadBytes        int64 `yaml:"max_upload_bytes"`
	MaxConcurrentRequests int   `yaml:"max_concurrent_requests"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port:         "8080",
		StagingDir:   "./uploads",
		MaxFileBytes: 10 << 20,
		Store: StoreConfig{
			Backend:    BackendSQLite,
			Path:       "./rag_db",
			Collection: "uploaded_documents",
			QdrantHost: "localhost",
			QdrantPort: 6334,
		},
		Embedding: EmbeddingConfig{
			Provider: EmbedderHash,
		},
		Worker: WorkerConfig{
			Model:      "Llama3-8B-1.58-100B-tokens-TQ2_0.gguf",
			Runtime:    "docker",
			Image:      "bitnet_with_files",
			MountPoint: "/uploads",
		},
		Limits: LimitsConfig{
			MaxBatchFiles:  32,
			MaxUploadBytes: 64 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DuplicatePolicy: "overwrite",
	}
}

// Load builds the configuration: defaults, then the YAML file named by
// RAG_CONFIG (if set), then environment variables. The result is validated.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("RAG_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error
	c.Port = getEnv("PORT", c.Port)
	c.StagingDir = getEnv("STAGING_DIR", c.StagingDir)
	c.MaxFileBytes = getEnvInt64("MAX_FILE_BYTES", c.MaxFileBytes, &errs)

	c.Store.Backend = strings.ToLower(getEnv("STORE_BACKEND", c.Store.Backend))
	c.Store.Path = getEnv("STORE_PATH", c.Store.Path)
	c.Store.Collection = getEnv("COLLECTION", c.Store.Collection)
	c.Store.QdrantHost = getEnv("QDRANT_HOST", c.Store.QdrantHost)
	c.Store.QdrantPort = getEnvInt("QDRANT_PORT", c.Store.QdrantPort, &errs)

	c.Embedding.Provider = strings.ToLower(getEnv("EMBEDDER", c.Embedding.Provider))
	c.Embedding.Dimension = getEnvInt("EMBEDDING_DIMENSION", c.Embedding.Dimension, &errs)
	c.Embedding.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.Embedding.OpenAIAPIKey)

	c.Inference.URL = getEnv("INFERENCE_SERVER_URL", c.Inference.URL)
	c.Inference.Timeout = getEnvDuration("INFERENCE_TIMEOUT", c.Inference.Timeout, &errs)

	c.Worker.Model = getEnv("MODEL_ID", c.Worker.Model)
	c.Worker.Runtime = getEnv("WORKER_RUNTIME", c.Worker.Runtime)
	c.Worker.Image = getEnv("WORKER_IMAGE", c.Worker.Image)
	c.Worker.MountPoint = getEnv("WORKER_MOUNT_POINT", c.Worker.MountPoint)
	c.Worker.Timeout = getEnvDuration("WORKER_TIMEOUT", c.Worker.Timeout, &errs)

	c.Limits.MaxBatchFiles = getEnvInt("MAX_BATCH_FILES", c.Limits.MaxBatchFiles, &errs)
	c.Limits.MaxUploadBytes = getEnvInt64("MAX_UPLOAD_BYTES", c.Limits.MaxUploadBytes, &errs)
	c.Limits.MaxConcurrentRequests = getEnvInt("MAX_CONCURRENT_REQUESTS", c.Limits.MaxConcurrentRequests, &errs)

	c.Log.Level = strings.ToLower(getEnv("LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(getEnv("LOG_FORMAT", c.Log.Format))

	c.DuplicatePolicy = strings.ToLower(getEnv("DUPLICATE_POLICY", c.DuplicatePolicy))
	c.MCPStdio = getEnvBool("MCP_STDIO", c.MCPStdio, &errs)
	c.MCPStateless = getEnvBool("MCP_STATELESS", c.MCPStateless, &errs)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Validate checks required values and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Inference.URL) == "" {
		errs = append(errs, errors.New("INFERENCE_SERVER_URL is required"))
	}
	if c.StagingDir == "" {
		errs = append(errs, errors.New("STAGING_DIR must not be empty"))
	}
	if c.Worker.Model == "" {
		errs = append(errs, errors.New("MODEL_ID must not be empty"))
	}
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.Path == "" {
			errs = append(errs, errors.New("STORE_PATH must not be empty"))
		}
	case BackendQdrant:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend))
	}
	switch c.Embedding.Provider {
	case EmbedderHash:
	case EmbedderOpenAI:
		if c.Embedding.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai embedder"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDER %q", c.Embedding.Provider))
	}
	switch c.DuplicatePolicy {
	case "overwrite", "reject":
	default:
		errs = append(errs, fmt.Errorf("unknown DUPLICATE_POLICY %q", c.DuplicatePolicy))
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_FORMAT %q", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int, errs *[]error) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return defaultValue
		}
		return i
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64, errs *[]error) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return defaultValue
		}
		return i
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration, errs *[]error) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
			return defaultValue
		}
		return d
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool, errs *[]error) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return b
}
