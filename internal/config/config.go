package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	DBPath    string
	UploadDir string

	IndexBackend     string // "badger" or "qdrant"
	IndexPath        string
	QdrantURL        string
	QdrantCollection string

	EmbeddingBackend   string // "openai", "langchain" or "hash"
	EmbeddingBaseURL   string
	EmbeddingModelName string
	EmbeddingDim       int
	EmbeddingCacheURL  string
	EmbeddingRPS       float64 // 0 disables rate limiting

	LLMBaseURL   string
	LLMModelName string
	LLMAPIKey    string

	ChunkSize     int
	RetrievalK    int
	IngestDedupe  bool
	IngestWorkers int
	OCRSummarize  bool

	BlobBackend    string // "fs" or "minio"
	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the rest.
// If a .env file exists in the current directory or one of its parents, it is loaded first;
// variables already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		DBPath:             getEnv("DB_PATH", "./data/docrag.db"),
		UploadDir:          getEnv("UPLOAD_DIR", "./data/uploaded_files"),
		IndexBackend:       strings.ToLower(getEnv("INDEX_BACKEND", "badger")),
		IndexPath:          getEnv("INDEX_PATH", "./data/index"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "document_collection"),
		EmbeddingBackend:   strings.ToLower(getEnv("EMBEDDING_BACKEND", "openai")),
		EmbeddingBaseURL:   getEnv("EMBEDDING_BASE_URL", "http://localhost:8081"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "all-MiniLM-L6-v2"),
		EmbeddingCacheURL:  getEnv("EMBEDDING_CACHE_URL", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", "http://localhost:8080"),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4.1"),
		LLMAPIKey:          getEnv("LLM_API_KEY", "dummy-key"),
		BlobBackend:        strings.ToLower(getEnv("BLOB_BACKEND", "fs")),
		MinIOEndpoint:      getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinIOAccessKey:     getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:     getEnv("MINIO_SECRET_KEY", ""),
		MinIOBucket:        getEnv("MINIO_BUCKET", "uploads"),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be one of text, json")
	}

	// EMBEDDING_DIM must match the output size of the embedding model.
	// all-MiniLM-L6-v2 produces 384 dimensions. Changing it requires a fresh index.
	if cfg.EmbeddingDim, err = getPositiveInt("EMBEDDING_DIM", 384); err != nil {
		return nil, err
	}
	if cfg.ChunkSize, err = getPositiveInt("CHUNK_SIZE", 500); err != nil {
		return nil, err
	}
	if cfg.RetrievalK, err = getPositiveInt("RETRIEVAL_K", 3); err != nil {
		return nil, err
	}
	if cfg.IngestWorkers, err = getPositiveInt("INGEST_WORKERS", 4); err != nil {
		return nil, err
	}
	if cfg.IngestDedupe, err = getBool("INGEST_DEDUPE", false); err != nil {
		return nil, err
	}
	if cfg.OCRSummarize, err = getBool("OCR_SUMMARIZE", true); err != nil {
		return nil, err
	}
	if cfg.MinIOUseSSL, err = getBool("MINIO_USE_SSL", false); err != nil {
		return nil, err
	}
	if cfg.EmbeddingRPS, err = getNonNegativeFloat("EMBEDDING_RPS", 0); err != nil {
		return nil, err
	}

	switch cfg.IndexBackend {
	case "badger", "qdrant":
	default:
		return nil, fmt.Errorf("INDEX_BACKEND must be one of badger, qdrant, got %q", cfg.IndexBackend)
	}
	switch cfg.EmbeddingBackend {
	case "openai", "langchain", "hash":
	default:
		return nil, fmt.Errorf("EMBEDDING_BACKEND must be one of openai, langchain, hash, got %q", cfg.EmbeddingBackend)
	}
	switch cfg.BlobBackend {
	case "fs":
	case "minio":
		if cfg.MinIOAccessKey == "" || cfg.MinIOSecretKey == "" {
			return nil, fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required when BLOB_BACKEND=minio")
		}
	default:
		return nil, fmt.Errorf("BLOB_BACKEND must be one of fs, minio, got %q", cfg.BlobBackend)
	}

	// Create the data directory for the SQLite file
	dataDir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}

func getNonNegativeFloat(key string, defaultValue float64) (float64, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return f, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", s)
	}
}
