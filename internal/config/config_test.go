package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

var configEnvVars = []string{
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT", "DB_PATH", "UPLOAD_DIR",
	"INDEX_BACKEND", "INDEX_PATH", "QDRANT_URL", "QDRANT_COLLECTION",
	"EMBEDDING_BACKEND", "EMBEDDING_BASE_URL", "EMBEDDING_MODEL_NAME", "EMBEDDING_DIM", "EMBEDDING_CACHE_URL", "EMBEDDING_RPS",
	"LLM_BASE_URL", "LLM_MODEL", "LLM_API_KEY",
	"CHUNK_SIZE", "RETRIEVAL_K", "INGEST_DEDUPE", "INGEST_WORKERS", "OCR_SUMMARIZE",
	"BLOB_BACKEND", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
}

// clearEnv blanks every variable Load reads so that a developer's shell or .env
// does not leak into the test. getEnv treats "" as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		t.Setenv(key, "")
	}
	t.Setenv("DB_PATH", filepath.Join(t.TempDir(), "data", "test.db"))
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:     "defaults",
			setupEnv: func(t *testing.T) {},
			wantErr:  false,
			checkConfig: func(cfg *Config) bool {
				return cfg.APIPort == "8000" &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text" &&
					cfg.IndexBackend == "badger" &&
					cfg.IndexPath == "./data/index" &&
					cfg.QdrantCollection == "document_collection" &&
					cfg.EmbeddingBackend == "openai" &&
					cfg.EmbeddingDim == 384 &&
					cfg.ChunkSize == 500 &&
					cfg.RetrievalK == 3 &&
					cfg.IngestWorkers == 4 &&
					!cfg.IngestDedupe &&
					cfg.OCRSummarize &&
					cfg.BlobBackend == "fs"
			},
		},
		{
			name: "custom values",
			setupEnv: func(t *testing.T) {
				t.Setenv("API_PORT", "9100")
				t.Setenv("LOG_LEVEL", "debug")
				t.Setenv("LOG_FORMAT", "JSON")
				t.Setenv("INDEX_BACKEND", "qdrant")
				t.Setenv("EMBEDDING_BACKEND", "hash")
				t.Setenv("EMBEDDING_DIM", "768")
				t.Setenv("CHUNK_SIZE", "250")
				t.Setenv("RETRIEVAL_K", "5")
				t.Setenv("INGEST_DEDUPE", "true")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.APIPort == "9100" &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json" &&
					cfg.IndexBackend == "qdrant" &&
					cfg.EmbeddingBackend == "hash" &&
					cfg.EmbeddingDim == 768 &&
					cfg.ChunkSize == 250 &&
					cfg.RetrievalK == 5 &&
					cfg.IngestDedupe
			},
		},
		{
			name: "invalid EMBEDDING_DIM",
			setupEnv: func(t *testing.T) {
				t.Setenv("EMBEDDING_DIM", "invalid")
			},
			wantErr: true,
		},
		{
			name: "zero CHUNK_SIZE",
			setupEnv: func(t *testing.T) {
				t.Setenv("CHUNK_SIZE", "0")
			},
			wantErr: true,
		},
		{
			name: "negative RETRIEVAL_K",
			setupEnv: func(t *testing.T) {
				t.Setenv("RETRIEVAL_K", "-1")
			},
			wantErr: true,
		},
		{
			name: "unknown index backend",
			setupEnv: func(t *testing.T) {
				t.Setenv("INDEX_BACKEND", "chroma")
			},
			wantErr: true,
		},
		{
			name: "unknown embedding backend",
			setupEnv: func(t *testing.T) {
				t.Setenv("EMBEDDING_BACKEND", "sentence-transformers")
			},
			wantErr: true,
		},
		{
			name: "invalid log level",
			setupEnv: func(t *testing.T) {
				t.Setenv("LOG_LEVEL", "verbose")
			},
			wantErr: true,
		},
		{
			name: "invalid log format",
			setupEnv: func(t *testing.T) {
				t.Setenv("LOG_FORMAT", "xml")
			},
			wantErr: true,
		},
		{
			name: "invalid boolean",
			setupEnv: func(t *testing.T) {
				t.Setenv("INGEST_DEDUPE", "sometimes")
			},
			wantErr: true,
		},
		{
			name: "embedding rate limit",
			setupEnv: func(t *testing.T) {
				t.Setenv("EMBEDDING_RPS", "2.5")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.EmbeddingRPS == 2.5
			},
		},
		{
			name: "negative embedding rate limit",
			setupEnv: func(t *testing.T) {
				t.Setenv("EMBEDDING_RPS", "-1")
			},
			wantErr: true,
		},
		{
			name: "minio without credentials",
			setupEnv: func(t *testing.T) {
				t.Setenv("BLOB_BACKEND", "minio")
			},
			wantErr: true,
		},
		{
			name: "minio with credentials",
			setupEnv: func(t *testing.T) {
				t.Setenv("BLOB_BACKEND", "minio")
				t.Setenv("MINIO_ACCESS_KEY", "access")
				t.Setenv("MINIO_SECRET_KEY", "secret")
				t.Setenv("MINIO_USE_SSL", "true")
			},
			wantErr: false,
			checkConfig: func(cfg *Config) bool {
				return cfg.BlobBackend == "minio" && cfg.MinIOUseSSL && cfg.MinIOBucket == "uploads"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}

			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config validation failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_CreatesDataDirectory(t *testing.T) {
	clearEnv(t)
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "docrag.db")
	t.Setenv("DB_PATH", dbPath)

	if _, err := Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	info, err := os.Stat(filepath.Dir(dbPath))
	if err != nil {
		t.Fatalf("data directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Errorf("%s is not a directory", filepath.Dir(dbPath))
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("DOCRAG_TEST_KEY", "value")
	if got := getEnv("DOCRAG_TEST_KEY", "default"); got != "value" {
		t.Errorf("getEnv() = %q, want value", got)
	}
	t.Setenv("DOCRAG_TEST_KEY", "")
	if got := getEnv("DOCRAG_TEST_KEY", "default"); got != "default" {
		t.Errorf("getEnv() = %q, want default", got)
	}
}
