package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"10"`
	DBMinConns  int32  `envconfig:"DB_MIN_CONNS" default:"2"`

	// Speech-to-text collaborator (OpenAI-compatible, Groq by default)
	TranscriptionAPIKey  string `envconfig:"TRANSCRIPTION_API_KEY"`
	TranscriptionBaseURL string `envconfig:"TRANSCRIPTION_BASE_URL" default:"https://api.groq.com/openai/v1"`
	TranscriptionModel   string `envconfig:"TRANSCRIPTION_MODEL" default:"whisper-large-v3-turbo"`
	MaxAudioSizeMB       int    `envconfig:"MAX_AUDIO_SIZE_MB" default:"10"`
	MaxAudioDurationMin  int    `envconfig:"MAX_AUDIO_DURATION_MIN" default:"20"`

	MaxUploadMB      int           `envconfig:"MAX_UPLOAD_MB" default:"50"`
	ExtractTimeout   time.Duration `envconfig:"EXTRACT_TIMEOUT" default:"2m"`
	OCRFailurePolicy string        `envconfig:"OCR_FAILURE_POLICY" default:"fail"`
	StagingDir       string        `envconfig:"STAGING_DIR"`
	StagingMaxAge    time.Duration `envconfig:"STAGING_MAX_AGE" default:"1h"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"800"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"100"`

	// Only read when the ANN index is first created
	HNSWM              int `envconfig:"HNSW_M" default:"16"`
	HNSWEfConstruction int `envconfig:"HNSW_EF_CONSTRUCTION" default:"64"`

	EmbeddingProvider   string `envconfig:"EMBEDDING_PROVIDER" default:"fastembed"`
	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"BAAI/bge-small-en-v1.5"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"384"`
	EmbeddingCacheDir   string `envconfig:"EMBEDDING_CACHE_DIR" default:"local_cache"`
	OpenAIAPIKey        string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string `envconfig:"OPENAI_BASE_URL"`

	VectorBackend    string `envconfig:"VECTOR_BACKEND" default:"pgvector"`
	QdrantHost       string `envconfig:"QDRANT_HOST"`
	QdrantPort       int    `envconfig:"QDRANT_PORT" default:"6334"`
	QdrantUseTLS     bool   `envconfig:"QDRANT_USE_TLS" default:"false"`
	QdrantCollection string `envconfig:"QDRANT_COLLECTION" default:"chunks"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docrag-originals"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Bootstrap: create an API key for an owner on startup
	InitOwnerID int64  `envconfig:"INIT_OWNER_ID"`
	InitAPIKey  string `envconfig:"INIT_API_KEY"`
}

const (
	EmbeddingProviderFastEmbed = "fastembed"
	EmbeddingProviderOpenAI    = "openai"

	VectorBackendPgvector = "pgvector"
	VectorBackendChromem  = "chromem"
	VectorBackendQdrant   = "qdrant"

	OCRFailurePolicyFail  = "fail"
	OCRFailurePolicyEmpty = "empty"
)

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCRAG", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects values envconfig cannot check on its own.
func (c *Config) Validate() error {
	switch c.EmbeddingProvider {
	case EmbeddingProviderFastEmbed, EmbeddingProviderOpenAI:
	default:
		return fmt.Errorf("invalid EMBEDDING_PROVIDER %q", c.EmbeddingProvider)
	}

	switch c.VectorBackend {
	case VectorBackendPgvector, VectorBackendChromem, VectorBackendQdrant:
	default:
		return fmt.Errorf("invalid VECTOR_BACKEND %q", c.VectorBackend)
	}

	switch c.OCRFailurePolicy {
	case OCRFailurePolicyFail, OCRFailurePolicyEmpty:
	default:
		return fmt.Errorf("invalid OCR_FAILURE_POLICY %q", c.OCRFailurePolicy)
	}

	if c.VectorBackend == VectorBackendQdrant && !c.HasQdrant() {
		return fmt.Errorf("VECTOR_BACKEND=qdrant requires QDRANT_HOST")
	}
	if c.EmbeddingProvider == EmbeddingProviderOpenAI && !c.HasOpenAI() {
		return fmt.Errorf("EMBEDDING_PROVIDER=openai requires OPENAI_API_KEY")
	}

	if c.MaxAudioSizeMB <= 0 || c.MaxAudioDurationMin <= 0 || c.MaxUploadMB <= 0 {
		return fmt.Errorf("size and duration limits must be positive")
	}
	if c.ChunkSize <= 0 || c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive and CHUNK_OVERLAP non-negative")
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive")
	}
	if c.HNSWM <= 0 || c.HNSWEfConstruction <= 0 {
		return fmt.Errorf("HNSW parameters must be positive")
	}

	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasTranscription() bool {
	return c.TranscriptionAPIKey != ""
}

func (c *Config) HasQdrant() bool {
	return c.QdrantHost != ""
}

// MaxUploadBytes is the request body cap for upload endpoints.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) * 1024 * 1024
}
