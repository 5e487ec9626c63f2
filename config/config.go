// Package config reads homesearch settings from the environment.
//
// Values come from process environment variables, optionally seeded from a
// .env file. Every setting has a default, so an empty environment yields a
// working local setup: an embedded Badger index under ./data and
// OpenAI-compatible model servers on localhost.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/poiesic/homesearch/ai"
)

// Index backends.
const (
	BackendBadger = "badger"
	BackendQdrant = "qdrant"
)

// Extraction modes.
const (
	ModeLenient = "lenient"
	ModeStrict  = "strict"
)

var ErrInvalidSettings = errors.New("invalid settings")

// AISettings configures the embedding and extraction models.
type AISettings struct {
	EmbeddingHost       string        `env:"EMBEDDING_HOST" envDefault:"http://localhost:8080/v1"`
	EmbeddingModel      string        `env:"EMBEDDING_MODEL" envDefault:"ibm-granite/granite-embedding-small-english-r2"`
	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"384"`
	ExtractorHost       string        `env:"EXTRACTOR_HOST" envDefault:"https://api.mistral.ai/v1"`
	ExtractorModel      string        `env:"EXTRACTOR_MODEL" envDefault:"mistral-medium"`
	APIKey              string        `env:"API_KEY"`
	Temperature         float64       `env:"TEMPERATURE" envDefault:"0.1"`
	MaxAttempts         int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	CacheTTL            time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// RedisSettings configures the extraction cache. An empty Addr selects the
// in-memory cache.
type RedisSettings struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Prefix   string `env:"PREFIX" envDefault:"homesearch:"`
}

// QdrantSettings configures the Qdrant backend.
type QdrantSettings struct {
	Host       string        `env:"HOST" envDefault:"localhost"`
	Port       int           `env:"PORT" envDefault:"6334"`
	Collection string        `env:"COLLECTION" envDefault:"properties"`
	Timeout    time.Duration `env:"TIMEOUT" envDefault:"10s"`
}

// S3Settings configures dataset downloads from S3-compatible storage.
type S3Settings struct {
	Region          string `env:"REGION"`
	Endpoint        string `env:"ENDPOINT"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Settings is the complete homesearch configuration.
type Settings struct {
	Backend        string `env:"HOMESEARCH_BACKEND" envDefault:"badger"`
	DataDir        string `env:"HOMESEARCH_DATA_DIR" envDefault:"./data"`
	StatsPath      string `env:"HOMESEARCH_STATS" envDefault:"./data/statistics.json"`
	VocabularyPath string `env:"HOMESEARCH_VOCABULARY"`
	LogLevel       string `env:"HOMESEARCH_LOG_LEVEL" envDefault:"info"`

	ExtractionMode    string        `env:"HOMESEARCH_EXTRACTION_MODE" envDefault:"lenient"`
	ExtractionTimeout time.Duration `env:"HOMESEARCH_EXTRACTION_TIMEOUT" envDefault:"10s"`

	AI     AISettings     `envPrefix:"HOMESEARCH_AI_"`
	Redis  RedisSettings  `envPrefix:"REDIS_"`
	Qdrant QdrantSettings `envPrefix:"QDRANT_"`
	S3     S3Settings     `envPrefix:"S3_"`
}

// Load reads the given .env files (default ".env") into the environment and
// parses the settings. Missing .env files are ignored; variables already set
// in the environment take precedence over the files.
func Load(files ...string) (*Settings, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads the settings from the environment only.
func Parse() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	s.ExtractionMode = strings.ToLower(strings.TrimSpace(s.ExtractionMode))
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the settings that are not validated by the components
// they configure.
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendBadger:
		if s.DataDir == "" {
			return fmt.Errorf("%w: HOMESEARCH_DATA_DIR is required for the badger backend", ErrInvalidSettings)
		}
	case BackendQdrant:
		if s.Qdrant.Host == "" {
			return fmt.Errorf("%w: QDRANT_HOST is required for the qdrant backend", ErrInvalidSettings)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidSettings, s.Backend)
	}
	if s.ExtractionMode != ModeLenient && s.ExtractionMode != ModeStrict {
		return fmt.Errorf("%w: unknown extraction mode %q", ErrInvalidSettings, s.ExtractionMode)
	}
	if s.ExtractionTimeout <= 0 {
		return fmt.Errorf("%w: extraction timeout must be positive", ErrInvalidSettings)
	}
	if _, err := ParseLevel(s.LogLevel); err != nil {
		return err
	}
	return nil
}

// AIConfig converts the AI settings into an ai.Config.
func (s *Settings) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(s.AI.EmbeddingHost),
		ai.WithExtractorHost(s.AI.ExtractorHost),
		ai.WithEmbeddingModel(s.AI.EmbeddingModel, s.AI.EmbeddingDimensions),
		ai.WithExtractorModel(s.AI.ExtractorModel),
		ai.WithAPIKey(s.AI.APIKey),
		ai.WithTemperature(s.AI.Temperature),
		ai.WithMaxAttempts(s.AI.MaxAttempts),
		ai.WithCacheTTL(s.AI.CacheTTL),
	)
}

// Level returns the configured log level.
func (s *Settings) Level() slog.Level {
	level, _ := ParseLevel(s.LogLevel)
	return level
}

// ParseLevel maps debug, info, warn/warning and error onto slog levels.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: unknown log level %q", ErrInvalidSettings, name)
}
