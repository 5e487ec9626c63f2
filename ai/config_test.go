package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:8080/v1", cfg.EmbeddingHost)
	assert.Equal(t, "https://api.mistral.ai/v1", cfg.ExtractorHost)
	assert.Equal(t, "ibm-granite/granite-embedding-small-english-r2", cfg.EmbeddingModel)
	assert.Equal(t, 384, cfg.EmbeddingDimensions)
	assert.Equal(t, "mistral-medium", cfg.ExtractorModel)
	assert.Equal(t, 0.1, cfg.Temperature)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Zero(t, cfg.CacheTTL)
	require.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ExtractorHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithExtractorHost("http://extract:9090/v1"),
			WithEmbeddingModel("nomic-embed-text", 768),
			WithExtractorModel("qwen2.5:3b"),
			WithAPIKey("secret"),
			WithTemperature(0),
			WithMaxAttempts(5),
			WithCacheTTL(time.Hour),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://extract:9090/v1", cfg.ExtractorHost)
		assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
		assert.Equal(t, 768, cfg.EmbeddingDimensions)
		assert.Equal(t, "qwen2.5:3b", cfg.ExtractorModel)
		assert.Equal(t, "secret", cfg.APIKey)
		assert.Equal(t, 0.0, cfg.Temperature)
		assert.Equal(t, 5, cfg.MaxAttempts)
		assert.Equal(t, time.Hour, cfg.CacheTTL)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name              string
		embeddingHost     string
		extractorHost     string
		expectedEmbedding string
		expectedExtractor string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"has trailing slash", "http://localhost:11434/", "https://api.mistral.ai/v1/", "http://localhost:11434/v1", "https://api.mistral.ai/v1"},
		{"empty hosts", "", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.embeddingHost, ExtractorHost: tt.extractorHost}
			cfg.Normalize()

			assert.Equal(t, tt.expectedEmbedding, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedExtractor, cfg.ExtractorHost)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing extractor host", func(c *Config) { c.ExtractorHost = "" }, "ExtractorHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"zero dimensions", func(c *Config) { c.EmbeddingDimensions = 0 }, "EmbeddingDimensions"},
		{"missing extractor model", func(c *Config) { c.ExtractorModel = "" }, "ExtractorModel"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "Temperature"},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, "Temperature"},
		{"no attempts", func(c *Config) { c.MaxAttempts = 0 }, "MaxAttempts"},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }, "CacheTTL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("valid config normalizes", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://localhost:11434"))
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ExtractorHost)
	})
}

func TestExtractedParameters(t *testing.T) {
	t.Run("empty parameters have every key", func(t *testing.T) {
		p := EmptyParameters()
		for _, k := range ParameterKeys {
			v, ok := p[k]
			require.True(t, ok, k)
			if IsListKey(k) {
				assert.Equal(t, []any{}, v, k)
			} else {
				assert.Nil(t, v, k)
			}
		}
		assert.False(t, p.Mentioned())
	})

	t.Run("fill missing", func(t *testing.T) {
		p := ExtractedParameters{KeyCity: []any{"oakland"}, KeyDescription: "pool"}
		missing := p.FillMissing()
		assert.Len(t, missing, len(ParameterKeys)-2)
		assert.NotContains(t, missing, KeyCity)
		assert.Equal(t, []any{}, p[KeyHomeType])
		assert.Nil(t, p[KeyPrice])
		assert.True(t, p.Mentioned())
	})

	t.Run("numbers count as mentioned", func(t *testing.T) {
		p := EmptyParameters()
		p[KeyBedrooms] = 3.0
		assert.True(t, p.Mentioned())
	})
}
