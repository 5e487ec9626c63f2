package homesearch

import (
	"github.com/poiesic/homesearch/ai/cache"
	"github.com/poiesic/homesearch/config"
	"github.com/poiesic/homesearch/ingestion"
	"github.com/poiesic/homesearch/search"
	"github.com/poiesic/homesearch/storage/qdrant"
)

// OptionsFromSettings translates environment settings into engine options.
func OptionsFromSettings(s *config.Settings) []Option {
	opts := []Option{
		WithAIConfig(s.AIConfig()),
		WithStatisticsFile(s.StatsPath),
		WithVocabularyFile(s.VocabularyPath),
		WithS3Config(ingestion.S3Config{
			Region:          s.S3.Region,
			Endpoint:        s.S3.Endpoint,
			AccessKeyID:     s.S3.AccessKeyID,
			SecretAccessKey: s.S3.SecretAccessKey,
		}),
	}

	switch s.Backend {
	case config.BackendQdrant:
		opts = append(opts, WithQdrant(qdrant.Config{
			Host:       s.Qdrant.Host,
			Port:       s.Qdrant.Port,
			Collection: s.Qdrant.Collection,
			Timeout:    s.Qdrant.Timeout,
		}))
	default:
		opts = append(opts, WithBadger(s.DataDir))
	}

	if s.Redis.Addr != "" {
		opts = append(opts, WithRedis(cache.RedisConfig{
			Addr:     s.Redis.Addr,
			Password: s.Redis.Password,
			DB:       s.Redis.DB,
			Prefix:   s.Redis.Prefix,
		}))
	}

	mode := search.ExtractionLenient
	if s.ExtractionMode == config.ModeStrict {
		mode = search.ExtractionStrict
	}
	opts = append(opts, WithSearchOptions(
		search.WithExtractionMode(mode),
		search.WithExtractionTimeout(s.ExtractionTimeout),
	))
	return opts
}
