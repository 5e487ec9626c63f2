package homesearch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/config"
)

func applyOptions(opts []Option) *engineOptions {
	o := &engineOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func TestOptionsFromSettings(t *testing.T) {
	base := config.Settings{
		Backend:           config.BackendBadger,
		DataDir:           "/var/lib/homesearch",
		StatsPath:         "/var/lib/homesearch/statistics.json",
		ExtractionMode:    config.ModeStrict,
		ExtractionTimeout: 3 * time.Second,
		AI: config.AISettings{
			EmbeddingModel:      "nomic-embed-text",
			EmbeddingDimensions: 768,
		},
		S3: config.S3Settings{Region: "us-east-1"},
	}

	t.Run("badger", func(t *testing.T) {
		o := applyOptions(OptionsFromSettings(&base))
		assert.Equal(t, "/var/lib/homesearch", o.badgerPath)
		assert.Nil(t, o.qdrant)
		assert.Nil(t, o.redis)
		assert.Equal(t, base.StatsPath, o.statsPath)
		assert.Equal(t, "us-east-1", o.s3Config.Region)
		require.NotNil(t, o.aiConfig)
		assert.Equal(t, 768, o.aiConfig.EmbeddingDimensions)
		assert.Len(t, o.searchOpts, 2)
	})

	t.Run("qdrant with redis", func(t *testing.T) {
		s := base
		s.Backend = config.BackendQdrant
		s.Qdrant = config.QdrantSettings{Host: "qdrant", Port: 6334, Collection: "homes"}
		s.Redis = config.RedisSettings{Addr: "redis:6379", Prefix: "hs:"}

		o := applyOptions(OptionsFromSettings(&s))
		assert.Empty(t, o.badgerPath)
		require.NotNil(t, o.qdrant)
		assert.Equal(t, "homes", o.qdrant.Collection)
		require.NotNil(t, o.redis)
		assert.Equal(t, "redis:6379", o.redis.Addr)
	})
}
