package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/ai"
)

func TestNewProvider(t *testing.T) {
	t.Run("builds both services", func(t *testing.T) {
		p, err := NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")), testSchema())
		require.NoError(t, err)

		assert.NotNil(t, p.Embedder())
		assert.NotNil(t, p.ParameterExtractor())
		assert.Equal(t, testSchema(), p.(*Provider).Schema())

		require.NoError(t, p.Close())
		require.NoError(t, p.Close())
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewProvider(&ai.Config{}, testSchema())
		assert.Error(t, err)
	})
}
