package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/embeddings"
)

func lengthClient(dims int) embeddings.EmbedderClientFunc {
	return func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			v := make([]float32, dims)
			v[0] = float32(len(text))
			out[i] = v
		}
		return out, nil
	}
}

func TestEmbedder(t *testing.T) {
	ctx := context.Background()

	t.Run("single text", func(t *testing.T) {
		e, err := newEmbedderWithClient(lengthClient(4), 4)
		require.NoError(t, err)

		v, err := e.EmbedText(ctx, "pool")
		require.NoError(t, err)
		assert.Equal(t, []float32{4, 0, 0, 0}, v)
	})

	t.Run("batch keeps order", func(t *testing.T) {
		e, err := newEmbedderWithClient(lengthClient(2), 2)
		require.NoError(t, err)

		vs, err := e.EmbedTexts(ctx, []string{"a", "abc", "ab"})
		require.NoError(t, err)
		require.Len(t, vs, 3)
		assert.Equal(t, float32(1), vs[0][0])
		assert.Equal(t, float32(3), vs[1][0])
		assert.Equal(t, float32(2), vs[2][0])
	})

	t.Run("dimension mismatch", func(t *testing.T) {
		e, err := newEmbedderWithClient(lengthClient(3), 4)
		require.NoError(t, err)

		_, err = e.EmbedText(ctx, "pool")
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("client error", func(t *testing.T) {
		boom := errors.New("503")
		e, err := newEmbedderWithClient(embeddings.EmbedderClientFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, boom
		}), 4)
		require.NoError(t, err)

		_, err = e.EmbedTexts(ctx, []string{"a"})
		assert.ErrorIs(t, err, boom)
	})
}
