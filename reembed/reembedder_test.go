package reembed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/ai/mock"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/space"
	"github.com/poiesic/homesearch/storage"
	"github.com/poiesic/homesearch/storage/badger"
)

// seedIndex stores n records carrying placeholder vectors.
func seedIndex(t *testing.T, n, dim int) storage.PropertyIndex {
	t.Helper()
	index, err := badger.NewMemoryPropertyIndex()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	records := make([]*core.PropertyRecord, n)
	for i := range records {
		price := float64(100000 + i*1000)
		vec := make([]float32, dim)
		vec[0] = 1
		records[i] = &core.PropertyRecord{
			ID:          fmt.Sprintf("p%03d", i),
			Description: fmt.Sprintf("house number %d", i),
			City:        "oakland",
			State:       "ca",
			HomeType:    "condo",
			Price:       &price,
			Vector:      vec,
		}
	}
	require.NoError(t, index.UpsertProperties(context.Background(), records...))
	return index
}

func newEncoder(t *testing.T, embedder *mock.MockEmbedder) *space.Encoder {
	t.Helper()
	layout, err := space.DefaultLayout(nil, embedder.Dimensions())
	require.NoError(t, err)
	return space.NewEncoder(layout, embedder)
}

func testConfig() *Config {
	return &Config{BatchSize: 4, ReportInterval: 5, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestNewReembedder(t *testing.T) {
	encoder := newEncoder(t, mock.NewMockEmbedder())
	index := seedIndex(t, 0, encoder.Layout().Dim())

	_, err := NewReembedder(nil, encoder, nil, nil)
	assert.ErrorIs(t, err, ErrIndexRequired)

	_, err = NewReembedder(index, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEncoderRequired)

	_, err = NewReembedder(index, encoder, &Config{BatchSize: 0, MaxRetries: 1}, nil)
	assert.Error(t, err)

	_, err = NewReembedder(index, encoder, &Config{BatchSize: 1, MaxRetries: 0}, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	r, err := NewReembedder(index, encoder, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), r.config)
}

func TestReembedderRun(t *testing.T) {
	ctx := context.Background()

	t.Run("re-encodes every record", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		encoder := newEncoder(t, embedder)
		index := seedIndex(t, 10, encoder.Layout().Dim())

		var out bytes.Buffer
		r, err := NewReembedder(index, encoder, testConfig(), &out)
		require.NoError(t, err)

		summary, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 10, summary.Processed)
		assert.Equal(t, encoder.Layout().Signature(), summary.Signature)
		// three batches: 4, 4, 2
		assert.Equal(t, 3, embedder.CallCount())

		sig, err := index.LayoutSignature(ctx)
		require.NoError(t, err)
		assert.Equal(t, summary.Signature, sig)

		got, err := index.GetProperty(ctx, "p007")
		require.NoError(t, err)
		want := got.Clone()
		require.NoError(t, encoder.EncodeRecord(ctx, want))
		assert.Equal(t, want.Vector, got.Vector)

		assert.Contains(t, out.String(), "Starting re-embedding of 10 properties")
		assert.Contains(t, out.String(), "Re-embedding complete. Processed 10 properties")
	})

	t.Run("empty index still records signature", func(t *testing.T) {
		encoder := newEncoder(t, mock.NewMockEmbedder())
		index := seedIndex(t, 0, encoder.Layout().Dim())

		r, err := NewReembedder(index, encoder, testConfig(), nil)
		require.NoError(t, err)

		summary, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, summary.Processed)

		sig, err := index.LayoutSignature(ctx)
		require.NoError(t, err)
		assert.Equal(t, encoder.Layout().Signature(), sig)
	})

	t.Run("transient embedder failure is retried", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		failures := 2
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			if failures > 0 {
				failures--
				return nil, errors.New("temporarily unavailable")
			}
			out := make([][]float32, len(texts))
			for i := range out {
				out[i] = make([]float32, embedder.Dimensions())
				out[i][i%embedder.Dimensions()] = 1
			}
			return out, nil
		}
		encoder := newEncoder(t, embedder)
		index := seedIndex(t, 3, encoder.Layout().Dim())

		r, err := NewReembedder(index, encoder, testConfig(), nil)
		require.NoError(t, err)

		summary, err := r.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, summary.Processed)
	})

	t.Run("persistent failure keeps old signature", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
			return nil, errors.New("model offline")
		}
		encoder := newEncoder(t, embedder)
		index := seedIndex(t, 6, encoder.Layout().Dim())
		require.NoError(t, index.SetLayoutSignature(ctx, "previous"))

		r, err := NewReembedder(index, encoder, testConfig(), nil)
		require.NoError(t, err)

		_, err = r.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model offline")
		assert.Equal(t, 3, embedder.CallCount())

		sig, err := index.LayoutSignature(ctx)
		require.NoError(t, err)
		assert.Equal(t, "previous", sig)
	})

	t.Run("canceled context", func(t *testing.T) {
		encoder := newEncoder(t, mock.NewMockEmbedder())
		index := seedIndex(t, 6, encoder.Layout().Dim())

		cctx, cancel := context.WithCancel(ctx)
		cancel()

		r, err := NewReembedder(index, encoder, testConfig(), nil)
		require.NoError(t, err)
		_, err = r.Run(cctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestBatchProcessor(t *testing.T) {
	ctx := context.Background()
	encoder := newEncoder(t, mock.NewMockEmbedder())
	index := seedIndex(t, 0, encoder.Layout().Dim())
	bp := NewBatchProcessor(index, encoder, Backoff{MaxAttempts: 1})

	require.NoError(t, bp.Process(ctx, nil))

	price := 500000.0
	r := &core.PropertyRecord{ID: "x1", Description: "loft", City: "oakland", Price: &price}
	require.NoError(t, bp.Process(ctx, []*core.PropertyRecord{r}))
	assert.Len(t, r.Vector, encoder.Layout().Dim())

	n, err := index.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
