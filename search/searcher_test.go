package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/homesearch/ai"
	"github.com/poiesic/homesearch/ai/mock"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/query"
	"github.com/poiesic/homesearch/space"
	"github.com/poiesic/homesearch/storage"
	"github.com/poiesic/homesearch/storage/badger"
)

type fixture struct {
	index     storage.PropertyIndex
	builder   *query.Builder
	extractor *mock.MockParameterExtractor
}

func listing(id, city, homeType, description string, price float64) *core.PropertyRecord {
	return &core.PropertyRecord{
		ID:          id,
		Description: description,
		City:        city,
		State:       "ca",
		HomeType:    homeType,
		Price:       &price,
	}
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	index, err := badger.NewMemoryPropertyIndex()
	require.NoError(t, err)
	t.Cleanup(func() { index.Close() })

	embedder := mock.NewMockEmbedder()
	layout, err := space.DefaultLayout(nil, embedder.Dimensions())
	require.NoError(t, err)
	encoder := space.NewEncoder(layout, embedder)

	records := []*core.PropertyRecord{
		listing("sf1", "san francisco", "condo", "condo with pool and view", 1200000),
		listing("sf2", "san francisco", "single_family", "victorian house with pool", 2500000),
		listing("sf3", "san francisco", "condo", "small condo near park", 800000),
		listing("oak1", "oakland", "condo", "condo with pool", 450000),
		listing("oak2", "oakland", "single_family", "craftsman with garden", 650000),
		listing("la1", "los angeles", "townhouse", "townhouse with spa", 900000),
	}
	require.NoError(t, encoder.EncodeRecords(ctx, records))
	require.NoError(t, index.UpsertProperties(ctx, records...))

	return &fixture{
		index:     index,
		builder:   query.NewBuilder(encoder),
		extractor: mock.NewMockParameterExtractor(),
	}
}

func (f *fixture) searcher(t *testing.T, opts ...Option) *Searcher {
	t.Helper()
	opts = append([]Option{WithExtractor(f.extractor)}, opts...)
	s, err := NewSearcher(f.index, f.builder, opts...)
	require.NoError(t, err)
	return s
}

func ids(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Property.ID
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	f := setupFixture(t)

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(f.index, f.builder)
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(f.index, f.builder, WithLogger(nil))
		require.NoError(t, err)
		assert.Equal(t, slog.Default(), s.logger)
	})

	t.Run("nil index", func(t *testing.T) {
		_, err := NewSearcher(nil, f.builder)
		assert.Equal(t, ErrIndexRequired, err)
	})

	t.Run("nil builder", func(t *testing.T) {
		_, err := NewSearcher(f.index, nil)
		assert.Equal(t, ErrBuilderRequired, err)
	})

	t.Run("invalid options", func(t *testing.T) {
		_, err := NewSearcher(f.index, f.builder, WithExtractionTimeout(0))
		assert.Error(t, err)
		_, err = NewSearcher(f.index, f.builder, WithExtractionMode(ExtractionMode(7)))
		assert.Error(t, err)
	})
}

func TestSearchStructured(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	s := f.searcher(t)

	t.Run("min price filter", func(t *testing.T) {
		resp, err := s.Search(ctx, Request{"min_price": 500000})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.RequestID)
		assert.False(t, resp.Extracted)
		assert.ElementsMatch(t, []string{"sf1", "sf2", "sf3", "oak2", "la1"}, ids(resp.Results))
		for _, r := range resp.Results {
			assert.GreaterOrEqual(t, *r.Property.Price, 500000.0)
		}
	})

	t.Run("results are ranked and carry partial scores", func(t *testing.T) {
		resp, err := s.Search(ctx, Request{"description": "pool", "limit": 3})
		require.NoError(t, err)
		require.Len(t, resp.Results, 3)
		for i, r := range resp.Results {
			assert.Equal(t, r.Score, r.Metadata.Score)
			assert.Contains(t, r.Metadata.PartialScores, "description")
			if i > 0 {
				assert.LessOrEqual(t, r.Score, resp.Results[i-1].Score)
			}
		}
	})

	t.Run("bad fields are rejected individually", func(t *testing.T) {
		resp, err := s.Search(ctx, Request{"limit": "lots", "city_filter": []string{"oakland"}})
		require.NoError(t, err)
		require.Len(t, resp.Rejected, 1)
		assert.Equal(t, "limit", resp.Rejected[0].Param)
		assert.ElementsMatch(t, []string{"oak1", "oak2"}, ids(resp.Results))
	})

	t.Run("non-string natural query is rejected", func(t *testing.T) {
		resp, err := s.Search(ctx, Request{query.ParamNaturalQuery: 42})
		require.NoError(t, err)
		require.Len(t, resp.Rejected, 1)
		assert.Equal(t, query.ParamNaturalQuery, resp.Rejected[0].Param)
		assert.Zero(t, f.extractor.CallCount())
	})
}

func TestSearchNaturalLanguage(t *testing.T) {
	ctx := context.Background()
	const text = "condos in san francisco with pool"

	t.Run("extracted parameters filter and seed the query", func(t *testing.T) {
		f := setupFixture(t)
		f.extractor.Responses[text] = ai.ExtractedParameters{
			ai.KeyCity:        []any{"san francisco"},
			ai.KeyHomeType:    []any{"condo"},
			ai.KeyDescription: "pool",
		}
		s := f.searcher(t)

		resp, err := s.Search(ctx, Request{query.ParamNaturalQuery: text})
		require.NoError(t, err)
		assert.True(t, resp.Extracted)
		assert.Empty(t, resp.Rejected)
		assert.ElementsMatch(t, []string{"sf1", "sf3"}, ids(resp.Results))
		assert.Equal(t, 1, f.extractor.CallCount())
	})

	t.Run("structured values win per field", func(t *testing.T) {
		f := setupFixture(t)
		f.extractor.Responses[text] = ai.ExtractedParameters{
			ai.KeyCity:     []any{"san francisco"},
			ai.KeyHomeType: []any{"condo"},
		}
		s := f.searcher(t)

		resp, err := s.Search(ctx, Request{query.ParamNaturalQuery: text, "city_filter": "oakland"})
		require.NoError(t, err)
		assert.Equal(t, []string{"oak1"}, ids(resp.Results))
	})

	t.Run("out-of-set values are dropped in lenient mode", func(t *testing.T) {
		f := setupFixture(t)
		f.extractor.Responses[text] = ai.ExtractedParameters{
			ai.KeyCity:     []any{"san francisco"},
			ai.KeyHomeType: []any{"castle"},
		}
		s := f.searcher(t)

		resp, err := s.Search(ctx, Request{query.ParamNaturalQuery: text})
		require.NoError(t, err)
		require.Len(t, resp.Rejected, 1)
		assert.Equal(t, query.SourceExtracted, resp.Rejected[0].Source)
		assert.ElementsMatch(t, []string{"sf1", "sf2", "sf3"}, ids(resp.Results))
	})

	t.Run("out-of-set values fail in strict mode", func(t *testing.T) {
		f := setupFixture(t)
		f.extractor.Responses[text] = ai.ExtractedParameters{ai.KeyHomeType: []any{"castle"}}
		s := f.searcher(t, WithExtractionMode(ExtractionStrict))

		_, err := s.Search(ctx, Request{query.ParamNaturalQuery: text})
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.ErrorIs(t, err, query.ErrUnmappedValue)
	})

	t.Run("extractor failure", func(t *testing.T) {
		f := setupFixture(t)
		f.extractor.ExtractParametersFunc = func(context.Context, string) (ai.ExtractedParameters, error) {
			return nil, errors.New("model unavailable")
		}

		lenient := f.searcher(t)
		resp, err := lenient.Search(ctx, Request{query.ParamNaturalQuery: text, "city_filter": "oakland"})
		require.NoError(t, err)
		assert.False(t, resp.Extracted)
		assert.ElementsMatch(t, []string{"oak1", "oak2"}, ids(resp.Results))

		strict := f.searcher(t, WithExtractionMode(ExtractionStrict))
		_, err = strict.Search(ctx, Request{query.ParamNaturalQuery: text})
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.ErrorContains(t, err, "model unavailable")
	})

	t.Run("extraction is bounded by the timeout", func(t *testing.T) {
		f := setupFixture(t)
		f.extractor.ExtractParametersFunc = func(ctx context.Context, _ string) (ai.ExtractedParameters, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}
		s := f.searcher(t, WithExtractionTimeout(20*time.Millisecond))

		start := time.Now()
		resp, err := s.Search(ctx, Request{query.ParamNaturalQuery: text})
		require.NoError(t, err)
		assert.False(t, resp.Extracted)
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.Len(t, resp.Results, 6)
	})

	t.Run("no extractor configured", func(t *testing.T) {
		f := setupFixture(t)
		s, err := NewSearcher(f.index, f.builder, WithExtractionMode(ExtractionStrict))
		require.NoError(t, err)
		_, err = s.Search(ctx, Request{query.ParamNaturalQuery: text})
		assert.ErrorIs(t, err, ErrExtractionFailed)
	})
}

func TestSimilarTo(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	s := f.searcher(t)

	resp, err := s.SimilarTo(ctx, "sf1", Request{"limit": 10})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)
	assert.NotContains(t, ids(resp.Results), "sf1")

	resp, err = s.SimilarTo(ctx, "sf1", Request{"city_filter": "oakland"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"oak1", "oak2"}, ids(resp.Results))

	_, err = s.SimilarTo(ctx, "missing", Request{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDebug(t *testing.T) {
	f := setupFixture(t)
	s := f.searcher(t)

	records, err := s.Debug(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 6)
}

type recordingMonitor struct {
	noopMonitor
	stages []string
}

func (m *recordingMonitor) Start(string, Request) { m.stages = append(m.stages, "start") }
func (m *recordingMonitor) AfterResolve(*query.Parameters, []query.FieldError) {
	m.stages = append(m.stages, "resolve")
}
func (m *recordingMonitor) AfterExtraction(ai.ExtractedParameters, error) {
	m.stages = append(m.stages, "extract")
}
func (m *recordingMonitor) AfterQueryBuild(*core.CompositeQuery) {
	m.stages = append(m.stages, "build")
}
func (m *recordingMonitor) Finish([]Result) { m.stages = append(m.stages, "finish") }
func (m *recordingMonitor) Fail(error)      { m.stages = append(m.stages, "fail") }

func TestMonitor(t *testing.T) {
	f := setupFixture(t)
	monitor := &recordingMonitor{}
	s := f.searcher(t, WithMonitor(monitor))

	_, err := s.Search(context.Background(), Request{query.ParamNaturalQuery: "anything"})
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "resolve", "extract", "build", "finish"}, monitor.stages)

	t.Run("strict extraction failure ends the request", func(t *testing.T) {
		f.extractor.ExtractParametersFunc = func(context.Context, string) (ai.ExtractedParameters, error) {
			return nil, errors.New("model unavailable")
		}
		monitor := &recordingMonitor{}
		s := f.searcher(t, WithMonitor(monitor), WithExtractionMode(ExtractionStrict))

		_, err := s.Search(context.Background(), Request{query.ParamNaturalQuery: "anything"})
		assert.ErrorIs(t, err, ErrExtractionFailed)
		assert.Equal(t, []string{"start", "resolve", "extract", "fail"}, monitor.stages)
	})

	t.Run("missing anchor ends the request", func(t *testing.T) {
		monitor := &recordingMonitor{}
		s := f.searcher(t, WithMonitor(monitor))

		_, err := s.SimilarTo(context.Background(), "missing", Request{})
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.Equal(t, []string{"start", "resolve", "fail"}, monitor.stages)
	})
}

func TestAssemble(t *testing.T) {
	r := &core.PropertyRecord{ID: "a"}
	out := Assemble([]core.SearchResult{{
		Record:    r,
		Score:     1.25,
		Breakdown: map[core.Field]float32{core.FieldDescription: 1, core.FieldPricePerSquareFoot: 0.25},
	}})
	require.Len(t, out, 1)
	assert.Same(t, r, out[0].Property)
	assert.Equal(t, float32(1.25), out[0].Metadata.Score)
	assert.Equal(t, map[string]float32{"description": 1, "pricePerSquareFoot": 0.25}, out[0].Metadata.PartialScores)

	assert.Empty(t, Assemble(nil))
}
