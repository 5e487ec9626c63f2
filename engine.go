// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package homesearch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/homesearch/ai"
	"github.com/poiesic/homesearch/ai/cache"
	"github.com/poiesic/homesearch/ai/openai"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/ingestion"
	"github.com/poiesic/homesearch/normalize"
	"github.com/poiesic/homesearch/query"
	"github.com/poiesic/homesearch/reembed"
	"github.com/poiesic/homesearch/search"
	"github.com/poiesic/homesearch/space"
	"github.com/poiesic/homesearch/stats"
	"github.com/poiesic/homesearch/storage"
	"github.com/poiesic/homesearch/storage/badger"
	"github.com/poiesic/homesearch/storage/qdrant"
)

// memoryCacheSize bounds the in-memory extraction cache.
const memoryCacheSize = 4096

// ErrStorageRequired is returned when no index or index location is configured.
var ErrStorageRequired = errors.New("no property index configured")

// Engine wires the property index, the AI provider, the similarity layout and
// the searcher together. It is safe for concurrent searches.
type Engine struct {
	index     storage.PropertyIndex
	provider  ai.AIProvider
	stats     *stats.Statistics
	vocab     *normalize.Vocabulary
	encoder   *space.Encoder
	builder   *query.Builder
	searcher  *search.Searcher
	cache     cache.Client
	s3        ingestion.ObjectGetter
	s3Config  ingestion.S3Config
	ownsIndex bool
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	aiConfig        *ai.Config
	provider        ai.AIProvider
	index           storage.PropertyIndex
	badgerPath      string
	qdrant          *qdrant.Config
	stats           *stats.Statistics
	statsPath       string
	vocabPath       string
	cache           cache.Client
	redis           *cache.RedisConfig
	s3              ingestion.ObjectGetter
	s3Config        ingestion.S3Config
	region          string
	skipLayoutCheck bool
	searchOpts      []search.Option
	logger          *slog.Logger
}

// WithAIConfig sets the model configuration used to build the AI provider.
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *engineOptions) {
		o.aiConfig = cfg
	}
}

// WithProvider supplies a ready AI provider instead of building one from the
// AI config. The engine closes it on Close.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithIndex supplies an open property index. The caller keeps ownership.
func WithIndex(index storage.PropertyIndex) Option {
	return func(o *engineOptions) {
		o.index = index
	}
}

// WithBadger stores properties in an embedded Badger database at path.
func WithBadger(path string) Option {
	return func(o *engineOptions) {
		o.badgerPath = path
	}
}

// WithQdrant stores properties in a Qdrant collection. The vector dimension
// is taken from the layout.
func WithQdrant(cfg qdrant.Config) Option {
	return func(o *engineOptions) {
		o.qdrant = &cfg
	}
}

// WithStatistics sets the column statistics that shape the layout.
func WithStatistics(st *stats.Statistics) Option {
	return func(o *engineOptions) {
		o.stats = st
	}
}

// WithStatisticsFile reads column statistics from path. A missing file
// selects the built-in fallbacks.
func WithStatisticsFile(path string) Option {
	return func(o *engineOptions) {
		o.statsPath = path
	}
}

// WithVocabularyFile layers the synonyms in a YAML file over the defaults.
func WithVocabularyFile(path string) Option {
	return func(o *engineOptions) {
		o.vocabPath = path
	}
}

// WithCache caches extracted parameters in client.
func WithCache(client cache.Client) Option {
	return func(o *engineOptions) {
		o.cache = client
	}
}

// WithRedis caches extracted parameters in Redis.
func WithRedis(cfg cache.RedisConfig) Option {
	return func(o *engineOptions) {
		o.redis = &cfg
	}
}

// WithS3Client sets the client used for s3:// dataset locations.
func WithS3Client(client ingestion.ObjectGetter) Option {
	return func(o *engineOptions) {
		o.s3 = client
	}
}

// WithS3Config sets the settings used to create an S3 client on first use.
func WithS3Config(cfg ingestion.S3Config) Option {
	return func(o *engineOptions) {
		o.s3Config = cfg
	}
}

// WithRegion names the area covered by the dataset in the extraction prompt.
func WithRegion(region string) Option {
	return func(o *engineOptions) {
		o.region = region
	}
}

// WithoutLayoutCheck opens an index whose vectors were written under another
// layout. Only re-embedding should need it.
func WithoutLayoutCheck() Option {
	return func(o *engineOptions) {
		o.skipLayoutCheck = true
	}
}

// WithSearchOptions passes options through to the searcher.
func WithSearchOptions(opts ...search.Option) Option {
	return func(o *engineOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// NewEngine opens the configured index and builds the search stack on it.
func NewEngine(ctx context.Context, opts ...Option) (*Engine, error) {
	options := &engineOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	if err := core.ValidateSchema(); err != nil {
		return nil, err
	}

	st := options.stats
	if st == nil && options.statsPath != "" {
		var err error
		if st, err = stats.LoadOrDefault(options.statsPath); err != nil {
			return nil, err
		}
	}

	vocab, err := normalize.LoadVocabulary(options.vocabPath)
	if err != nil {
		return nil, err
	}
	if st != nil {
		for _, f := range core.FieldsOfKind(core.KindCategory) {
			vocab = vocab.WithCategories(f, st.Categories(f))
		}
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig, extractionSchema(vocab, options.region))
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		provider: provider,
		stats:    st,
		vocab:    vocab,
		s3:       options.s3,
		s3Config: options.s3Config,
		logger:   options.logger.With("component", "engine"),
	}

	if err := e.build(ctx, options); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Engine) build(ctx context.Context, options *engineOptions) error {
	embedder := e.provider.Embedder()
	dims := options.aiConfig.EmbeddingDimensions
	if d, ok := embedder.(interface{ Dimensions() int }); ok {
		dims = d.Dimensions()
	}
	layout, err := space.DefaultLayout(e.stats, dims)
	if err != nil {
		return err
	}
	e.encoder = space.NewEncoder(layout, embedder)
	e.builder = query.NewBuilder(e.encoder)

	switch {
	case options.index != nil:
		e.index = options.index
	case options.qdrant != nil:
		cfg := *options.qdrant
		cfg.Dimension = layout.Dim()
		if e.index, err = qdrant.NewPropertyIndex(ctx, cfg); err != nil {
			return err
		}
		e.ownsIndex = true
	case options.badgerPath != "":
		if e.index, err = badger.NewPropertyIndex(options.badgerPath); err != nil {
			return err
		}
		e.ownsIndex = true
	default:
		return ErrStorageRequired
	}

	if !options.skipLayoutCheck {
		if err := storage.CheckLayout(ctx, e.index, layout.Signature()); err != nil {
			return fmt.Errorf("%w; run reembed to rebuild the vectors", err)
		}
	}

	extractor := e.provider.ParameterExtractor()
	switch {
	case options.cache != nil:
		e.cache = options.cache
	case options.redis != nil:
		if e.cache, err = cache.NewRedisClient(*options.redis); err != nil {
			return err
		}
	case options.aiConfig.CacheTTL > 0:
		e.cache = cache.NewMemoryClient(memoryCacheSize)
	}
	if e.cache != nil && extractor != nil {
		extractor = cache.NewExtractor(extractor, e.cache, options.aiConfig.ExtractorModel, options.aiConfig.CacheTTL)
	}

	searchOpts := []search.Option{
		search.WithLogger(options.logger),
		search.WithResolver(query.NewResolver(e.vocab)),
	}
	if extractor != nil {
		searchOpts = append(searchOpts, search.WithExtractor(extractor))
	}
	searchOpts = append(searchOpts, options.searchOpts...)
	e.searcher, err = search.NewSearcher(e.index, e.builder, searchOpts...)
	if err != nil {
		return err
	}

	e.logger.Info("engine ready",
		"dimensions", layout.Dim(),
		"signature", layout.Signature(),
		"statistics", e.stats != nil)
	return nil
}

// extractionSchema renders the closed sets into the form the extraction
// prompt needs.
func extractionSchema(vocab *normalize.Vocabulary, region string) ai.ExtractionSchema {
	return ai.ExtractionSchema{
		Region:    region,
		States:    normalize.StateCodes(),
		HomeTypes: vocab.Allowed(core.FieldHomeType),
		Events:    vocab.Allowed(core.FieldEvent),
		Levels:    vocab.Allowed(core.FieldLevels),
	}
}

// Close releases the index, the cache and the AI provider.
func (e *Engine) Close() error {
	var errs []error
	if e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.cache != nil {
		if err := e.cache.Close(); err != nil {
			e.logger.Error("error closing extraction cache", "err", err)
			errs = append(errs, err)
		}
	}
	if e.index != nil && e.ownsIndex {
		if err := e.index.Close(); err != nil {
			e.logger.Error("error closing property index", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Index returns the property index.
func (e *Engine) Index() storage.PropertyIndex {
	return e.index
}

// Layout returns the similarity layout.
func (e *Engine) Layout() *space.Layout {
	return e.encoder.Layout()
}

// Vocabulary returns the vocabulary used for normalization.
func (e *Engine) Vocabulary() *normalize.Vocabulary {
	return e.vocab
}

// Searcher returns the searcher.
func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// Search runs a structured and/or natural-language search.
func (e *Engine) Search(ctx context.Context, req search.Request) (*search.Response, error) {
	return e.searcher.Search(ctx, req)
}

// SimilarTo finds properties similar to the stored property id.
func (e *Engine) SimilarTo(ctx context.Context, id string, req search.Request) (*search.Response, error) {
	return e.searcher.SimilarTo(ctx, id, req)
}

// Debug returns the first stored properties without ranking.
func (e *Engine) Debug(ctx context.Context) ([]*core.PropertyRecord, error) {
	return e.searcher.Debug(ctx)
}

// NewLoader creates a dataset loader writing into the engine's index.
// The caller must Release it.
func (e *Engine) NewLoader(opts ...ingestion.Option) (*ingestion.Loader, error) {
	opts = append([]ingestion.Option{
		ingestion.WithVocabulary(e.vocab),
		ingestion.WithLogger(e.logger),
	}, opts...)
	return ingestion.NewLoader(e.index, e.encoder, opts...)
}

// Load loads the CSV dataset at location, a local path or an s3:// url.
func (e *Engine) Load(ctx context.Context, location string, opts ...ingestion.Option) (*ingestion.LoadReport, error) {
	loader, err := e.NewLoader(opts...)
	if err != nil {
		return nil, err
	}
	defer loader.Release()

	client, err := e.objectGetter(ctx, location)
	if err != nil {
		return nil, err
	}
	return loader.LoadFrom(ctx, location, client)
}

// Profile reads the dataset at location without storing it and returns its
// column statistics along with the load report.
func (e *Engine) Profile(ctx context.Context, location string) (*ingestion.LoadReport, error) {
	return e.Load(ctx, location, ingestion.WithDryRun(true))
}

func (e *Engine) objectGetter(ctx context.Context, location string) (ingestion.ObjectGetter, error) {
	if e.s3 != nil || !ingestion.IsS3(location) {
		return e.s3, nil
	}
	client, err := ingestion.NewS3Client(ctx, e.s3Config)
	if err != nil {
		return nil, err
	}
	e.s3 = client
	return client, nil
}

// Reembed re-encodes every stored property with the current layout and
// embedder, writing progress to w.
func (e *Engine) Reembed(ctx context.Context, cfg *reembed.Config, w io.Writer) (*reembed.Summary, error) {
	r, err := reembed.NewReembedder(e.index, e.encoder, cfg, w)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	summary, err := r.Run(ctx)
	if err != nil {
		return nil, err
	}
	e.logger.Info("re-embedding finished", "processed", summary.Processed, "elapsed", time.Since(start))
	return summary, nil
}
