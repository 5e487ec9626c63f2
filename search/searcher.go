package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/homesearch/ai"
	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/query"
	"github.com/poiesic/homesearch/storage"
)

// ExtractionMode selects how extraction failures are handled.
type ExtractionMode int

const (
	// ExtractionLenient falls back to the structured parameters.
	ExtractionLenient ExtractionMode = iota
	// ExtractionStrict fails the request with ErrExtractionFailed.
	ExtractionStrict
)

const (
	// DefaultExtractionTimeout bounds a single extractor call.
	DefaultExtractionTimeout = 10 * time.Second

	debugLimit = 10
)

// Searcher runs property search requests against an index.
// It holds only read-only state and is safe for concurrent use.
type Searcher struct {
	index     storage.PropertyIndex
	builder   *query.Builder
	resolver  *query.Resolver
	extractor ai.ParameterExtractor
	mode      ExtractionMode
	timeout   time.Duration
	monitor   SearchMonitor
	logger    *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithExtractor sets the natural-language parameter extractor.
// Without one, natural_query is ignored in lenient mode.
func WithExtractor(extractor ai.ParameterExtractor) Option {
	return func(s *Searcher) error {
		s.extractor = extractor
		return nil
	}
}

// WithResolver sets the resolver used for structured and extracted values.
// Default resolves against normalize.DefaultVocabulary.
func WithResolver(resolver *query.Resolver) Option {
	return func(s *Searcher) error {
		if resolver != nil {
			s.resolver = resolver
		}
		return nil
	}
}

// WithExtractionMode selects lenient or strict extraction.
func WithExtractionMode(mode ExtractionMode) Option {
	return func(s *Searcher) error {
		if mode != ExtractionLenient && mode != ExtractionStrict {
			return fmt.Errorf("invalid extraction mode %d", mode)
		}
		s.mode = mode
		return nil
	}
}

// WithExtractionTimeout bounds each extractor call.
func WithExtractionTimeout(d time.Duration) Option {
	return func(s *Searcher) error {
		if d <= 0 {
			return fmt.Errorf("extraction timeout must be positive, got %s", d)
		}
		s.timeout = d
		return nil
	}
}

// WithMonitor installs a monitor that observes every request.
func WithMonitor(monitor SearchMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(index storage.PropertyIndex, builder *query.Builder, opts ...Option) (*Searcher, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if builder == nil {
		return nil, ErrBuilderRequired
	}

	s := &Searcher{
		index:    index,
		builder:  builder,
		resolver: query.NewResolver(nil),
		timeout:  DefaultExtractionTimeout,
		monitor:  &noopMonitor{},
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search resolves req, builds one composite query and returns the ranked results.
// Malformed parameters are reported in Response.Rejected and otherwise ignored.
func (s *Searcher) Search(ctx context.Context, req Request) (*Response, error) {
	resp, err := s.search(ctx, req)
	if err != nil {
		s.monitor.Fail(err)
	}
	return resp, err
}

func (s *Searcher) search(ctx context.Context, req Request) (*Response, error) {
	resp, params, logger, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	q, err := s.builder.Build(ctx, params)
	if err != nil {
		logger.Error("error building query", "err", err)
		return nil, err
	}
	return s.run(ctx, resp, q, logger)
}

// SimilarTo ranks properties by similarity to the stored property id, using
// the weights and filters of req. The anchor is never part of the results.
func (s *Searcher) SimilarTo(ctx context.Context, id string, req Request) (*Response, error) {
	resp, err := s.similarTo(ctx, id, req)
	if err != nil {
		s.monitor.Fail(err)
	}
	return resp, err
}

func (s *Searcher) similarTo(ctx context.Context, id string, req Request) (*Response, error) {
	resp, params, logger, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	anchor, err := s.index.GetProperty(ctx, id)
	if err != nil {
		logger.Error("error loading anchor property", "id", id, "err", err)
		return nil, err
	}
	q, err := s.builder.BuildSimilar(params, anchor.ID, anchor.Vector)
	if err != nil {
		logger.Error("error building similarity query", "id", id, "err", err)
		return nil, err
	}
	return s.run(ctx, resp, q, logger)
}

// Debug returns the first stored properties without ranking.
func (s *Searcher) Debug(ctx context.Context) ([]*core.PropertyRecord, error) {
	return s.index.Scan(ctx, debugLimit)
}

// prepare assigns a request id and resolves the structured and extracted
// parameters of req into one parameter set.
func (s *Searcher) prepare(ctx context.Context, req Request) (*Response, *query.Parameters, *slog.Logger, error) {
	resp := &Response{RequestID: uuid.NewString()}
	logger := s.logger.With("request_id", resp.RequestID)
	s.monitor.Start(resp.RequestID, req)

	structured, rejected := s.resolver.Resolve(req)
	resp.Rejected = append(resp.Rejected, rejected...)

	text, ok := req.NaturalQuery()
	if !ok {
		resp.Rejected = append(resp.Rejected, query.FieldError{
			Param:  query.ParamNaturalQuery,
			Value:  req[query.ParamNaturalQuery],
			Source: query.SourceRequest,
			Err:    query.ErrInvalidValue,
		})
	}
	s.monitor.AfterResolve(structured, resp.Rejected)

	params := structured
	if text != "" {
		extracted, fieldErrs, err := s.extract(ctx, text, logger)
		switch {
		case err != nil && s.mode == ExtractionStrict:
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
		case err != nil:
			logger.Warn("extraction failed, using structured parameters", "err", err)
		case len(fieldErrs) > 0 && s.mode == ExtractionStrict:
			return nil, nil, nil, fmt.Errorf("%w: %w", ErrExtractionFailed, errors.Join(asErrors(fieldErrs)...))
		default:
			resp.Rejected = append(resp.Rejected, fieldErrs...)
			params = query.Merge(structured, extracted)
			resp.Extracted = true
		}
	}

	if len(resp.Rejected) > 0 {
		logger.Info("rejected request parameters", "count", len(resp.Rejected))
	}
	return resp, params, logger, nil
}

// extract calls the extractor once under the extraction timeout and resolves its output.
func (s *Searcher) extract(ctx context.Context, text string, logger *slog.Logger) (*query.Parameters, []query.FieldError, error) {
	if s.extractor == nil {
		err := errors.New("no parameter extractor configured")
		s.monitor.AfterExtraction(nil, err)
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	raw, err := s.extractor.ExtractParameters(ctx, text)
	s.monitor.AfterExtraction(raw, err)
	if err != nil {
		return nil, nil, err
	}
	if raw == nil {
		raw = ai.EmptyParameters()
	}
	if missing := raw.FillMissing(); len(missing) > 0 {
		logger.Warn("extractor omitted parameter keys", "keys", missing)
	}
	logger.Debug("extracted parameters", "elapsed", time.Since(start))

	params, fieldErrs := s.resolver.ResolveExtracted(raw)
	return params, fieldErrs, nil
}

func (s *Searcher) run(ctx context.Context, resp *Response, q *core.CompositeQuery, logger *slog.Logger) (*Response, error) {
	s.monitor.AfterQueryBuild(q)

	found, err := s.index.Search(ctx, q)
	if err != nil {
		logger.Error("error querying property index", "err", err)
		return nil, err
	}

	resp.Results = Assemble(found)
	logger.Debug("search finished", "results", len(resp.Results), "filters", len(q.Filters))
	s.monitor.Finish(resp.Results)
	return resp, nil
}

func asErrors(fieldErrs []query.FieldError) []error {
	errs := make([]error, len(fieldErrs))
	for i, fe := range fieldErrs {
		errs[i] = fe
	}
	return errs
}
