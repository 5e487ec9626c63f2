package ingestion

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/normalize"
	"github.com/poiesic/homesearch/reembed"
	"github.com/poiesic/homesearch/space"
	"github.com/poiesic/homesearch/stats"
	"github.com/poiesic/homesearch/storage"
)

const (
	// DefaultChunkSize is the number of records encoded and upserted together.
	DefaultChunkSize = 512

	defaultMaxAttempts = 3
	defaultBaseDelay   = 500 * time.Millisecond
)

// Loader loads CSV datasets into a property index.
type Loader struct {
	index       storage.PropertyIndex
	encoder     *space.Encoder
	vocab       *normalize.Vocabulary
	pool        *ants.Pool
	chunkSize   int
	maxAttempts int
	baseDelay   time.Duration
	dryRun      bool
	logger      *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithPoolSize sets the worker pool size for concurrent chunk processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(l *Loader) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if l.pool != nil {
			l.pool.Release()
		}
		l.pool = pool
		return nil
	}
}

// WithChunkSize sets the number of records per chunk.
func WithChunkSize(size int) Option {
	return func(l *Loader) error {
		if size < 1 {
			return fmt.Errorf("chunk size must be positive, got %d", size)
		}
		l.chunkSize = size
		return nil
	}
}

// WithRetry sets how often a failing chunk is retried and the initial backoff.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(l *Loader) error {
		if maxAttempts < 1 {
			return reembed.ErrInvalidMaxAttempts
		}
		l.maxAttempts = maxAttempts
		l.baseDelay = baseDelay
		return nil
	}
}

// WithVocabulary sets the vocabulary used to map categorical values.
func WithVocabulary(vocab *normalize.Vocabulary) Option {
	return func(l *Loader) error {
		if vocab != nil {
			l.vocab = vocab
		}
		return nil
	}
}

// WithDryRun parses and validates rows without encoding or storing them.
func WithDryRun(dryRun bool) Option {
	return func(l *Loader) error {
		l.dryRun = dryRun
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			logger = slog.Default()
		}
		l.logger = logger
		return nil
	}
}

// NewLoader creates a loader. The encoder may be nil for dry runs.
func NewLoader(index storage.PropertyIndex, encoder *space.Encoder, opts ...Option) (*Loader, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	l := &Loader{
		index:       index,
		encoder:     encoder,
		vocab:       normalize.DefaultVocabulary(),
		pool:        pool,
		chunkSize:   DefaultChunkSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(l); err != nil {
			l.Release()
			return nil, err
		}
	}

	if !l.dryRun {
		if index == nil {
			l.Release()
			return nil, ErrIndexRequired
		}
		if encoder == nil {
			l.Release()
			return nil, ErrEncoderRequired
		}
	}
	l.logger = l.logger.With("component", "loader")
	return l, nil
}

// Release releases the worker pool.
// The loader should not be used after calling Release.
func (l *Loader) Release() {
	if l.pool != nil {
		l.pool.Release()
	}
}

// LoadFrom opens location (a local path or an s3:// url) and loads it.
func (l *Loader) LoadFrom(ctx context.Context, location string, client ObjectGetter) (*LoadReport, error) {
	src, err := Open(ctx, location, client)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	l.logger.Info("loading dataset", "location", location)
	return l.Load(ctx, src)
}

// Load reads a CSV dataset with a header row from src. Rows are validated in
// file order, so the first occurrence of an id wins. Accepted records are
// encoded and upserted in chunks on the worker pool; a chunk that still fails
// after retries is counted and skipped.
func (l *Loader) Load(ctx context.Context, src io.Reader) (*LoadReport, error) {
	reader := csv.NewReader(src)
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	names, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	hdr, err := newHeader(names)
	if err != nil {
		return nil, err
	}
	parser := &rowParser{header: hdr, vocab: l.vocab}

	report := &LoadReport{Dropped: make(map[DropReason]int)}
	collector := stats.NewCollector()
	seen := make(map[string]struct{})
	counters := &chunkCounters{}
	var wg sync.WaitGroup

	chunk := make([]*core.PropertyRecord, 0, l.chunkSize)
	flush := func() {
		if len(chunk) == 0 {
			return
		}
		batch := chunk
		chunk = make([]*core.PropertyRecord, 0, l.chunkSize)
		if l.dryRun {
			counters.loaded.Add(int64(len(batch)))
			return
		}
		wg.Add(1)
		err := l.pool.Submit(func() {
			defer wg.Done()
			l.storeChunk(ctx, batch, counters)
		})
		if err != nil {
			wg.Done()
			l.logger.Error("error submitting chunk", "records", len(batch), "err", err)
			counters.failedChunks.Add(1)
			counters.failedRecords.Add(int64(len(batch)))
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}

		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if !errors.As(err, &parseErr) {
				wg.Wait()
				return nil, fmt.Errorf("read dataset: %w", err)
			}
			report.Read++
			report.Dropped[DropMalformedRow]++
			l.logger.Debug("dropping malformed row", "line", parseErr.Line, "err", err)
			continue
		}
		report.Read++

		record, repaired, reason, err := parser.parse(row)
		if err != nil {
			report.Dropped[reason]++
			l.logger.Debug("dropping row", "row", report.Read, "reason", reason, "err", err)
			continue
		}
		if _, dup := seen[record.ID]; dup {
			report.Dropped[DropDuplicateID]++
			l.logger.Debug("dropping duplicate id", "id", record.ID)
			continue
		}
		seen[record.ID] = struct{}{}
		if repaired {
			report.Repaired++
		}

		collector.Add(record)
		chunk = append(chunk, record)
		if len(chunk) >= l.chunkSize {
			flush()
		}
	}
	flush()
	wg.Wait()

	report.Loaded = int(counters.loaded.Load())
	report.FailedChunks = int(counters.failedChunks.Load())
	report.FailedRecords = int(counters.failedRecords.Load())
	report.Statistics = collector.Statistics()

	l.logger.Info("dataset loaded",
		"read", report.Read,
		"loaded", report.Loaded,
		"repaired", report.Repaired,
		"dropped", report.TotalDropped(),
		"failedChunks", report.FailedChunks)
	return report, nil
}

// storeChunk encodes and upserts one chunk, retrying with backoff.
func (l *Loader) storeChunk(ctx context.Context, batch []*core.PropertyRecord, counters *chunkCounters) {
	err := reembed.RetryWithBackoff(ctx, func() error {
		if err := l.encoder.EncodeRecords(ctx, batch); err != nil {
			return fmt.Errorf("encode: %w", err)
		}
		if err := l.index.UpsertProperties(ctx, batch...); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		return nil
	}, l.maxAttempts, l.baseDelay)
	if err != nil {
		l.logger.Error("error storing chunk", "records", len(batch), "first", batch[0].ID, "err", err)
		counters.failedChunks.Add(1)
		counters.failedRecords.Add(int64(len(batch)))
		return
	}
	counters.loaded.Add(int64(len(batch)))
	l.logger.Debug("stored chunk", "records", len(batch))
}
