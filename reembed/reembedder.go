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

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/space"
	"github.com/poiesic/homesearch/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of records to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of records)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff delay; zero means no cap
	MaxRetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      256,
		ReportInterval: 1000,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		MaxRetryDelay:  30 * time.Second,
	}
}

// Summary describes a finished run.
type Summary struct {
	Processed int
	Elapsed   time.Duration
	Signature string
}

// Reembedder re-encodes every property in an index.
type Reembedder struct {
	index     storage.PropertyIndex
	encoder   *space.Encoder
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	logger    *slog.Logger
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(index storage.PropertyIndex, encoder *space.Encoder, config *Config, progress io.Writer) (*Reembedder, error) {
	if index == nil {
		return nil, ErrIndexRequired
	}
	if encoder == nil {
		return nil, ErrEncoderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", config.BatchSize)
	}
	if config.MaxRetries < 1 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}

	backoff := Backoff{MaxAttempts: config.MaxRetries, BaseDelay: config.RetryDelay, MaxDelay: config.MaxRetryDelay}
	return &Reembedder{
		index:     index,
		encoder:   encoder,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(index, encoder, backoff),
		logger:    slog.Default().With("component", "reembed"),
	}, nil
}

// Run re-encodes all properties. The layout signature of the index is
// replaced only after every batch has been written.
func (r *Reembedder) Run(ctx context.Context) (*Summary, error) {
	total, err := r.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count properties: %w", err)
	}

	signature := r.encoder.Layout().Signature()
	if total == 0 {
		fmt.Fprintf(r.progress, "No properties found in index (0 records)\n")
		if err := r.index.SetLayoutSignature(ctx, signature); err != nil {
			return nil, err
		}
		return &Summary{Signature: signature}, nil
	}

	fmt.Fprintf(r.progress, "Starting re-embedding of %d properties (batch size: %d)\n",
		total, r.config.BatchSize)
	r.logger.Info("re-embedding started", "total", total, "signature", signature)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	err = r.index.ForEach(ctx, r.config.BatchSize, func(ctx context.Context, batch []*core.PropertyRecord) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch starting at %s: %w", batch[0].ID, err)
		}
		tracker.Add(len(batch))
		return nil
	})
	if err != nil {
		r.logger.Error("re-embedding aborted", "processed", tracker.Current(), "err", err)
		return nil, err
	}
	tracker.Finish()

	if err := r.index.SetLayoutSignature(ctx, signature); err != nil {
		return nil, fmt.Errorf("failed to store layout signature: %w", err)
	}

	elapsed := tracker.Elapsed()
	processed := tracker.Current()
	fmt.Fprintf(r.progress, "Re-embedding complete. Processed %d properties in %v (%.1f properties/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return &Summary{Processed: processed, Elapsed: elapsed, Signature: signature}, nil
}
