package reembed

import (
	"context"
	"fmt"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/space"
	"github.com/poiesic/homesearch/storage"
)

// BatchProcessor re-encodes batches of properties and writes them back.
type BatchProcessor struct {
	index   storage.PropertyIndex
	encoder *space.Encoder
	backoff Backoff
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(index storage.PropertyIndex, encoder *space.Encoder, backoff Backoff) *BatchProcessor {
	return &BatchProcessor{
		index:   index,
		encoder: encoder,
		backoff: backoff,
	}
}

// Process encodes a batch with retry and upserts it.
func (bp *BatchProcessor) Process(ctx context.Context, records []*core.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := bp.backoff.Retry(ctx, func() error {
		return bp.encoder.EncodeRecords(ctx, records)
	})
	if err != nil {
		return fmt.Errorf("failed to encode %d properties after %d attempts: %w", len(records), bp.backoff.MaxAttempts, err)
	}

	err = bp.backoff.Retry(ctx, func() error {
		return bp.index.UpsertProperties(ctx, records...)
	})
	if err != nil {
		return fmt.Errorf("failed to update properties: %w", err)
	}

	return nil
}
