package storage

import (
	"context"
	"fmt"

	"github.com/poiesic/homesearch/core"
)

// PropertyIndex stores encoded property records and answers composite queries.
// Implementations must be thread-safe and support concurrent access.
type PropertyIndex interface {
	// UpsertProperties inserts or replaces records by listing id.
	// Every record must carry a vector.
	UpsertProperties(ctx context.Context, records ...*core.PropertyRecord) error

	// GetProperty retrieves a single record, vector included.
	// Returns ErrNotFound if the record doesn't exist.
	GetProperty(ctx context.Context, id string) (*core.PropertyRecord, error)

	// Search returns the records passing every filter of q, ranked by
	// descending score (ties by id) and truncated to q.Limit.
	Search(ctx context.Context, q *core.CompositeQuery) ([]core.SearchResult, error)

	// Scan returns up to limit records in storage order, without ranking.
	Scan(ctx context.Context, limit int) ([]*core.PropertyRecord, error)

	// ForEach calls fn with successive batches of at most batchSize records.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, batchSize int, fn func(ctx context.Context, batch []*core.PropertyRecord) error) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// LayoutSignature returns the signature of the layout the stored vectors
	// were encoded with, or "" if none was recorded.
	LayoutSignature(ctx context.Context) (string, error)

	// SetLayoutSignature records the layout signature.
	SetLayoutSignature(ctx context.Context, signature string) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckLayout verifies that the index was built with the given layout
// signature. An index with no recorded signature adopts it.
func CheckLayout(ctx context.Context, index PropertyIndex, signature string) error {
	stored, err := index.LayoutSignature(ctx)
	if err != nil {
		return err
	}
	switch stored {
	case "":
		return index.SetLayoutSignature(ctx, signature)
	case signature:
		return nil
	}
	return fmt.Errorf("%w: index %s, configured %s", ErrLayoutMismatch, stored, signature)
}

// ValidateQuery checks a composite query before it is run.
func ValidateQuery(q *core.CompositeQuery) error {
	if q == nil {
		return fmt.Errorf("%w: nil query", ErrInvalidQuery)
	}
	if len(q.Vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrInvalidQuery)
	}
	for _, seg := range q.Segments {
		if seg.Offset < 0 || seg.Dim <= 0 || seg.Offset+seg.Dim > len(q.Vector) {
			return fmt.Errorf("%w: segment %s out of range", ErrInvalidQuery, seg.Field)
		}
	}
	return nil
}
