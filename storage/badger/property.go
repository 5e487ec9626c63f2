package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/storage"
)

// ctxCheckInterval is how many records a scan visits between context checks.
const ctxCheckInterval = 1024

// PropertyIndex implements storage.PropertyIndex on BadgerDB.
// Search scans every stored record, evaluates the filters and scores the
// survivors in process.
type PropertyIndex struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.PropertyIndex = (*PropertyIndex)(nil)

// NewPropertyIndex opens (or creates) an index at path.
func NewPropertyIndex(path string) (storage.PropertyIndex, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newPropertyIndex(backend, true), nil
}

// NewPropertyIndexWithBackend creates an index over an existing backend.
// Closing the index leaves the backend open.
func NewPropertyIndexWithBackend(backend *Backend) storage.PropertyIndex {
	return newPropertyIndex(backend, false)
}

func newPropertyIndex(backend *Backend, owns bool) *PropertyIndex {
	return &PropertyIndex{
		backend:     backend,
		ownsBackend: owns,
		logger:      backend.logger.With("component", "badger-index"),
	}
}

// Close releases the backend if the index opened it.
func (p *PropertyIndex) Close() error {
	if !p.ownsBackend || p.backend.IsClosed() {
		return nil
	}
	return p.backend.Close()
}

func (p *PropertyIndex) checkOpen() error {
	if p.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// UpsertProperties inserts or replaces records by listing id.
func (p *PropertyIndex) UpsertProperties(ctx context.Context, records ...*core.PropertyRecord) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: empty id", core.ErrEmptyID)
		}
		if len(r.Vector) == 0 {
			return fmt.Errorf("%w: %s", storage.ErrMissingVector, r.ID)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := p.backend.WriteBatch(func(wb *badger.WriteBatch) error {
		for _, r := range records {
			if err := wb.Set(makePropertyKey(r.Key()), storage.MarshalProperty(r)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d properties: %w", len(records), err)
	}
	p.logger.Debug("upserted properties", "count", len(records))
	return nil
}

// GetProperty retrieves a single record by listing id.
func (p *PropertyIndex) GetProperty(ctx context.Context, id string) (*core.PropertyRecord, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	var record *core.PropertyRecord
	err := p.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		record, err = readProperty(tx, id)
		return err
	}, false)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// readProperty reads a record by listing id. A key collision with a
// different listing is reported as not found.
func readProperty(tx *badger.Txn, id string) (*core.PropertyRecord, error) {
	item, err := tx.Get(makePropertyKey(core.IDFromContent(id)))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
		}
		return nil, err
	}
	var record *core.PropertyRecord
	err = item.Value(func(val []byte) error {
		var err error
		record, err = storage.UnmarshalProperty(val)
		return err
	})
	if err != nil {
		return nil, err
	}
	if record.ID != id {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return record, nil
}

// Search runs a composite query. When the query pins a set of listing ids
// they are read directly instead of scanning.
func (p *PropertyIndex) Search(ctx context.Context, q *core.CompositeQuery) ([]core.SearchResult, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if err := storage.ValidateQuery(q); err != nil {
		return nil, err
	}

	var results []core.SearchResult
	consider := func(r *core.PropertyRecord) error {
		if !q.Matches(r) {
			return nil
		}
		score, breakdown, err := q.Score(r.Vector)
		if err != nil {
			return fmt.Errorf("property %s: %w", r.ID, err)
		}
		results = append(results, core.SearchResult{Record: r, Score: score, Breakdown: breakdown})
		return nil
	}

	var err error
	if ids, ok := pinnedIDs(q); ok {
		err = p.backend.WithTx(func(tx *badger.Txn) error {
			for _, id := range ids {
				r, err := readProperty(tx, id)
				if errors.Is(err, storage.ErrNotFound) {
					continue
				}
				if err != nil {
					return err
				}
				if err := consider(r); err != nil {
					return err
				}
			}
			return nil
		}, false)
	} else {
		err = p.iterate(ctx, nil, func(r *core.PropertyRecord) (bool, error) {
			return true, consider(r)
		})
	}
	if err != nil {
		return nil, err
	}

	p.logger.Debug("search finished", "matched", len(results), "limit", q.Limit)
	return core.RankResults(results, q.Limit), nil
}

// pinnedIDs returns the ids of the first id membership filter, without
// repeats. Ids are matched exactly, as Predicate.Evaluate does.
func pinnedIDs(q *core.CompositeQuery) ([]string, bool) {
	for _, f := range q.Filters {
		if f.Field != core.FieldID || f.Op != core.OpIn {
			continue
		}
		seen := make(map[string]struct{}, len(f.Values))
		ids := make([]string, 0, len(f.Values))
		for _, id := range f.Values {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		return ids, true
	}
	return nil, false
}

// Scan returns up to limit records in key order. A non-positive limit returns all.
func (p *PropertyIndex) Scan(ctx context.Context, limit int) ([]*core.PropertyRecord, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	var records []*core.PropertyRecord
	err := p.iterate(ctx, nil, func(r *core.PropertyRecord) (bool, error) {
		records = append(records, r)
		return limit <= 0 || len(records) < limit, nil
	})
	return records, err
}

// ForEach calls fn with batches of records. Each batch is read in its own
// transaction, so fn may write to the index.
func (p *PropertyIndex) ForEach(ctx context.Context, batchSize int, fn func(ctx context.Context, batch []*core.PropertyRecord) error) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", storage.ErrInvalidQuery, batchSize)
	}

	var after []byte
	for {
		batch := make([]*core.PropertyRecord, 0, batchSize)
		var last []byte
		err := p.iterate(ctx, after, func(r *core.PropertyRecord) (bool, error) {
			batch = append(batch, r)
			last = makePropertyKey(r.Key())
			return len(batch) < batchSize, nil
		})
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		if err := fn(ctx, batch); err != nil {
			return err
		}
		if len(batch) < batchSize {
			return nil
		}
		after = last
	}
}

// iterate visits stored records in key order, starting after the key after
// (or at the first record when after is nil), until visit returns false.
func (p *PropertyIndex) iterate(ctx context.Context, after []byte, visit func(r *core.PropertyRecord) (bool, error)) error {
	return p.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(propertyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		if after == nil {
			iter.Rewind()
		} else {
			iter.Seek(after)
			if iter.Valid() && bytes.Equal(iter.Item().Key(), after) {
				iter.Next()
			}
		}

		for n := 0; iter.Valid(); iter.Next() {
			if n++; n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			var record *core.PropertyRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalProperty(val)
				return err
			})
			if err != nil {
				return err
			}
			more, err := visit(record)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
		return ctx.Err()
	}, false)
}

// Count returns the number of stored records.
func (p *PropertyIndex) Count(ctx context.Context) (int, error) {
	if err := p.checkOpen(); err != nil {
		return 0, err
	}
	count := 0
	err := p.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(propertyPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return ctx.Err()
	}, false)
	return count, err
}

// LayoutSignature returns the stored layout signature, "" if none.
func (p *PropertyIndex) LayoutSignature(ctx context.Context) (string, error) {
	if err := p.checkOpen(); err != nil {
		return "", err
	}
	var signature string
	err := p.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get([]byte(layoutSignature))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		val, err := item.ValueCopy(nil)
		signature = string(val)
		return err
	}, false)
	return signature, err
}

// SetLayoutSignature stores the layout signature.
func (p *PropertyIndex) SetLayoutSignature(ctx context.Context, signature string) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	return p.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set([]byte(layoutSignature), []byte(signature)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
