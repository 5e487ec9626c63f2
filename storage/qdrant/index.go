package qdrant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/poiesic/homesearch/core"
	"github.com/poiesic/homesearch/storage"
)

const (
	defaultPort       = 6334
	defaultCollection = "properties"
	signatureKey      = "signature"
	metaSuffix        = "_meta"
)

// Config describes the Qdrant collection backing the index.
type Config struct {
	Host       string
	Port       int
	Collection string
	// Dimension is the composite vector size; it must match the layout.
	Dimension int
	// Timeout bounds connection setup and collection creation.
	Timeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.Collection == "" {
		c.Collection = defaultCollection
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	return c
}

// PropertyIndex implements storage.PropertyIndex on a Qdrant collection.
// Filters run inside Qdrant; partial scores are recomputed from the returned
// vectors.
type PropertyIndex struct {
	conn        *grpc.ClientConn
	points      qdrant.PointsClient
	collections qdrant.CollectionsClient
	cfg         Config
	logger      *slog.Logger
}

var _ storage.PropertyIndex = (*PropertyIndex)(nil)

// NewPropertyIndex connects to Qdrant and creates the collection if needed.
func NewPropertyIndex(ctx context.Context, cfg Config) (storage.PropertyIndex, error) {
	cfg = cfg.withDefaults()
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("qdrant: invalid dimension %d", cfg.Dimension)
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant at %s: %w", addr, err)
	}

	idx := newPropertyIndex(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), cfg)
	idx.conn = conn

	setupCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := idx.ensureCollections(setupCtx); err != nil {
		conn.Close()
		return nil, err
	}
	idx.logger.Info("connected to qdrant", "addr", addr, "collection", cfg.Collection)
	return idx, nil
}

func newPropertyIndex(points qdrant.PointsClient, collections qdrant.CollectionsClient, cfg Config) *PropertyIndex {
	cfg = cfg.withDefaults()
	return &PropertyIndex{
		points:      points,
		collections: collections,
		cfg:         cfg,
		logger:      slog.Default().With("component", "qdrant-index", "collection", cfg.Collection),
	}
}

func (p *PropertyIndex) metaCollection() string {
	return p.cfg.Collection + metaSuffix
}

// ensureCollections creates the property collection (dot product over the
// composite dimension) and the one-point metadata collection.
func (p *PropertyIndex) ensureCollections(ctx context.Context) error {
	for name, size := range map[string]int{p.cfg.Collection: p.cfg.Dimension, p.metaCollection(): 1} {
		resp, err := p.collections.CollectionExists(ctx, &qdrant.CollectionExistsRequest{CollectionName: name})
		if err != nil {
			return fmt.Errorf("failed to check collection %s: %w", name, err)
		}
		if resp.GetResult().GetExists() {
			continue
		}
		_, err = p.collections.Create(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(size),
				Distance: qdrant.Distance_Dot,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
		p.logger.Info("created collection", "name", name, "size", size)
	}
	return nil
}

// Close closes the gRPC connection.
func (p *PropertyIndex) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// UpsertProperties writes records as points keyed by the hashed listing id.
func (p *PropertyIndex) UpsertProperties(ctx context.Context, records ...*core.PropertyRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("%w: empty id", core.ErrEmptyID)
		}
		if len(r.Vector) != p.cfg.Dimension {
			if len(r.Vector) == 0 {
				return fmt.Errorf("%w: %s", storage.ErrMissingVector, r.ID)
			}
			return fmt.Errorf("%w: %s has %d, collection %d", core.ErrDimensionMismatch, r.ID, len(r.Vector), p.cfg.Dimension)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      pointID(r.ID),
			Vectors: qdrant.NewVectorsDense(r.Vector),
			Payload: toPayload(r),
		})
	}
	_, err := p.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: p.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %d properties: %w", len(records), err)
	}
	p.logger.Debug("upserted properties", "count", len(records))
	return nil
}

// GetProperty retrieves a record by listing id.
func (p *PropertyIndex) GetProperty(ctx context.Context, id string) (*core.PropertyRecord, error) {
	resp, err := p.points.Get(ctx, &qdrant.GetPoints{
		CollectionName: p.cfg.Collection,
		Ids:            []*qdrant.PointId{pointID(id)},
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get property %s: %w", id, err)
	}
	for _, pt := range resp.GetResult() {
		r, err := fromPayload(pt.GetPayload(), denseData(pt.GetVectors().GetVector()))
		if err != nil {
			return nil, err
		}
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
}

// Search runs the composite vector against the collection with the filters
// applied server side.
func (p *PropertyIndex) Search(ctx context.Context, q *core.CompositeQuery) ([]core.SearchResult, error) {
	if err := storage.ValidateQuery(q); err != nil {
		return nil, err
	}
	if q.Dim() != p.cfg.Dimension {
		return nil, fmt.Errorf("%w: query %d, collection %d", core.ErrDimensionMismatch, q.Dim(), p.cfg.Dimension)
	}
	filter, err := buildFilter(q.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrInvalidQuery, err)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	resp, err := p.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: p.cfg.Collection,
		Vector:         q.Vector,
		Filter:         filter,
		Limit:          uint64(limit),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
		Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]core.SearchResult, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		r, err := fromPayload(pt.GetPayload(), denseData(pt.GetVectors().GetVector()))
		if err != nil {
			return nil, err
		}
		result := core.SearchResult{Record: r, Score: pt.GetScore()}
		if len(r.Vector) == q.Dim() {
			result.Score, result.Breakdown, _ = q.Score(r.Vector)
		}
		results = append(results, result)
	}
	p.logger.Debug("search finished", "returned", len(results), "limit", limit)
	return core.RankResults(results, limit), nil
}

// scroll pages through the collection starting at offset.
func (p *PropertyIndex) scroll(ctx context.Context, offset *qdrant.PointId, limit int) ([]*core.PropertyRecord, *qdrant.PointId, error) {
	resp, err := p.points.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: p.cfg.Collection,
		Offset:         offset,
		Limit:          qdrant.PtrOf(uint32(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("qdrant scroll failed: %w", err)
	}
	records := make([]*core.PropertyRecord, 0, len(resp.GetResult()))
	for _, pt := range resp.GetResult() {
		r, err := fromPayload(pt.GetPayload(), denseData(pt.GetVectors().GetVector()))
		if err != nil {
			return nil, nil, err
		}
		records = append(records, r)
	}
	return records, resp.GetNextPageOffset(), nil
}

// Scan returns up to limit records in point id order. A non-positive limit
// returns all.
func (p *PropertyIndex) Scan(ctx context.Context, limit int) ([]*core.PropertyRecord, error) {
	var out []*core.PropertyRecord
	page := 256
	err := p.ForEach(ctx, page, func(ctx context.Context, batch []*core.PropertyRecord) error {
		for _, r := range batch {
			if limit > 0 && len(out) >= limit {
				return errStop
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return out, nil
}

var errStop = errors.New("stop")

// ForEach pages through the collection with scroll requests.
func (p *PropertyIndex) ForEach(ctx context.Context, batchSize int, fn func(ctx context.Context, batch []*core.PropertyRecord) error) error {
	if batchSize <= 0 {
		return fmt.Errorf("%w: batch size %d", storage.ErrInvalidQuery, batchSize)
	}
	var offset *qdrant.PointId
	for {
		batch, next, err := p.scroll(ctx, offset, batchSize)
		if err != nil {
			return err
		}
		if len(batch) > 0 {
			if err := fn(ctx, batch); err != nil {
				return err
			}
		}
		if next == nil || len(batch) == 0 {
			return nil
		}
		offset = next
	}
}

// Count returns the exact number of points.
func (p *PropertyIndex) Count(ctx context.Context) (int, error) {
	resp, err := p.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: p.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count failed: %w", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

// LayoutSignature reads the signature point of the metadata collection.
func (p *PropertyIndex) LayoutSignature(ctx context.Context) (string, error) {
	resp, err := p.points.Get(ctx, &qdrant.GetPoints{
		CollectionName: p.metaCollection(),
		Ids:            []*qdrant.PointId{qdrant.NewIDNum(1)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read layout signature: %w", err)
	}
	for _, pt := range resp.GetResult() {
		return pt.GetPayload()[signatureKey].GetStringValue(), nil
	}
	return "", nil
}

// SetLayoutSignature writes the signature point of the metadata collection.
func (p *PropertyIndex) SetLayoutSignature(ctx context.Context, signature string) error {
	_, err := p.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: p.metaCollection(),
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDNum(1),
			Vectors: qdrant.NewVectorsDense([]float32{0}),
			Payload: map[string]*qdrant.Value{signatureKey: qdrant.NewValueString(signature)},
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to write layout signature: %w", err)
	}
	return nil
}
