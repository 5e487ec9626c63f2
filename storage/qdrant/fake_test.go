package qdrant

import (
	"context"
	"sort"
	"sync"

	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
)

// fakePoints keeps points in memory per collection. Search ignores filters
// and ranks by dot product.
type fakePoints struct {
	qdrant.PointsClient

	mu          sync.Mutex
	collections map[string]map[uint64]*qdrant.PointStruct
	lastSearch  *qdrant.SearchPoints
	err         error
}

func newFakePoints() *fakePoints {
	return &fakePoints{collections: make(map[string]map[uint64]*qdrant.PointStruct)}
}

func (f *fakePoints) Upsert(_ context.Context, in *qdrant.UpsertPoints, _ ...grpc.CallOption) (*qdrant.PointsOperationResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.collections[in.GetCollectionName()]
	if !ok {
		c = make(map[uint64]*qdrant.PointStruct)
		f.collections[in.GetCollectionName()] = c
	}
	for _, p := range in.GetPoints() {
		c[p.GetId().GetNum()] = p
	}
	return &qdrant.PointsOperationResponse{}, nil
}

func outputVectors(p *qdrant.PointStruct) *qdrant.VectorsOutput {
	data := p.GetVectors().GetVector().GetDense().GetData()
	return &qdrant.VectorsOutput{
		VectorsOptions: &qdrant.VectorsOutput_Vector{
			Vector: &qdrant.VectorOutput{
				Vector: &qdrant.VectorOutput_Dense{Dense: &qdrant.DenseVector{Data: data}},
			},
		},
	}
}

func retrieved(p *qdrant.PointStruct) *qdrant.RetrievedPoint {
	return &qdrant.RetrievedPoint{Id: p.GetId(), Payload: p.GetPayload(), Vectors: outputVectors(p)}
}

func (f *fakePoints) sortedIDs(collection string) []uint64 {
	ids := make([]uint64, 0, len(f.collections[collection]))
	for id := range f.collections[collection] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (f *fakePoints) Get(_ context.Context, in *qdrant.GetPoints, _ ...grpc.CallOption) (*qdrant.GetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	resp := &qdrant.GetResponse{}
	for _, id := range in.GetIds() {
		if p, ok := f.collections[in.GetCollectionName()][id.GetNum()]; ok {
			resp.Result = append(resp.Result, retrieved(p))
		}
	}
	return resp, nil
}

func (f *fakePoints) Search(_ context.Context, in *qdrant.SearchPoints, _ ...grpc.CallOption) (*qdrant.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.lastSearch = in
	resp := &qdrant.SearchResponse{}
	for _, id := range f.sortedIDs(in.GetCollectionName()) {
		p := f.collections[in.GetCollectionName()][id]
		var score float32
		for i, v := range p.GetVectors().GetVector().GetDense().GetData() {
			score += v * in.GetVector()[i]
		}
		resp.Result = append(resp.Result, &qdrant.ScoredPoint{
			Id: p.GetId(), Payload: p.GetPayload(), Score: score, Vectors: outputVectors(p),
		})
	}
	sort.SliceStable(resp.Result, func(i, j int) bool { return resp.Result[i].Score > resp.Result[j].Score })
	if uint64(len(resp.Result)) > in.GetLimit() {
		resp.Result = resp.Result[:in.GetLimit()]
	}
	return resp, nil
}

func (f *fakePoints) Scroll(_ context.Context, in *qdrant.ScrollPoints, _ ...grpc.CallOption) (*qdrant.ScrollResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ids := f.sortedIDs(in.GetCollectionName())
	start := 0
	if in.GetOffset() != nil {
		start = sort.Search(len(ids), func(i int) bool { return ids[i] >= in.GetOffset().GetNum() })
	}
	end := min(start+int(in.GetLimit()), len(ids))
	resp := &qdrant.ScrollResponse{}
	for _, id := range ids[start:end] {
		resp.Result = append(resp.Result, retrieved(f.collections[in.GetCollectionName()][id]))
	}
	if end < len(ids) {
		resp.NextPageOffset = qdrant.NewIDNum(ids[end])
	}
	return resp, nil
}

func (f *fakePoints) Count(_ context.Context, in *qdrant.CountPoints, _ ...grpc.CallOption) (*qdrant.CountResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	n := uint64(len(f.collections[in.GetCollectionName()]))
	return &qdrant.CountResponse{Result: &qdrant.CountResult{Count: n}}, nil
}

type fakeCollections struct {
	qdrant.CollectionsClient

	existing map[string]bool
	created  []*qdrant.CreateCollection
}

func (f *fakeCollections) CollectionExists(_ context.Context, in *qdrant.CollectionExistsRequest, _ ...grpc.CallOption) (*qdrant.CollectionExistsResponse, error) {
	return &qdrant.CollectionExistsResponse{
		Result: &qdrant.CollectionExists{Exists: f.existing[in.GetCollectionName()]},
	}, nil
}

func (f *fakeCollections) Create(_ context.Context, in *qdrant.CreateCollection, _ ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error) {
	f.created = append(f.created, in)
	if f.existing == nil {
		f.existing = make(map[string]bool)
	}
	f.existing[in.GetCollectionName()] = true
	return &qdrant.CollectionOperationResponse{Result: true}, nil
}
