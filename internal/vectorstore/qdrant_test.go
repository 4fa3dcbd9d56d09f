package vectorstore

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQdrant struct {
	exists     bool
	created    *qdrant.CreateCollection
	indexed    []string
	upserts    []*qdrant.UpsertPoints
	deletes    []*qdrant.DeletePoints
	lastQuery  *qdrant.QueryPoints
	queryResp  []*qdrant.ScoredPoint
	upsertErr  error
	closeCalls int
}

func (f *fakeQdrant) CollectionExists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *fakeQdrant) CreateCollection(_ context.Context, req *qdrant.CreateCollection) error {
	f.created = req
	return nil
}

func (f *fakeQdrant) CreateFieldIndex(_ context.Context, req *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error) {
	f.indexed = append(f.indexed, req.GetFieldName())
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Upsert(_ context.Context, req *qdrant.UpsertPoints) (*qdrant.UpdateResult, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts = append(f.upserts, req)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Query(_ context.Context, req *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error) {
	f.lastQuery = req
	return f.queryResp, nil
}

func (f *fakeQdrant) Delete(_ context.Context, req *qdrant.DeletePoints) (*qdrant.UpdateResult, error) {
	f.deletes = append(f.deletes, req)
	return &qdrant.UpdateResult{}, nil
}

func (f *fakeQdrant) Close() error {
	f.closeCalls++
	return nil
}

func scored(id string, docID int64, text string, score float32) *qdrant.ScoredPoint {
	return &qdrant.ScoredPoint{
		Id: qdrant.NewIDUUID(id),
		Payload: map[string]*qdrant.Value{
			metaDocumentID: {Kind: &qdrant.Value_IntegerValue{IntegerValue: docID}},
			payloadText:    {Kind: &qdrant.Value_StringValue{StringValue: text}},
		},
		Score: score,
	}
}

func newFakeQdrantStore(f *fakeQdrant) *QdrantStore {
	return newQdrantStore(f, QdrantConfig{Collection: "chunks", Dimension: 3, HNSWM: 16, HNSWEfConstruction: 64}, nil)
}

func TestQdrantStore_EnsureCollection(t *testing.T) {
	f := &fakeQdrant{}
	s := newFakeQdrantStore(f)

	require.NoError(t, s.EnsureCollection(context.Background()))

	require.NotNil(t, f.created)
	assert.Equal(t, "chunks", f.created.GetCollectionName())
	params := f.created.GetVectorsConfig().GetParams()
	assert.Equal(t, uint64(3), params.GetSize())
	assert.Equal(t, qdrant.Distance_Cosine, params.GetDistance())
	assert.Equal(t, uint64(16), f.created.GetHnswConfig().GetM())
	assert.Equal(t, uint64(64), f.created.GetHnswConfig().GetEfConstruct())
	assert.ElementsMatch(t, []string{metaDocumentID, metaOwnerID}, f.indexed)
}

func TestQdrantStore_EnsureCollectionExisting(t *testing.T) {
	f := &fakeQdrant{exists: true}
	s := newFakeQdrantStore(f)

	require.NoError(t, s.EnsureCollection(context.Background()))
	assert.Nil(t, f.created)
}

func TestQdrantStore_Upsert(t *testing.T) {
	f := &fakeQdrant{}
	s := newFakeQdrantStore(f)
	c := chunk(7, ptr(3), 2, "hello", 1, 0, 0)

	require.NoError(t, s.Upsert(context.Background(), []domain.Chunk{c}))

	require.Len(t, f.upserts, 1)
	assert.True(t, f.upserts[0].GetWait())
	p := f.upserts[0].GetPoints()[0]
	assert.Equal(t, c.ID, p.GetId().GetUuid())
	assert.Equal(t, int64(7), p.GetPayload()[metaDocumentID].GetIntegerValue())
	assert.Equal(t, int64(3), p.GetPayload()[metaOwnerID].GetIntegerValue())
	assert.Equal(t, int64(2), p.GetPayload()[metaChunkIndex].GetIntegerValue())
	assert.Equal(t, "hello", p.GetPayload()[payloadText].GetStringValue())
}

func TestQdrantStore_UpsertRejectsWrongDimension(t *testing.T) {
	f := &fakeQdrant{}
	s := newFakeQdrantStore(f)

	err := s.Upsert(context.Background(), []domain.Chunk{chunk(1, nil, 0, "x", 1, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Empty(t, f.upserts)
}

func TestQdrantStore_QuerySimilarChunks(t *testing.T) {
	f := &fakeQdrant{queryResp: []*qdrant.ScoredPoint{
		scored("00000000-0000-0000-0000-000000000002", 7, "b", 0.9),
		scored("00000000-0000-0000-0000-000000000001", 7, "a", 0.9),
		scored("00000000-0000-0000-0000-000000000003", 8, "c", 0.5),
	}}
	s := newFakeQdrantStore(f)

	hits, err := s.QuerySimilarChunks(context.Background(), []float32{1, 0, 0}, 5, domain.ChunkFilter{
		OwnerID:     ptr(3),
		DocumentIDs: []int64{7, 8, 7},
	})
	require.NoError(t, err)

	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].Text)
	assert.Equal(t, "b", hits[1].Text)
	assert.InDelta(t, 0.1, hits[0].Distance, 1e-6)
	assert.InDelta(t, 0.5, hits[2].Distance, 1e-6)

	assert.Equal(t, uint64(5), f.lastQuery.GetLimit())
	must := f.lastQuery.GetFilter().GetMust()
	require.Len(t, must, 2)
	assert.Equal(t, metaOwnerID, must[0].GetField().GetKey())
	assert.Equal(t, int64(3), must[0].GetField().GetMatch().GetInteger())
	assert.Equal(t, metaDocumentID, must[1].GetField().GetKey())
	assert.Equal(t, []int64{7, 8}, must[1].GetField().GetMatch().GetIntegers().GetIntegers())
}

func TestQdrantStore_QueryWithoutFilter(t *testing.T) {
	f := &fakeQdrant{}
	s := newFakeQdrantStore(f)

	hits, err := s.QuerySimilarChunks(context.Background(), []float32{1, 0, 0}, 5, domain.ChunkFilter{})
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Nil(t, f.lastQuery.GetFilter())
}

func TestQdrantStore_QuerySimilarDocuments(t *testing.T) {
	f := &fakeQdrant{queryResp: []*qdrant.ScoredPoint{
		scored("00000000-0000-0000-0000-000000000001", 7, "a", 0.9),
		scored("00000000-0000-0000-0000-000000000002", 7, "b", 0.7),
		scored("00000000-0000-0000-0000-000000000003", 8, "c", 0.6),
	}}
	s := newFakeQdrantStore(f)

	ranks, err := s.QuerySimilarDocuments(context.Background(), []float32{1, 0, 0}, 50, 1, domain.ChunkFilter{})
	require.NoError(t, err)

	require.Len(t, ranks, 1)
	assert.Equal(t, int64(7), ranks[0].DocumentID)
	assert.Equal(t, 2, ranks[0].MatchCount)
	assert.InDelta(t, 0.8, ranks[0].AvgSimilarity, 1e-6)
	assert.Equal(t, uint64(50), f.lastQuery.GetLimit())
}

func TestQdrantStore_ReplaceDocumentChunks(t *testing.T) {
	f := &fakeQdrant{}
	s := newFakeQdrantStore(f)

	require.NoError(t, s.ReplaceDocumentChunks(context.Background(), 9, []domain.Chunk{chunk(9, nil, 0, "x", 1, 0, 0)}))

	require.Len(t, f.deletes, 1)
	cond := f.deletes[0].GetPoints().GetFilter().GetMust()[0]
	assert.Equal(t, metaDocumentID, cond.GetField().GetKey())
	assert.Equal(t, int64(9), cond.GetField().GetMatch().GetInteger())
	require.Len(t, f.upserts, 1)
}

func TestQdrantStore_UpsertError(t *testing.T) {
	f := &fakeQdrant{upsertErr: errors.New("unavailable")}
	s := newFakeQdrantStore(f)

	err := s.Upsert(context.Background(), []domain.Chunk{chunk(1, nil, 0, "x", 1, 0, 0)})
	assert.ErrorContains(t, err, "unavailable")
}

func TestQdrantStore_Close(t *testing.T) {
	f := &fakeQdrant{}
	require.NoError(t, newFakeQdrantStore(f).Close())
	assert.Equal(t, 1, f.closeCalls)
}
