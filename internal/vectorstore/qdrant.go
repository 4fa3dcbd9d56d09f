package vectorstore

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	payloadText       = "text"
	defaultQdrantPort = 6334
	maxGRPCMessage    = 64 << 20
)

// qdrantAPI is the subset of *qdrant.Client used by QdrantStore.
type qdrantAPI interface {
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
	CreateCollection(ctx context.Context, request *qdrant.CreateCollection) error
	CreateFieldIndex(ctx context.Context, request *qdrant.CreateFieldIndexCollection) (*qdrant.UpdateResult, error)
	Upsert(ctx context.Context, request *qdrant.UpsertPoints) (*qdrant.UpdateResult, error)
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	Delete(ctx context.Context, request *qdrant.DeletePoints) (*qdrant.UpdateResult, error)
	Close() error
}

// QdrantConfig addresses a Qdrant gRPC endpoint and sizes its collection.
type QdrantConfig struct {
	Host               string
	Port               int
	UseTLS             bool
	APIKey             string
	Collection         string
	Dimension          int
	HNSWM              int
	HNSWEfConstruction int
}

// QdrantStore keeps chunks as Qdrant points keyed by chunk UUID with the
// document id, owner id, position and text in the payload.
type QdrantStore struct {
	client     qdrantAPI
	collection string
	cfg        QdrantConfig
	logger     *zap.Logger
}

// NewQdrantStore dials Qdrant. Call EnsureCollection before first use.
func NewQdrantStore(cfg QdrantConfig, logger *zap.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Port == 0 {
		cfg.Port = defaultQdrantPort
	}
	if !cfg.UseTLS {
		logger.Warn("qdrant gRPC is using plaintext, TLS disabled")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		UseTLS: cfg.UseTLS,
		APIKey: cfg.APIKey,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(maxGRPCMessage),
				grpc.MaxCallSendMsgSize(maxGRPCMessage),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return newQdrantStore(client, cfg, logger), nil
}

func newQdrantStore(client qdrantAPI, cfg QdrantConfig, logger *zap.Logger) *QdrantStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		cfg.Collection = "chunks"
	}
	return &QdrantStore{
		client:     client,
		collection: cfg.Collection,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *QdrantStore) Name() string { return BackendQdrant }

// EnsureCollection creates the cosine collection with the configured HNSW
// parameters and payload indexes when it does not exist yet.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", s.collection, err)
	}
	if exists {
		return nil
	}

	create := &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.cfg.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	}
	if s.cfg.HNSWM > 0 || s.cfg.HNSWEfConstruction > 0 {
		hnsw := &qdrant.HnswConfigDiff{}
		if s.cfg.HNSWM > 0 {
			hnsw.M = qdrant.PtrOf(uint64(s.cfg.HNSWM))
		}
		if s.cfg.HNSWEfConstruction > 0 {
			hnsw.EfConstruct = qdrant.PtrOf(uint64(s.cfg.HNSWEfConstruction))
		}
		create.HnswConfig = hnsw
	}
	if err := s.client.CreateCollection(ctx, create); err != nil {
		return fmt.Errorf("creating collection %s: %w", s.collection, err)
	}

	for _, field := range []string{metaDocumentID, metaOwnerID} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeInteger.Enum(),
			Wait:           qdrant.PtrOf(true),
		})
		if err != nil {
			return fmt.Errorf("indexing payload field %s: %w", field, err)
		}
	}

	s.logger.Info("created qdrant collection",
		zap.String("collection", s.collection),
		zap.Int("dimension", s.cfg.Dimension),
		zap.Int("hnsw_m", s.cfg.HNSWM),
		zap.Int("hnsw_ef_construct", s.cfg.HNSWEfConstruction),
	)
	return nil
}

// Upsert writes all chunks in one request and waits for it to be applied.
func (s *QdrantStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i], s.cfg.Dimension); err != nil {
			return err
		}
		points[i] = toPoint(chunks[i])
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// ReplaceDocumentChunks deletes the document's points, then upserts chunks.
// Qdrant has no multi-request transaction, so a failed upsert leaves the
// document without chunks until it is re-ingested.
func (s *QdrantStore) ReplaceDocumentChunks(ctx context.Context, documentID int64, chunks []domain.Chunk) error {
	for i := range chunks {
		if err := domain.ValidateChunk(&chunks[i], s.cfg.Dimension); err != nil {
			return err
		}
		if chunks[i].DocumentID != documentID {
			return domain.NewDomainError(domain.ErrCodeValidation, "chunk belongs to a different document")
		}
	}
	if err := s.DeleteByDocument(ctx, documentID); err != nil {
		return err
	}
	return s.Upsert(ctx, chunks)
}

func (s *QdrantStore) QuerySimilarChunks(ctx context.Context, query []float32, k int, filter domain.ChunkFilter) ([]domain.SimilarityHit, error) {
	if err := domain.ValidateResultCount(k); err != nil {
		return nil, err
	}
	if s.cfg.Dimension > 0 && len(query) != s.cfg.Dimension {
		return nil, domain.ErrDimensionMismatch
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(query...),
		Filter:         buildFilter(filter),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	hits := make([]domain.SimilarityHit, 0, len(points))
	for _, p := range points {
		payload := p.GetPayload()
		hits = append(hits, domain.SimilarityHit{
			ChunkID:    p.GetId().GetUuid(),
			DocumentID: payload[metaDocumentID].GetIntegerValue(),
			Text:       payload[payloadText].GetStringValue(),
			Distance:   1 - float64(p.GetScore()),
		})
	}
	SortHits(hits)
	return hits, nil
}

func (s *QdrantStore) QuerySimilarDocuments(ctx context.Context, query []float32, chunksToConsider, topKDocs int, filter domain.ChunkFilter) ([]domain.DocumentRank, error) {
	if err := domain.ValidateResultCount(topKDocs); err != nil {
		return nil, err
	}
	hits, err := s.QuerySimilarChunks(ctx, query, chunksToConsider, filter)
	if err != nil {
		return nil, err
	}
	return AggregateDocuments(hits, topKDocs), nil
}

func (s *QdrantStore) DeleteByDocument(ctx context.Context, documentID int64) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{matchInteger(metaDocumentID, documentID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting points of document %d: %w", documentID, err)
	}
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func toPoint(c domain.Chunk) *qdrant.PointStruct {
	payload := map[string]*qdrant.Value{
		metaDocumentID: {Kind: &qdrant.Value_IntegerValue{IntegerValue: c.DocumentID}},
		metaChunkIndex: {Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(c.ChunkIndex)}},
		payloadText:    {Kind: &qdrant.Value_StringValue{StringValue: c.Text}},
	}
	if c.OwnerID != nil {
		payload[metaOwnerID] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: *c.OwnerID}}
	}
	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(c.ID),
		Vectors: qdrant.NewVectors(c.Embedding...),
		Payload: payload,
	}
}

func buildFilter(filter domain.ChunkFilter) *qdrant.Filter {
	var must []*qdrant.Condition
	if filter.OwnerID != nil {
		must = append(must, matchInteger(metaOwnerID, *filter.OwnerID))
	}
	if len(filter.DocumentIDs) > 0 {
		must = append(must, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: metaDocumentID,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Integers{
							Integers: &qdrant.RepeatedIntegers{Integers: uniqueIDs(filter.DocumentIDs)},
						},
					},
				},
			},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func matchInteger(key string, value int64) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: value}},
			},
		},
	}
}
