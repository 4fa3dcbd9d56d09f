package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/logging"
	"github.com/cloo-solutions/docrag/internal/metrics"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// IngestServiceConfig carries the collaborators of IngestService. Storage
// is optional.
type IngestServiceConfig struct {
	Parser   *ParseService
	Chunker  *Chunker
	Embedder Embedder
	Docs     DocumentRepository
	Vectors  VectorStore
	TxRunner TxRunner
	Storage  ObjectStorage
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	// SharedTx writes chunks through the transaction that creates the
	// document row. Only valid when Vectors lives in the same database.
	SharedTx bool
}

type IngestInput struct {
	OwnerID *int64
	Title   string
	File    Upload
}

type IngestOutput struct {
	DocumentID int64 `json:"document_id"`
	ChunkCount int   `json:"chunk_count"`
}

// IngestService turns an upload into a stored document with embedded
// chunks.
type IngestService struct {
	parser   *ParseService
	chunker  *Chunker
	embedder Embedder
	docs     DocumentRepository
	vectors  VectorStore
	txRunner TxRunner
	storage  ObjectStorage
	sharedTx bool
	uuidGen  UUIDGenerator
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewIngestService(cfg IngestServiceConfig) *IngestService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IngestService{
		parser:   cfg.Parser,
		chunker:  cfg.Chunker,
		embedder: cfg.Embedder,
		docs:     cfg.Docs,
		vectors:  cfg.Vectors,
		txRunner: cfg.TxRunner,
		storage:  cfg.Storage,
		sharedTx: cfg.SharedTx,
		uuidGen:  &DefaultUUIDGenerator{},
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// NewIngestServiceWithUUIDGen creates an IngestService with a custom UUID generator (for testing)
func NewIngestServiceWithUUIDGen(cfg IngestServiceConfig, uuidGen UUIDGenerator) *IngestService {
	s := NewIngestService(cfg)
	s.uuidGen = uuidGen
	return s
}

// Ingest parses, chunks and embeds the upload, then stores the document and
// its chunks. Nothing is stored when parsing or embedding fails.
func (s *IngestService) Ingest(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		title = input.File.FileName
	}
	doc := &domain.Document{OwnerID: input.OwnerID, Title: title}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}

	ctx, span := telemetry.StartSpan(ctx, "IngestService.Ingest", telemetry.SpanAttributes{
		OwnerID:     input.OwnerID,
		ContentType: input.File.ContentType,
		Backend:     s.vectors.Name(),
		Operation:   "ingest",
	})
	defer span.End()

	chunks, err := s.prepareChunks(ctx, input.OwnerID, input.File)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Documents().Create(ctx, doc); err != nil {
			return err
		}
		assignDocument(chunks, doc.ID)
		if s.sharedTx {
			return repos.Chunks().Upsert(ctx, chunks)
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	if !s.sharedTx {
		if err := s.vectors.Upsert(ctx, chunks); err != nil {
			if delErr := s.docs.Delete(ctx, doc.ID); delErr != nil {
				s.logger.Error("failed to remove document after vector upsert failure",
					zap.Int64("document_id", doc.ID),
					zap.Error(delErr),
				)
			}
			span.SetError(err)
			return nil, fmt.Errorf("upsert chunks: %w", err)
		}
	}

	s.archive(ctx, doc.ID, input.File)
	s.metrics.AddChunks(len(chunks))

	s.logger.With(logging.ContextFields(ctx)...).Info("document ingested",
		zap.Int64("document_id", doc.ID),
		zap.String("file_name", input.File.FileName),
		zap.Int("chunks", len(chunks)),
		zap.String("backend", s.vectors.Name()),
	)
	return &IngestOutput{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}

// Reingest replaces all chunks of an existing document with those of a new
// upload.
func (s *IngestService) Reingest(ctx context.Context, ownerID *int64, documentID int64, file Upload) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestService.Reingest", telemetry.SpanAttributes{
		OwnerID:     ownerID,
		DocumentID:  documentID,
		ContentType: file.ContentType,
		Backend:     s.vectors.Name(),
		Operation:   "reingest",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.OwnedBy(ownerID) {
		return nil, domain.ErrDocumentNotFound
	}

	chunks, err := s.prepareChunks(ctx, doc.OwnerID, file)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	assignDocument(chunks, doc.ID)

	if err := s.vectors.ReplaceDocumentChunks(ctx, doc.ID, chunks); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("replace chunks: %w", err)
	}

	if s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, documentPrefix(doc.ID)); err != nil {
			s.logger.Warn("failed to clear previous original", zap.Int64("document_id", doc.ID), zap.Error(err))
		}
	}
	s.archive(ctx, doc.ID, file)
	s.metrics.AddChunks(len(chunks))

	s.logger.With(logging.ContextFields(ctx)...).Info("document reingested",
		zap.Int64("document_id", doc.ID),
		zap.String("file_name", file.FileName),
		zap.Int("chunks", len(chunks)),
	)
	return &IngestOutput{DocumentID: doc.ID, ChunkCount: len(chunks)}, nil
}

// prepareChunks extracts, chunks and embeds the upload. The returned chunks
// have ids, positions and embeddings but no document id yet.
func (s *IngestService) prepareChunks(ctx context.Context, ownerID *int64, file Upload) ([]domain.Chunk, error) {
	res, err := s.parser.Extract(ctx, file)
	if err != nil {
		return nil, err
	}

	texts := s.chunker.Chunk(res.Text)
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(texts) {
		return nil, domain.ErrMismatchedChunkLists
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ID:         s.uuidGen.NewString(),
			OwnerID:    ownerID,
			ChunkIndex: i,
			Text:       text,
			Embedding:  embeddings[i],
		}
	}
	return chunks, nil
}

// archive stores the original bytes. Failures are logged and do not fail
// the ingest.
func (s *IngestService) archive(ctx context.Context, documentID int64, file Upload) {
	if s.storage == nil || file.Open == nil {
		return
	}
	body, err := file.Open()
	if err != nil {
		s.logger.Warn("failed to reopen upload for archiving", zap.Int64("document_id", documentID), zap.Error(err))
		return
	}
	defer body.Close()

	name := path.Base(file.FileName)
	if name == "." || name == "/" {
		name = "original"
	}
	key := documentPrefix(documentID) + name
	if err := s.storage.PutObject(ctx, key, body, file.ContentType); err != nil {
		s.logger.Warn("failed to archive original",
			zap.Int64("document_id", documentID),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func assignDocument(chunks []domain.Chunk, documentID int64) {
	for i := range chunks {
		chunks[i].DocumentID = documentID
	}
}
