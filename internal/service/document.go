package service

import (
	"context"
	"io"
	"strconv"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
	"github.com/cloo-solutions/docrag/internal/telemetry"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// DocumentRepository defines the persistence interface for document metadata
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	ListByOwnerWithCursor(ctx context.Context, ownerID *int64, cursor *pagination.Cursor, limit int) (*DocumentPageResult, error)
	UpdateTitle(ctx context.Context, id int64, title string) (*domain.Document, error)
	Delete(ctx context.Context, id int64) error
}

type DocumentPageResult struct {
	Items      []*domain.Document
	NextCursor string
	HasMore    bool
}

// ObjectStorage archives original uploads. It is optional everywhere it is
// accepted.
type ObjectStorage interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentType string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// documentPrefix is the object storage prefix holding a document's originals.
func documentPrefix(id int64) string {
	return "documents/" + strconv.FormatInt(id, 10) + "/"
}

type ListDocumentsInput struct {
	OwnerID *int64
	Cursor  string
	Limit   int
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// DocumentService handles document metadata. Documents owned by someone
// else are reported as not found.
type DocumentService struct {
	repo    DocumentRepository
	vectors VectorStore
	storage ObjectStorage
	logger  *zap.Logger
}

func NewDocumentService(repo DocumentRepository, vectors VectorStore, storage ObjectStorage, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		repo:    repo,
		vectors: vectors,
		storage: storage,
		logger:  logger,
	}
}

func (s *DocumentService) Create(ctx context.Context, ownerID *int64, title string) (*domain.Document, error) {
	doc := &domain.Document{OwnerID: ownerID, Title: title}
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) Get(ctx context.Context, ownerID *int64, id int64) (*domain.Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.OwnedBy(ownerID) {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, input ListDocumentsInput) (*ListDocumentsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	cursor, err := pagination.DecodeCursor(input.Cursor)
	if err != nil {
		return nil, domain.ErrInvalidCursor
	}

	page, err := s.repo.ListByOwnerWithCursor(ctx, input.OwnerID, cursor, limit)
	if err != nil {
		return nil, err
	}
	return &ListDocumentsOutput{
		Items:   page.Items,
		Cursor:  page.NextCursor,
		HasMore: page.HasMore,
	}, nil
}

func (s *DocumentService) UpdateTitle(ctx context.Context, ownerID *int64, id int64, title string) (*domain.Document, error) {
	if err := domain.ValidateTitle(title); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.repo.UpdateTitle(ctx, id, title)
}

// Delete removes the document row, its vectors and any archived original.
// Vector and storage cleanup failures are logged; the row is already gone.
func (s *DocumentService) Delete(ctx context.Context, ownerID *int64, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Delete", telemetry.SpanAttributes{
		OwnerID:    ownerID,
		DocumentID: id,
	})
	defer span.End()

	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		span.SetError(err)
		return err
	}

	if s.vectors != nil {
		if err := s.vectors.DeleteByDocument(ctx, id); err != nil {
			s.logger.Error("failed to delete document vectors",
				zap.Int64("document_id", id),
				zap.String("backend", s.vectors.Name()),
				zap.Error(err),
			)
		}
	}
	if s.storage != nil {
		if err := s.storage.DeletePrefix(ctx, documentPrefix(id)); err != nil {
			s.logger.Error("failed to delete archived original",
				zap.Int64("document_id", id),
				zap.Error(err),
			)
		}
	}
	return nil
}
