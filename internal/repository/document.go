package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const documentColumns = `id, owner_id, title, created_at`

type DocumentRepository struct {
	db dbtx
}

func NewDocumentRepository(pool *pgxpool.Pool) *DocumentRepository {
	return &DocumentRepository{db: pool}
}

func NewDocumentRepositoryWithTx(tx dbtx) *DocumentRepository {
	return &DocumentRepository{db: tx}
}

// Create inserts d and fills in its generated id and creation time.
func (r *DocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO documents (owner_id, title) VALUES ($1, $2) RETURNING id, created_at`,
		d.OwnerID, d.Title,
	).Scan(&d.ID, &d.CreatedAt)
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	var d domain.Document
	err := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`,
		id,
	).Scan(&d.ID, &d.OwnerID, &d.Title, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByOwnerWithCursor pages through an owner's documents, newest first.
// A nil owner lists documents without an owner.
func (r *DocumentRepository) ListByOwnerWithCursor(ctx context.Context, ownerID *int64, cursor *pagination.Cursor, limit int) (*service.DocumentPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		rows pgx.Rows
		err  error
	)
	if cursor != nil {
		lastID, convErr := cursor.Int64ID()
		if convErr != nil {
			return nil, domain.ErrInvalidCursor
		}
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE owner_id IS NOT DISTINCT FROM $1 AND (created_at, id) < ($2, $3)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $4`,
			ownerID, cursor.Timestamp, lastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+documentColumns+`
			 FROM documents
			 WHERE owner_id IS NOT DISTINCT FROM $1
			 ORDER BY created_at DESC, id DESC
			 LIMIT $2`,
			ownerID, limit+1,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		var d domain.Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Title, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(docs) > limit
	if hasMore {
		docs = docs[:limit]
	}

	var nextCursor string
	if hasMore && len(docs) > 0 {
		last := docs[len(docs)-1]
		nextCursor = pagination.EncodeInt64Cursor(last.ID, last.CreatedAt)
	}

	return &service.DocumentPageResult{
		Items:      docs,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *DocumentRepository) UpdateTitle(ctx context.Context, id int64, title string) (*domain.Document, error) {
	var d domain.Document
	err := r.db.QueryRow(ctx,
		`UPDATE documents SET title = $1 WHERE id = $2 RETURNING `+documentColumns,
		title, id,
	).Scan(&d.ID, &d.OwnerID, &d.Title, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Delete removes the document; its chunks are removed by the foreign key.
func (r *DocumentRepository) Delete(ctx context.Context, id int64) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}
