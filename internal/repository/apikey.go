package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/docrag/internal/domain"
	"github.com/cloo-solutions/docrag/internal/pagination"
	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAPIKeyPageSize = 20

// apiKeyColumns is in domain.APIKey field order so rows scan by position.
const apiKeyColumns = `id, owner_id, name, key_hash, created_at, revoked_at`

// pgUniqueViolation is the SQLSTATE for a unique constraint failure.
const pgUniqueViolation = "23505"

type APIKeyRepository struct {
	pool *pgxpool.Pool
}

func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

func (r *APIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.OwnerID, key.Name, key.KeyHash, key.CreatedAt, key.RevokedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return domain.WithCause(domain.ErrAPIKeyAlreadyExists, err)
	}
	return err
}

func (r *APIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

// GetByHash finds the key a bearer token was issued as.
func (r *APIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	return r.getOne(ctx, `WHERE key_hash = $1`, hash)
}

func (r *APIKeyRepository) getOne(ctx context.Context, where string, arg any) (*domain.APIKey, error) {
	rows, _ := r.pool.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys `+where, arg)
	key, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[domain.APIKey])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAPIKeyNotFound
	}
	return key, err
}

// ListByOwnerWithCursor pages through an owner's keys, newest first. Revoked
// keys are included.
func (r *APIKeyRepository) ListByOwnerWithCursor(ctx context.Context, ownerID int64, cursor *pagination.Cursor, limit int) (*service.APIKeyPage, error) {
	if limit <= 0 {
		limit = defaultAPIKeyPageSize
	}

	args := pgx.NamedArgs{"owner": ownerID, "limit": limit + 1}
	after := ""
	if cursor != nil {
		after = `AND (created_at, id) < (@ts, @id)`
		args["ts"] = cursor.Timestamp
		args["id"] = cursor.LastID
	}

	rows, _ := r.pool.Query(ctx, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE owner_id = @owner `+after+`
		ORDER BY created_at DESC, id DESC
		LIMIT @limit`, args)
	keys, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[domain.APIKey])
	if err != nil {
		return nil, err
	}

	page := &service.APIKeyPage{Items: keys}
	if len(keys) > limit {
		page.Items = keys[:limit]
		page.HasMore = true
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}
	return page, nil
}

// Revoke stamps revoked_at. Revoking twice reports ErrAPIKeyNotFound.
func (r *APIKeyRepository) Revoke(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPIKeyNotFound
	}
	return nil
}
