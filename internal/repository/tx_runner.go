package repository

import (
	"context"

	"github.com/cloo-solutions/docrag/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxRunner provides transactional repositories using a pgx pool.
type TxRunner struct {
	pool      *pgxpool.Pool
	dimension int
}

func NewTxRunner(pool *pgxpool.Pool, dimension int) *TxRunner {
	return &TxRunner{pool: pool, dimension: dimension}
}

func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}

	repos := &txRepos{tx: tx, dimension: r.dimension}
	if err := fn(repos); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	return tx.Commit(ctx)
}

type txRepos struct {
	tx        pgx.Tx
	dimension int
}

func (r *txRepos) Documents() service.DocumentRepository {
	return NewDocumentRepositoryWithTx(r.tx)
}

func (r *txRepos) Chunks() service.VectorStore {
	return NewChunkRepositoryWithTx(r.tx, r.dimension)
}
