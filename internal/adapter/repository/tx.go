package repository

import (
	"context"
	"fmt"

	"github.com/eslsoft/mistbook/internal/entity"
	"github.com/eslsoft/mistbook/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txManager struct {
	pool *pgxpool.Pool
}

// NewTxManager runs units of work inside a single pgx transaction, giving the
// multi-record writes of the lifecycle manager their all-or-nothing guarantee.
func NewTxManager(pool *pgxpool.Pool) repository.TxManager {
	return &txManager{pool: pool}
}

func (m *txManager) WithinTx(ctx context.Context, fn func(ctx context.Context, stores repository.Stores) error) error {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", entity.ErrCommitFailed, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	stores := repository.Stores{
		Cards:    NewCardRepository(tx),
		Attempts: NewAttemptRepository(tx),
		Sessions: NewSessionRepository(tx),
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %v", entity.ErrCommitFailed, err)
	}
	return nil
}
