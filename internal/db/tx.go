package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager owns transaction boundaries. Code running inside
// WithinTransaction never commits or rolls back on its own.
type TxManager struct {
	pool *pgxpool.Pool
}

func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// WithinTransaction runs fn inside one transaction. It commits when fn
// returns nil and rolls back on error or panic. After-commit hooks registered
// on the Tx run only once the commit succeeded.
func (m *TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	if m == nil || m.pool == nil {
		return fmt.Errorf("transaction manager not configured")
	}

	pgxTx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &Tx{tx: pgxTx}

	defer func() {
		if p := recover(); p != nil {
			_ = pgxTx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := pgxTx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback transaction: %w", rbErr))
		}
		return err
	}

	if err := pgxTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	tx.runAfterCommit(context.WithoutCancel(ctx))
	return nil
}

// Tx is the transaction handle given to webhook handlers.
type Tx struct {
	tx          pgx.Tx
	afterCommit []func(ctx context.Context)
}

// AfterCommit registers fn to run after a successful commit. Hooks are
// dropped when the transaction rolls back.
func (t *Tx) AfterCommit(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	t.afterCommit = append(t.afterCommit, fn)
}

func (t *Tx) runAfterCommit(ctx context.Context) {
	for _, fn := range t.afterCommit {
		fn(ctx)
	}
	t.afterCommit = nil
}
