package webhook

import (
	"context"

	"github.com/linkupapp/linkup/internal/db"
	"github.com/linkupapp/linkup/internal/ledger"
	"github.com/linkupapp/linkup/internal/services"
)

// EventTx is the transaction handle for one event: the handler's stores plus
// the ledger insert.
type EventTx interface {
	services.Tx
	ledger.Recorder
}

// Transactor opens the single transaction an event is processed in.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx EventTx) error) error
}

var _ EventTx = (*db.Tx)(nil)

// PostgresTransactor adapts db.TxManager to Transactor.
type PostgresTransactor struct {
	manager *db.TxManager
}

func NewPostgresTransactor(manager *db.TxManager) *PostgresTransactor {
	return &PostgresTransactor{manager: manager}
}

func (p *PostgresTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context, tx EventTx) error) error {
	return p.manager.WithinTransaction(ctx, func(ctx context.Context, tx *db.Tx) error {
		return fn(ctx, tx)
	})
}
