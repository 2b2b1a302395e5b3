package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// InsertProcessedEvent records eventID in the ledger under a savepoint so a
// failed insert leaves the surrounding transaction usable. Errors are
// classified: ErrDuplicateEvent for a unique violation, ErrLedgerUnavailable
// for a missing table or schema, anything else is returned wrapped.
func (t *Tx) InsertProcessedEvent(ctx context.Context, eventID, eventType string, receivedAt time.Time) error {
	savepoint, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open ledger savepoint: %w", err)
	}

	query := `
		INSERT INTO processed_webhook_events (event_id, event_type, received_at)
		VALUES ($1, $2, $3)
	`
	if _, err := savepoint.Exec(ctx, query, eventID, eventType, receivedAt); err != nil {
		if rbErr := savepoint.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback ledger savepoint: %w", rbErr))
		}
		switch {
		case isUniqueViolation(err):
			return fmt.Errorf("%w: %s", ErrDuplicateEvent, eventID)
		case isSchemaError(err):
			return fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		default:
			return fmt.Errorf("insert processed event: %w", err)
		}
	}

	if err := savepoint.Commit(ctx); err != nil {
		return fmt.Errorf("release ledger savepoint: %w", err)
	}
	return nil
}

// ProcessedEventStore performs ledger maintenance outside webhook requests.
type ProcessedEventStore struct {
	pool *pgxpool.Pool
}

func NewProcessedEventStore(pool *pgxpool.Pool) *ProcessedEventStore {
	return &ProcessedEventStore{pool: pool}
}

// Prune deletes ledger rows received before cutoff and returns how many
// were removed.
func (s *ProcessedEventStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM processed_webhook_events WHERE received_at < $1`
	cmdTag, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		if isSchemaError(err) {
			return 0, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
		}
		return 0, fmt.Errorf("prune processed events: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}
