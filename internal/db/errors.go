package db

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/linkupapp/linkup/internal/models"
)

var (
	// ErrDuplicateEvent means the processed-event ledger already holds the id.
	ErrDuplicateEvent = errors.New("webhook event already recorded")
	// ErrLedgerUnavailable means the ledger table or its schema is missing,
	// so uniqueness cannot be enforced at all.
	ErrLedgerUnavailable = errors.New("processed event ledger unavailable")
)

const (
	pgUniqueViolation   = "23505"
	pgUndefinedTable    = "42P01"
	pgUndefinedColumn   = "42703"
	pgInvalidSchemaName = "3F000"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isSchemaError(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgUndefinedTable, pgUndefinedColumn, pgInvalidSchemaName:
		return true
	default:
		return false
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	return err
}
