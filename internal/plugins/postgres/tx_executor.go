package postgres

import (
	"context"
	"database/sql"

	"opsdeck/internal/core/services"
)

type execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// GetExecutor returns the context transaction when the TxManager opened one,
// falling back to the pool.
func GetExecutor(ctx context.Context, db *sql.DB) execer {
	if tx, ok := services.TxFrom(ctx); ok {
		return tx
	}
	return db
}
