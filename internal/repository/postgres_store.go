package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-plt-approvals/internal/database"
)

// PostgresStore implements Store on top of pgx. A transaction-scoped copy
// shares the same query code through database.Querier.
type PostgresStore struct {
	db *database.DB // nil when transaction-scoped
	q  database.Querier
}

// NewPostgresStore creates a pool-backed store.
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db, q: db}
}

// InTransaction runs fn against a transaction-scoped store. Calling it on a
// store that is already transaction-scoped reuses the open transaction.
func (s *PostgresStore) InTransaction(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	return s.db.InTransaction(ctx, func(tx pgx.Tx) error {
		return fn(&PostgresStore{q: tx})
	})
}
