// Package sqlcgen contains hand-authored, sqlc-shaped query code: one
// generated-looking file per table, a DBTX interface satisfied by both
// *pgxpool.Pool and pgx.Tx, and a Queries wrapper that can be rebound to a
// transaction. None of this package knows about match semantics; it is the
// thinnest possible layer over pgx.
package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx, and pgx.Conn.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Queries is the generated-style query root. WithTx rebinds it onto an
// in-flight transaction so callers can compose multiple queries atomically.
type Queries struct {
	db DBTX
}

// New builds Queries bound to a pool or connection.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
