package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the querying surface shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool adds transaction scoping on top of DB.
type Pool interface {
	DB
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store wraps the connection pool and provides transaction scoping. All
// writes of a single transfer run inside one RunInTx call.
type Store struct {
	db Pool
}

func NewStore(db Pool) *Store {
	return &Store{db: db}
}

// DB returns the pool for non-transactional reads.
func (s *Store) DB() DB {
	return s.db
}

// RunInTx executes fn within a database transaction, rolling back on error
// or panic.
func (s *Store) RunInTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func requireExactlyOne(tag pgconn.CommandTag, operation string) error {
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("%s affected %d rows", operation, tag.RowsAffected())
	}
	return nil
}
