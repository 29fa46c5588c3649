// Package postgres is the PostgreSQL launchpad store, built on grove's
// pgdriver (pgx connection pool underneath).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// conn is satisfied by both *pgdriver.PgDB and *pgdriver.PgTx.
type conn interface {
	NewSelect(model ...any) *pgdriver.SelectQuery
	NewInsert(model any) *pgdriver.InsertQuery
	NewUpdate(model any) *pgdriver.UpdateQuery
	NewDelete(model any) *pgdriver.DeleteQuery
}

// Store implements store.Store using grove ORM with PostgreSQL.
type Store struct {
	db     *grove.DB
	pg     *pgdriver.PgDB
	closed atomic.Bool
}

// Open connects using a PostgreSQL URL or key=value DSN.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pg := pgdriver.New()
	if err := pg.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("launchpad/postgres: open: %w", err)
	}
	if err := pg.Ping(ctx); err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("launchpad/postgres: ping: %w", err)
	}

	db, err := grove.Open(pg)
	if err != nil {
		_ = pg.Close()
		return nil, fmt.Errorf("launchpad/postgres: %w", err)
	}
	return New(db), nil
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	orch, err := s.orchestrator()
	if err != nil {
		return err
	}
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("launchpad/postgres: migration failed: %w", err)
	}
	return nil
}

// MigrationStatus reports applied and pending migrations per group.
func (s *Store) MigrationStatus(ctx context.Context) ([]*migrate.GroupStatus, error) {
	orch, err := s.orchestrator()
	if err != nil {
		return nil, err
	}
	return orch.Status(ctx)
}

func (s *Store) orchestrator() (*migrate.Orchestrator, error) {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return nil, fmt.Errorf("launchpad/postgres: create migration executor: %w", err)
	}
	return migrate.NewOrchestrator(executor, Migrations), nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}
	return s.db.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

type txKey struct{ s *Store }

func (s *Store) tx(ctx context.Context) *pgdriver.PgTx {
	tx, _ := ctx.Value(txKey{s}).(*pgdriver.PgTx)
	return tx
}

// q returns the transaction carried by ctx, or the pool.
func (s *Store) q(ctx context.Context) conn {
	if tx := s.tx(ctx); tx != nil {
		return tx
	}
	return s.pg
}

// RunInTx runs fn in a transaction, joining the one already carried by ctx.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.tx(ctx) != nil {
		return fn(ctx)
	}
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}

	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return wrap("begin", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{s}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, wrap("rollback", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("commit", err)
	}
	return nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("launchpad/postgres: %s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// page applies offset and limit; a limit <= 0 means no limit.
func page(q *pgdriver.SelectQuery, offset, limit int) *pgdriver.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// upsert overwrites cols when the keys already exist.
func upsert(q *pgdriver.InsertQuery, keys string, cols ...string) *pgdriver.InsertQuery {
	q = q.OnConflict("(" + keys + ") DO UPDATE")
	for _, c := range cols {
		q = q.Set(c + " = EXCLUDED." + c)
	}
	return q
}
