// Package sqlite is the SQLite launchpad store, built on grove's sqlitedriver
// (pure Go, modernc.org/sqlite underneath).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/launchpad"
	"github.com/xraph/launchpad/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// conn is satisfied by both *sqlitedriver.SqliteDB and *sqlitedriver.SqliteTx.
type conn interface {
	NewSelect(model ...any) *sqlitedriver.SelectQuery
	NewInsert(model any) *sqlitedriver.InsertQuery
	NewUpdate(model any) *sqlitedriver.UpdateQuery
	NewDelete(model any) *sqlitedriver.DeleteQuery
}

// Store implements store.Store using grove ORM with SQLite.
type Store struct {
	db     *grove.DB
	sdb    *sqlitedriver.SqliteDB
	closed atomic.Bool
}

// Open opens (or creates) the database file at path. Use ":memory:" for a
// private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	sdb := sqlitedriver.New()
	// One connection: SQLite serializes writers anyway, and an in-memory
	// database exists only on the connection that created it.
	if err := sdb.Open(ctx, path, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("launchpad/sqlite: open %s: %w", path, err)
	}
	if _, err := sdb.Exec(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("launchpad/sqlite: busy timeout: %w", err)
	}

	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("launchpad/sqlite: %w", err)
	}
	return New(db), nil
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
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
		return fmt.Errorf("launchpad/sqlite: migration failed: %w", err)
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
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return nil, fmt.Errorf("launchpad/sqlite: create migration executor: %w", err)
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

// Close closes the database connection.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.db.Close()
}

type txKey struct{ s *Store }

func (s *Store) tx(ctx context.Context) *sqlitedriver.SqliteTx {
	tx, _ := ctx.Value(txKey{s}).(*sqlitedriver.SqliteTx)
	return tx
}

// q returns the transaction carried by ctx, or the database.
func (s *Store) q(ctx context.Context) conn {
	if tx := s.tx(ctx); tx != nil {
		return tx
	}
	return s.sdb
}

// RunInTx runs fn in a transaction, joining the one already carried by ctx.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if s.tx(ctx) != nil {
		return fn(ctx)
	}
	if s.closed.Load() {
		return launchpad.ErrStoreClosed
	}

	tx, err := s.sdb.BeginTxQuery(ctx, nil)
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
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
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
	return fmt.Errorf("launchpad/sqlite: %s: %w", op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// page applies offset and limit; a limit <= 0 means no limit. SQLite only
// accepts OFFSET after a LIMIT.
func page(q *sqlitedriver.SelectQuery, offset, limit int) *sqlitedriver.SelectQuery {
	if limit <= 0 && offset > 0 {
		limit = math.MaxInt64
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

// upsert overwrites cols when the keys already exist.
func upsert(q *sqlitedriver.InsertQuery, keys string, cols ...string) *sqlitedriver.InsertQuery {
	q = q.OnConflict("(" + keys + ") DO UPDATE")
	for _, c := range cols {
		q = q.Set(c + " = EXCLUDED." + c)
	}
	return q
}
