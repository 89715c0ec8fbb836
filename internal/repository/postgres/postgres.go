// Package postgres is the Postgres-backed store, selected when DATABASE_URL
// is a postgres:// URL.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLockID serialises concurrent Migrate calls across processes.
const migrationLockID = 7224001

// DB wraps a pgx connection pool.
type DB struct {
	Pool *pgxpool.Pool
}

var (
	_ domain.Database   = (*DB)(nil)
	_ domain.Transactor = (*DB)(nil)
)

// New connects to the database at dsn and verifies the connection.
func New(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns < 10 {
		cfg.MaxConns = 10
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases every pooled connection.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

func (db *DB) Users() domain.UserRepository { return &userRepo{q: db.Pool} }
func (db *DB) Ledger() domain.AccountLedger { return &ledgerRepo{q: db.Pool} }
func (db *DB) Posts() domain.PostRepository { return &postRepo{q: db.Pool} }

// WithinTx runs fn inside a READ COMMITTED transaction. Row locks taken by the
// conditional debit keep concurrent spends on the same user serialised.
func (db *DB) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.NewStoreError("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(txStore{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewStoreError("commit", err)
	}
	return nil
}

// Migrate applies the embedded migrations under a session advisory lock.
func (db *DB) Migrate(ctx context.Context) error {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("take migration lock: %w", err)
	}
	defer conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID)

	if _, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename   TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migration files: %w", err)
	}
	sort.Strings(files)

	for _, path := range files {
		var applied bool
		if err := conn.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)", path,
		).Scan(&applied); err != nil {
			return fmt.Errorf("check migration %s: %w", path, err)
		}
		if applied {
			slog.Debug("migration already applied", "file", path)
			continue
		}

		content, err := migrationFS.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", path, err)
		}

		err = pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("execute sql: %w", err)
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (filename) VALUES ($1)", path)
			return err
		})
		if err != nil {
			return fmt.Errorf("apply migration %s: %w", path, err)
		}
		slog.Info("migration applied", "file", path)
	}
	return nil
}

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txStore struct {
	q querier
}

func (s txStore) Users() domain.UserRepository { return &userRepo{q: s.q} }
func (s txStore) Ledger() domain.AccountLedger { return &ledgerRepo{q: s.q} }
func (s txStore) Posts() domain.PostRepository { return &postRepo{q: s.q} }

// Postgres keeps microseconds; rounding up front keeps returned structs equal
// to what a later read yields.
func pgTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

const (
	codeUniqueViolation = "23505"
	codeCheckViolation  = "23514"
	codeInvalidEnum     = "22P02"
)

func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
