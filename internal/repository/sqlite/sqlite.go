package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle and hands out repositories bound to it.
type DB struct {
	SqlDB *sql.DB
}

var (
	_ domain.Database   = (*DB)(nil)
	_ domain.Transactor = (*DB)(nil)
)

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement so posts cascade with their owner.
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if _, err := db.ExecContext(context.Background(), "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	// One connection: writers and transactions are serialised.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{SqlDB: db}, nil
}

// Migrate applies the embedded schema migrations.
func (db *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, db.SqlDB)
}

// Close releases the underlying handle.
func (db *DB) Close() error {
	return db.SqlDB.Close()
}

func (db *DB) Users() domain.UserRepository { return &userRepo{q: db.SqlDB} }
func (db *DB) Ledger() domain.AccountLedger { return &ledgerRepo{q: db.SqlDB} }
func (db *DB) Posts() domain.PostRepository { return &postRepo{q: db.SqlDB} }

// WithinTx runs fn against repositories bound to one transaction. The
// transaction commits only when fn returns nil.
func (db *DB) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	tx, err := db.SqlDB.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStoreError("begin tx", err)
	}
	defer tx.Rollback()

	if err := fn(txStore{q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStoreError("commit", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txStore struct {
	q querier
}

func (s txStore) Users() domain.UserRepository { return &userRepo{q: s.q} }
func (s txStore) Ledger() domain.AccountLedger { return &ledgerRepo{q: s.q} }
func (s txStore) Posts() domain.PostRepository { return &postRepo{q: s.q} }

// scanner is implemented by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Timestamps are stored as UTC unix nanoseconds so range comparisons and
// ordering happen on integers.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
