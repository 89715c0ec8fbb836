package domain

import "context"

// Database defines lifecycle operations for the underlying database.
// Each implementation (SQLite, Postgres) owns its own migration files and
// strategy, so the whole backend is swappable.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}

// Store groups the repositories the engine works against. A Store obtained
// inside WithinTx is bound to that transaction.
type Store interface {
	Users() UserRepository
	Ledger() AccountLedger
	Posts() PostRepository
}

// Transactor is a Store that can also open a transaction scope. Everything
// done through the Store passed to fn commits together or not at all; a non-nil
// error from fn rolls the transaction back.
type Transactor interface {
	Store
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
