package sqlite_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/repository/sqlite"
)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlite.DB, email string, credits int64) *domain.User {
	t.Helper()
	user := &domain.User{Email: email, PasswordHash: "hash", Credits: credits}
	if err := db.Users().Create(context.Background(), user); err != nil {
		t.Fatalf("Create user %s: %v", email, err)
	}
	return user
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file was not created")
	}

	var fkEnabled int
	if err := db.SqlDB.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("check foreign_keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fkEnabled)
	}
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate (idempotent): %v", err)
	}

	var count int
	if err := db.SqlDB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		t.Fatalf("count schema_migrations: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 migration records, got %d", count)
	}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "tx@example.com", 10)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	boom := errors.New("boom")
	err := db.WithinTx(ctx, func(tx domain.Store) error {
		if _, err := tx.Ledger().Debit(ctx, user.ID, 4, fixedNow); err != nil {
			return err
		}
		post := &domain.Post{
			UserID: user.ID, Title: "t", Description: "d", ImageURL: "https://x.test/a.png",
			Category: domain.CategoryArt, Country: "France", City: "Paris", CreditsCost: 4,
		}
		if err := tx.Posts().Insert(ctx, post, now); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	balance, err := db.Ledger().GetBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 10 {
		t.Fatalf("expected balance restored to 10, got %d", balance)
	}
	n, err := db.Posts().Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no posts after rollback, got %d", n)
	}
}

func TestWithinTx_Commits(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "commit@example.com", 10)

	err := db.WithinTx(ctx, func(tx domain.Store) error {
		_, err := tx.Ledger().Debit(ctx, user.ID, 3, fixedNow)
		return err
	})
	if err != nil {
		t.Fatalf("WithinTx: %v", err)
	}

	balance, err := db.Ledger().GetBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if balance != 7 {
		t.Fatalf("expected 7, got %d", balance)
	}
}

func TestClosedDB_ReportsStoreUnavailable(t *testing.T) {
	db := newTestDB(t)
	db.Close()

	_, err := db.Users().GetByID(context.Background(), 1)
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
