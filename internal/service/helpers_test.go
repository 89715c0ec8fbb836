package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/repository/sqlite"
	"github.com/appdotbuilder/golden-timeline/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

var t0 = time.Date(2026, time.May, 10, 9, 30, 0, 0, time.UTC)

// fakeClock is a manually advanced service.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlite.DB, email string, credits int64, isAdmin bool) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        email,
		PasswordHash: "not-a-real-hash",
		Credits:      credits,
		IsAdmin:      isAdmin,
	}
	if err := db.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func validInput(title string, cost int64) service.CreatePostInput {
	return service.CreatePostInput{
		Title:       title,
		Description: "A short description",
		ImageURL:    "https://example.com/a.jpg",
		Category:    "travel",
		Country:     "France",
		City:        "Paris",
		CreditsCost: cost,
	}
}

func balance(t *testing.T, db *sqlite.DB, userID int64) int64 {
	t.Helper()
	b, err := db.Ledger().GetBalance(context.Background(), userID)
	if err != nil {
		t.Fatalf("GetBalance(%d): %v", userID, err)
	}
	return b
}
