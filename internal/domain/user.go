package domain

import (
	"context"
	"time"
)

// InitialCredits is the balance every account starts with.
const InitialCredits = 10

// User represents a registered account and its credit balance.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Credits      int64
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create persists a new user. Credits and IsAdmin are taken from the
	// struct as given; ID and timestamps are assigned.
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
}

// AccountLedger is the sole authority for balance reads and writes.
type AccountLedger interface {
	GetBalance(ctx context.Context, userID int64) (int64, error)
	// Debit atomically checks and decrements the balance. It returns
	// ErrNotFound for an unknown user and ErrInsufficientCredits when amount
	// exceeds the current balance, leaving the balance untouched. now stamps
	// updated_at.
	Debit(ctx context.Context, userID, amount int64, now time.Time) (int64, error)
	// SetBalance overwrites the balance. Negative values are rejected with
	// ErrInvalidInput.
	SetBalance(ctx context.Context, userID, credits int64, now time.Time) (*User, error)
}
