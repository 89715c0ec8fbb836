package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

// ledgerRepo implements domain.AccountLedger over the users table.
type ledgerRepo struct {
	q querier
}

func (r *ledgerRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var credits int64
	err := r.q.QueryRowContext(ctx, `SELECT credits FROM users WHERE id = ?`, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.NewStoreError("query balance", err)
	}
	return credits, nil
}

// Debit checks and decrements in a single conditional UPDATE, so two callers
// can never both spend the same credits.
func (r *ledgerRepo) Debit(ctx context.Context, userID, amount int64, now time.Time) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", domain.ErrInvalidInput)
	}

	var balance int64
	err := r.q.QueryRowContext(ctx,
		`UPDATE users SET credits = credits - ?, updated_at = ?
		 WHERE id = ? AND credits >= ?
		 RETURNING credits`,
		amount, toNanos(now), userID, amount,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, domain.NewStoreError("debit credits", err)
	}

	// No row matched: either the user is missing or the balance is too low.
	if _, err := r.GetBalance(ctx, userID); err != nil {
		return 0, err
	}
	return 0, domain.ErrInsufficientCredits
}

func (r *ledgerRepo) SetBalance(ctx context.Context, userID, credits int64, now time.Time) (*domain.User, error) {
	if credits < 0 {
		return nil, fmt.Errorf("%w: credits must be non-negative", domain.ErrInvalidInput)
	}

	row := r.q.QueryRowContext(ctx,
		`UPDATE users SET credits = ?, updated_at = ? WHERE id = ?
		 RETURNING `+userColumns,
		credits, toNanos(now), userID,
	)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("set balance", err)
	}
	return user, nil
}
