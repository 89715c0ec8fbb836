package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/jackc/pgx/v5"
)

// ledgerRepo implements domain.AccountLedger over the users table.
type ledgerRepo struct {
	q querier
}

func (r *ledgerRepo) GetBalance(ctx context.Context, userID int64) (int64, error) {
	var credits int64
	err := r.q.QueryRow(ctx, `SELECT credits FROM users WHERE id = $1`, userID).Scan(&credits)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, domain.NewStoreError("query balance", err)
	}
	return credits, nil
}

// Debit re-evaluates the WHERE clause against the locked row, so concurrent
// debits queue on the row lock instead of reading a stale balance.
func (r *ledgerRepo) Debit(ctx context.Context, userID, amount int64, now time.Time) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: debit amount must be positive", domain.ErrInvalidInput)
	}

	var balance int64
	err := r.q.QueryRow(ctx,
		`UPDATE users SET credits = credits - $1, updated_at = $2
		 WHERE id = $3 AND credits >= $1
		 RETURNING credits`,
		amount, pgTime(now), userID,
	).Scan(&balance)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.NewStoreError("debit credits", err)
	}

	if _, err := r.GetBalance(ctx, userID); err != nil {
		return 0, err
	}
	return 0, domain.ErrInsufficientCredits
}

func (r *ledgerRepo) SetBalance(ctx context.Context, userID, credits int64, now time.Time) (*domain.User, error) {
	if credits < 0 {
		return nil, fmt.Errorf("%w: credits must be non-negative", domain.ErrInvalidInput)
	}

	user, err := scanUser(r.q.QueryRow(ctx,
		`UPDATE users SET credits = $1, updated_at = $2 WHERE id = $3
		 RETURNING `+userColumns,
		credits, pgTime(now), userID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("set balance", err)
	}
	return user, nil
}
