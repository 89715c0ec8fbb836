package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, credits, is_admin, created_at, updated_at`

// userRepo implements domain.UserRepository using Postgres.
type userRepo struct {
	q querier
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	now := pgTime(time.Now())
	err := r.q.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, credits, is_admin, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $5)
		 RETURNING id`,
		user.Email, user.PasswordHash, user.Credits, user.IsAdmin, now,
	).Scan(&user.ID)
	if err != nil {
		switch pgErrorCode(err) {
		case codeUniqueViolation:
			return domain.ErrDuplicateEmail
		case codeCheckViolation:
			return domain.ErrInvalidInput
		}
		return domain.NewStoreError("insert user", err)
	}

	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, "query user by id", `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, "query user by email", `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *userRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	tag, err := r.q.Exec(ctx,
		`UPDATE users SET is_admin = $1, updated_at = $2 WHERE id = $3`,
		isAdmin, pgTime(time.Now()), id,
	)
	if err != nil {
		return domain.NewStoreError("update user admin flag", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepo) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	user, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError(op, err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Credits, &u.IsAdmin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return &u, nil
}
