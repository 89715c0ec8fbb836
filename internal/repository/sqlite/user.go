package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

const userColumns = `id, email, password_hash, credits, is_admin, created_at, updated_at`

// userRepo implements domain.UserRepository using SQLite.
type userRepo struct {
	q querier
}

func (r *userRepo) Create(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO users (email, password_hash, credits, is_admin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		user.Email, user.PasswordHash, user.Credits, user.IsAdmin, toNanos(now), toNanos(now),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateEmail
		}
		if isCheckConstraintError(err) {
			return domain.ErrInvalidInput
		}
		return domain.NewStoreError("insert user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.NewStoreError("get last insert id", err)
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("query user by id", err)
	}
	return user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("query user by email", err)
	}
	return user, nil
}

func (r *userRepo) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?`,
		isAdmin, toNanos(time.Now()), id,
	)
	if err != nil {
		return domain.NewStoreError("update user admin flag", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return domain.NewStoreError("rows affected", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u                    domain.User
		createdAt, updatedAt int64
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Credits, &u.IsAdmin, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = fromNanos(createdAt)
	u.UpdatedAt = fromNanos(updatedAt)
	return &u, nil
}
