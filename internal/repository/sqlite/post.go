package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

const postColumns = `id, user_id, title, description, image_url, category, country, city,
	credits_cost, expires_at, created_at, updated_at`

// postRepo implements domain.PostRepository using SQLite.
type postRepo struct {
	q querier
}

func (r *postRepo) Insert(ctx context.Context, post *domain.Post, now time.Time) error {
	now = now.UTC()
	expiresAt := now.Add(domain.PostLifetime)
	result, err := r.q.ExecContext(ctx,
		`INSERT INTO posts (user_id, title, description, image_url, category, country, city,
		 credits_cost, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.UserID, post.Title, post.Description, post.ImageURL, string(post.Category),
		post.Country, post.City, post.CreditsCost,
		toNanos(expiresAt), toNanos(now), toNanos(now),
	)
	if err != nil {
		if isCheckConstraintError(err) {
			return domain.ErrInvalidInput
		}
		return domain.NewStoreError("insert post", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.NewStoreError("get post id", err)
	}

	post.ID = id
	post.ExpiresAt = expiresAt
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	p, err := scanPost(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("get post", err)
	}
	return p, nil
}

func (r *postRepo) Query(ctx context.Context, filter domain.PostFilter, page domain.Page, now time.Time) ([]domain.Post, error) {
	where := []string{"expires_at > ?"}
	args := []any{toNanos(now)}
	if filter.Category != "" {
		where = append(where, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.Country != "" {
		where = append(where, "country = ?")
		args = append(args, filter.Country)
	}
	if filter.City != "" {
		where = append(where, "city = ?")
		args = append(args, filter.City)
	}
	args = append(args, page.Limit, page.Offset)

	rows, err := r.q.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE `+strings.Join(where, " AND ")+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, domain.NewStoreError("query posts", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *postRepo) ListByUser(ctx context.Context, userID int64, includeExpired bool, now time.Time) ([]domain.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts WHERE user_id = ?`
	args := []any{userID}
	if !includeExpired {
		query += ` AND expires_at > ?`
		args = append(args, toNanos(now))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError("list user posts", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *postRepo) RecentByUser(ctx context.Context, userID int64, limit int) ([]domain.Post, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE user_id = ?
		 ORDER BY created_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, domain.NewStoreError("list recent posts", err)
	}
	defer rows.Close()
	return scanPosts(rows)
}

func (r *postRepo) StatsByUser(ctx context.Context, userID int64, now time.Time) (domain.UserPostStats, error) {
	var stats domain.UserPostStats
	n := toNanos(now)
	err := r.q.QueryRowContext(ctx,
		`SELECT
		   COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(credits_cost), 0)
		 FROM posts WHERE user_id = ?`, n, n, userID,
	).Scan(&stats.Active, &stats.Expired, &stats.CreditsSpent)
	if err != nil {
		return domain.UserPostStats{}, domain.NewStoreError("user post stats", err)
	}
	return stats, nil
}

func (r *postRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.q.ExecContext(ctx, "DELETE FROM posts WHERE expires_at <= ?", toNanos(now))
	if err != nil {
		return 0, domain.NewStoreError("delete expired posts", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, domain.NewStoreError("rows affected", err)
	}
	return n, nil
}

func (r *postRepo) Facets(ctx context.Context, now time.Time) (*domain.Facets, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT country, city, COUNT(*), MIN(expires_at)
		 FROM posts WHERE expires_at > ?
		 GROUP BY country, city`, toNanos(now))
	if err != nil {
		return nil, domain.NewStoreError("aggregate facets", err)
	}
	defer rows.Close()

	var groups []domain.LocationCount
	for rows.Next() {
		var (
			g          domain.LocationCount
			nextExpiry int64
		)
		if err := rows.Scan(&g.Country, &g.City, &g.Posts, &nextExpiry); err != nil {
			return nil, domain.NewStoreError("scan facet group", err)
		}
		g.NextExpiry = fromNanos(nextExpiry)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate facet groups", err)
	}
	return domain.AggregateFacets(groups), nil
}

func (r *postRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM posts").Scan(&n); err != nil {
		return 0, domain.NewStoreError("count posts", err)
	}
	return n, nil
}

func scanPost(s scanner) (*domain.Post, error) {
	var (
		p                               domain.Post
		category                        string
		expiresAt, createdAt, updatedAt int64
	)
	if err := s.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.ImageURL, &category,
		&p.Country, &p.City, &p.CreditsCost, &expiresAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Category = domain.Category(category)
	p.ExpiresAt = fromNanos(expiresAt)
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return &p, nil
}

func scanPosts(rows *sql.Rows) ([]domain.Post, error) {
	posts := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, domain.NewStoreError("scan post", err)
		}
		posts = append(posts, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("iterate posts", err)
	}
	return posts, nil
}
