package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/jackc/pgx/v5"
)

const postColumns = `id, user_id, title, description, image_url, category::text, country, city,
	credits_cost, expires_at, created_at, updated_at`

// postRepo implements domain.PostRepository using Postgres.
type postRepo struct {
	q querier
}

func (r *postRepo) Insert(ctx context.Context, post *domain.Post, now time.Time) error {
	now = pgTime(now)
	expiresAt := now.Add(domain.PostLifetime)
	err := r.q.QueryRow(ctx,
		`INSERT INTO posts (user_id, title, description, image_url, category, country, city,
		 credits_cost, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5::text::post_category, $6, $7, $8, $9, $10, $10)
		 RETURNING id`,
		post.UserID, post.Title, post.Description, post.ImageURL, string(post.Category),
		post.Country, post.City, post.CreditsCost, expiresAt, now,
	).Scan(&post.ID)
	if err != nil {
		switch pgErrorCode(err) {
		case codeCheckViolation, codeInvalidEnum:
			return domain.ErrInvalidInput
		}
		return domain.NewStoreError("insert post", err)
	}

	post.ExpiresAt = expiresAt
	post.CreatedAt = now
	post.UpdatedAt = now
	return nil
}

func (r *postRepo) GetByID(ctx context.Context, id int64) (*domain.Post, error) {
	rows, err := r.q.Query(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	if err != nil {
		return nil, domain.NewStoreError("get post", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPost)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStoreError("get post", err)
	}
	return &p, nil
}

func (r *postRepo) Query(ctx context.Context, filter domain.PostFilter, page domain.Page, now time.Time) ([]domain.Post, error) {
	where := []string{"expires_at > $1"}
	args := []any{pgTime(now)}
	add := func(clause string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.Category != "" {
		add("category::text = $%d", string(filter.Category))
	}
	if filter.Country != "" {
		add("country = $%d", filter.Country)
	}
	if filter.City != "" {
		add("city = $%d", filter.City)
	}
	args = append(args, page.Limit, page.Offset)

	query := fmt.Sprintf(`SELECT %s FROM posts WHERE %s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		postColumns, strings.Join(where, " AND "), len(args)-1, len(args))
	return r.list(ctx, "query posts", query, args...)
}

func (r *postRepo) ListByUser(ctx context.Context, userID int64, includeExpired bool, now time.Time) ([]domain.Post, error) {
	if includeExpired {
		return r.list(ctx, "list user posts",
			`SELECT `+postColumns+` FROM posts WHERE user_id = $1
			 ORDER BY created_at DESC, id DESC`, userID)
	}
	return r.list(ctx, "list user posts",
		`SELECT `+postColumns+` FROM posts WHERE user_id = $1 AND expires_at > $2
		 ORDER BY created_at DESC, id DESC`, userID, pgTime(now))
}

func (r *postRepo) RecentByUser(ctx context.Context, userID int64, limit int) ([]domain.Post, error) {
	return r.list(ctx, "list recent posts",
		`SELECT `+postColumns+` FROM posts WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC LIMIT $2`, userID, limit)
}

func (r *postRepo) StatsByUser(ctx context.Context, userID int64, now time.Time) (domain.UserPostStats, error) {
	var (
		stats           domain.UserPostStats
		active, expired int64
	)
	err := r.q.QueryRow(ctx,
		`SELECT
		   COUNT(*) FILTER (WHERE expires_at > $2),
		   COUNT(*) FILTER (WHERE expires_at <= $2),
		   COALESCE(SUM(credits_cost), 0)::BIGINT
		 FROM posts WHERE user_id = $1`, userID, pgTime(now),
	).Scan(&active, &expired, &stats.CreditsSpent)
	if err != nil {
		return domain.UserPostStats{}, domain.NewStoreError("user post stats", err)
	}
	stats.Active = int(active)
	stats.Expired = int(expired)
	return stats, nil
}

func (r *postRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.q.Exec(ctx, "DELETE FROM posts WHERE expires_at <= $1", pgTime(now))
	if err != nil {
		return 0, domain.NewStoreError("delete expired posts", err)
	}
	return tag.RowsAffected(), nil
}

func (r *postRepo) Facets(ctx context.Context, now time.Time) (*domain.Facets, error) {
	rows, err := r.q.Query(ctx,
		`SELECT country, city, COUNT(*), MIN(expires_at)
		 FROM posts WHERE expires_at > $1
		 GROUP BY country, city`, pgTime(now))
	if err != nil {
		return nil, domain.NewStoreError("aggregate facets", err)
	}

	groups, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LocationCount, error) {
		var (
			g     domain.LocationCount
			posts int64
		)
		if err := row.Scan(&g.Country, &g.City, &posts, &g.NextExpiry); err != nil {
			return g, err
		}
		g.Posts = int(posts)
		g.NextExpiry = g.NextExpiry.UTC()
		return g, nil
	})
	if err != nil {
		return nil, domain.NewStoreError("scan facet groups", err)
	}
	return domain.AggregateFacets(groups), nil
}

func (r *postRepo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*) FROM posts").Scan(&n); err != nil {
		return 0, domain.NewStoreError("count posts", err)
	}
	return int(n), nil
}

func (r *postRepo) list(ctx context.Context, op, query string, args ...any) ([]domain.Post, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStoreError(op, err)
	}
	posts, err := pgx.CollectRows(rows, scanPost)
	if err != nil {
		return nil, domain.NewStoreError(op, err)
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

func scanPost(row pgx.CollectableRow) (domain.Post, error) {
	var (
		p        domain.Post
		category string
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.ImageURL, &category,
		&p.Country, &p.City, &p.CreditsCost, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return p, err
	}
	p.Category = domain.Category(category)
	p.ExpiresAt = p.ExpiresAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
