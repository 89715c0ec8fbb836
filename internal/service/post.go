package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

// RecentPostsLimit is how many posts the dashboard lists.
const RecentPostsLimit = 10

// Clock returns the current time. Every expiry decision goes through one.
type Clock func() time.Time

// PostService is the post lifecycle engine: it couples credit spending to post
// creation, classifies posts as active or expired, sweeps expired posts and
// derives dashboard and facet aggregates.
type PostService struct {
	store    domain.Transactor
	clock    Clock
	facets   domain.FacetCache
	facetTTL time.Duration
}

// NewPostService creates a new PostService. A nil clock means time.Now.
func NewPostService(store domain.Transactor, clock Clock) *PostService {
	if clock == nil {
		clock = time.Now
	}
	return &PostService{store: store, clock: clock}
}

// WithFacetCache enables caching of GetFacets results for at most ttl.
func (s *PostService) WithFacetCache(cache domain.FacetCache, ttl time.Duration) *PostService {
	s.facets = cache
	s.facetTTL = ttl
	return s
}

// Now reports the service clock in UTC.
func (s *PostService) Now() time.Time {
	return s.clock().UTC()
}

// CreatePost spends creditsCost from the user's balance and publishes the
// post. The debit and the insert share one transaction: either both are
// visible or neither is.
func (s *PostService) CreatePost(ctx context.Context, userID int64, in CreatePostInput) (*domain.Post, error) {
	post, err := validatePostInput(in)
	if err != nil {
		return nil, err
	}
	post.UserID = userID
	now := s.Now()

	err = s.store.WithinTx(ctx, func(tx domain.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("get user: %w", err)
		}
		if user.Credits < post.CreditsCost {
			return domain.ErrInsufficientCredits
		}

		if _, err := tx.Ledger().Debit(ctx, userID, post.CreditsCost, now); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("debit credits: %w", err)
		}

		if err := tx.Posts().Insert(ctx, post, now); err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("post created", "post_id", post.ID, "user_id", userID, "credits_cost", post.CreditsCost)
	s.invalidateFacets(ctx)
	return post, nil
}

// GetPosts lists active posts, newest first.
func (s *PostService) GetPosts(ctx context.Context, q PostQuery) ([]domain.Post, error) {
	filter, page, err := validatePostQuery(q)
	if err != nil {
		return nil, err
	}
	return s.store.Posts().Query(ctx, filter, page, s.Now())
}

// GetUserPosts lists a user's posts, newest first. An unknown user simply has
// no posts.
func (s *PostService) GetUserPosts(ctx context.Context, userID int64, includeExpired bool) ([]domain.Post, error) {
	return s.store.Posts().ListByUser(ctx, userID, includeExpired, s.Now())
}

// GetPostByID returns a visible post. Expired posts are reported as
// domain.ErrNotFound exactly like deleted ones.
func (s *PostService) GetPostByID(ctx context.Context, id int64) (*domain.Post, error) {
	post, err := s.store.Posts().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.ActiveAt(s.Now()) {
		return nil, domain.ErrNotFound
	}
	return post, nil
}

// GetUserDashboard reads the user, their post counts, lifetime spend and most
// recent posts from a single snapshot.
func (s *PostService) GetUserDashboard(ctx context.Context, userID int64) (*domain.Dashboard, error) {
	now := s.Now()
	var d domain.Dashboard

	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("get user: %w", err)
		}

		stats, err := tx.Posts().StatsByUser(ctx, userID, now)
		if err != nil {
			return fmt.Errorf("post stats: %w", err)
		}

		recent, err := tx.Posts().RecentByUser(ctx, userID, RecentPostsLimit)
		if err != nil {
			return fmt.Errorf("recent posts: %w", err)
		}

		d = domain.Dashboard{
			User:              user,
			ActivePostsCount:  stats.Active,
			ExpiredPostsCount: stats.Expired,
			TotalCreditsSpent: stats.CreditsSpent,
			RecentPosts:       recent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// SweepExpired deletes every post that has expired at now. Spent credits are
// not refunded.
func (s *PostService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.store.Posts().DeleteExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired posts: %w", err)
	}
	if n > 0 {
		slog.Info("expired posts swept", "deleted", n, "at", now)
		s.invalidateFacets(ctx)
	}
	return n, nil
}

// GetFacets returns the filter vocabulary of the active post set. It never
// fails: a store error degrades to the static categories with empty
// locations.
func (s *PostService) GetFacets(ctx context.Context) *domain.Facets {
	now := s.Now()

	cacheable := false
	var generation int64
	if s.facets != nil {
		cached, err := s.facets.Get(ctx)
		switch {
		case err == nil && (cached.NextExpiry.IsZero() || cached.NextExpiry.After(now)):
			return cached
		case err != nil && !errors.Is(err, domain.ErrNotFound):
			slog.Warn("facet cache read failed", "error", err)
		}

		// Read before aggregating: an Invalidate after this point turns the
		// Set below into a no-op.
		if generation, err = s.facets.Generation(ctx); err != nil {
			slog.Warn("facet cache generation read failed", "error", err)
		} else {
			cacheable = true
		}
	}

	f, err := s.store.Posts().Facets(ctx, now)
	if err != nil {
		slog.Error("aggregate facets", "error", err)
		return domain.AggregateFacets(nil)
	}

	if cacheable {
		ttl := s.facetTTL
		if !f.NextExpiry.IsZero() {
			ttl = min(ttl, f.NextExpiry.Sub(now))
		}
		if err := s.facets.Set(ctx, f, generation, ttl); err != nil {
			slog.Warn("facet cache write failed", "error", err)
		}
	}
	return f
}

func (s *PostService) invalidateFacets(ctx context.Context) {
	if s.facets == nil {
		return
	}
	if err := s.facets.Invalidate(ctx); err != nil {
		slog.Warn("facet cache invalidation failed", "error", err)
	}
}
