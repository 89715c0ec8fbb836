package domain

import (
	"context"
	"fmt"
	"time"
)

// PostLifetime is how long a post stays active after creation.
const PostLifetime = 24 * time.Hour

// Category is the closed set of post categories.
type Category string

const (
	CategoryTravel        Category = "travel"
	CategoryFood          Category = "food"
	CategoryLifestyle     Category = "lifestyle"
	CategoryBusiness      Category = "business"
	CategoryCulture       Category = "culture"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryTechnology    Category = "technology"
	CategoryArt           Category = "art"
	CategoryOther         Category = "other"
)

var categories = []Category{
	CategoryTravel,
	CategoryFood,
	CategoryLifestyle,
	CategoryBusiness,
	CategoryCulture,
	CategoryEntertainment,
	CategorySports,
	CategoryTechnology,
	CategoryArt,
	CategoryOther,
}

// Categories returns every category in declaration order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	for _, known := range categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory converts s into a Category or fails with ErrInvalidInput.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
	}
	return c, nil
}

// Post is a credit-funded, time-limited publication.
type Post struct {
	ID          int64
	UserID      int64
	Title       string
	Description string
	ImageURL    string
	Category    Category
	Country     string
	City        string
	CreditsCost int64
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActiveAt reports whether the post is still visible at now. A post expiring
// exactly at now is expired.
func (p *Post) ActiveAt(now time.Time) bool {
	return p.ExpiresAt.After(now)
}

// PostFilter narrows a post listing. Empty fields match everything.
type PostFilter struct {
	Category Category
	Country  string
	City     string
}

// Page is a validated limit/offset pair.
type Page struct {
	Limit  int
	Offset int
}

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// UserPostStats summarises a user's stored posts at a point in time.
type UserPostStats struct {
	Active       int
	Expired      int
	CreditsSpent int64
}

// Location groups the distinct cities seen for a country.
type Location struct {
	Country string   `json:"country"`
	Cities  []string `json:"cities"`
}

// FacetStats counts the active post set.
type FacetStats struct {
	TotalPosts     int `json:"total_posts"`
	TotalCountries int `json:"total_countries"`
	TotalCities    int `json:"total_cities"`
}

// Facets is the filter vocabulary derived from active posts.
type Facets struct {
	Categories []Category `json:"categories"`
	Countries  []string   `json:"countries"`
	Cities     []string   `json:"cities"`
	Locations  []Location `json:"locations"`
	Stats      FacetStats `json:"stats"`
	// NextExpiry is the earliest expires_at among the posts counted, zero
	// when there are none. It bounds how long the facets stay accurate.
	NextExpiry time.Time `json:"next_expiry"`
}

// Dashboard is the per-user overview.
type Dashboard struct {
	User              *User
	ActivePostsCount  int
	ExpiredPostsCount int
	TotalCreditsSpent int64
	RecentPosts       []Post
}

// PostRepository handles post persistence. Time-sensitive queries take the
// evaluation instant explicitly.
type PostRepository interface {
	// Insert persists post with CreatedAt = UpdatedAt = now and
	// ExpiresAt = now + PostLifetime, assigning ID.
	Insert(ctx context.Context, post *Post, now time.Time) error
	// GetByID returns the raw record regardless of expiry.
	GetByID(ctx context.Context, id int64) (*Post, error)
	// Query returns active posts newest first.
	Query(ctx context.Context, filter PostFilter, page Page, now time.Time) ([]Post, error)
	ListByUser(ctx context.Context, userID int64, includeExpired bool, now time.Time) ([]Post, error)
	RecentByUser(ctx context.Context, userID int64, limit int) ([]Post, error)
	StatsByUser(ctx context.Context, userID int64, now time.Time) (UserPostStats, error)
	// DeleteExpired removes every post with expires_at <= now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// Facets aggregates countries and cities over posts active at now.
	Facets(ctx context.Context, now time.Time) (*Facets, error)
	Count(ctx context.Context) (int, error)
}

// FacetCache stores a computed Facets value. Get returns ErrNotFound on miss.
//
// Every Invalidate advances a generation counter. A caller reads Generation
// before computing Facets and hands it back to Set, which stores nothing if
// an invalidation happened in between.
type FacetCache interface {
	Get(ctx context.Context) (*Facets, error)
	Generation(ctx context.Context) (int64, error)
	Set(ctx context.Context, facets *Facets, generation int64, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}
