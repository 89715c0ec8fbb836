package handler

import (
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

// UserDTO is the JSON representation of a user. Credential material is
// never serialised.
type UserDTO struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Credits   int64  `json:"credits"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		ID:        u.ID,
		Email:     u.Email,
		Credits:   u.Credits,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.Format(time.RFC3339),
	}
}

// PostDTO is the JSON representation of a post.
type PostDTO struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
	Country     string `json:"country"`
	City        string `json:"city"`
	CreditsCost int64  `json:"credits_cost"`
	ExpiresAt   string `json:"expires_at"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toPostDTO(p *domain.Post) PostDTO {
	return PostDTO{
		ID:          p.ID,
		UserID:      p.UserID,
		Title:       p.Title,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    string(p.Category),
		Country:     p.Country,
		City:        p.City,
		CreditsCost: p.CreditsCost,
		ExpiresAt:   p.ExpiresAt.Format(time.RFC3339),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}

func toPostDTOs(posts []domain.Post) []PostDTO {
	dtos := make([]PostDTO, len(posts))
	for i := range posts {
		dtos[i] = toPostDTO(&posts[i])
	}
	return dtos
}

// DashboardDTO is the JSON representation of a user's dashboard.
type DashboardDTO struct {
	User              UserDTO   `json:"user"`
	ActivePostsCount  int       `json:"active_posts_count"`
	ExpiredPostsCount int       `json:"expired_posts_count"`
	TotalCreditsSpent int64     `json:"total_credits_spent"`
	RecentPosts       []PostDTO `json:"recent_posts"`
}

func toDashboardDTO(d *domain.Dashboard) DashboardDTO {
	return DashboardDTO{
		User:              toUserDTO(d.User),
		ActivePostsCount:  d.ActivePostsCount,
		ExpiredPostsCount: d.ExpiredPostsCount,
		TotalCreditsSpent: d.TotalCreditsSpent,
		RecentPosts:       toPostDTOs(d.RecentPosts),
	}
}

// FacetsDTO is the JSON representation of the filter vocabulary.
type FacetsDTO struct {
	Categories []string          `json:"categories"`
	Countries  []string          `json:"countries"`
	Cities     []string          `json:"cities"`
	Locations  []domain.Location `json:"locations"`
	Stats      domain.FacetStats `json:"stats"`
}

func toFacetsDTO(f *domain.Facets) FacetsDTO {
	categories := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		categories[i] = string(c)
	}
	return FacetsDTO{
		Categories: categories,
		Countries:  f.Countries,
		Cities:     f.Cities,
		Locations:  f.Locations,
		Stats:      f.Stats,
	}
}
