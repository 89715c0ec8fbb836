package service

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 2000
)

// CreatePostInput carries the user-supplied fields of a new post.
type CreatePostInput struct {
	Title       string
	Description string
	ImageURL    string
	Category    string
	Country     string
	City        string
	CreditsCost int64
}

// PostQuery is the filter and pagination request for the public listing.
// A zero Limit selects the default page size.
type PostQuery struct {
	Category string
	Country  string
	City     string
	Limit    int
	Offset   int
}

func validatePostInput(in CreatePostInput) (*domain.Post, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	country := strings.TrimSpace(in.Country)
	city := strings.TrimSpace(in.City)

	switch {
	case title == "":
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(title) > maxTitleLength:
		return nil, fmt.Errorf("%w: title must be %d characters or fewer", domain.ErrInvalidInput, maxTitleLength)
	case description == "":
		return nil, fmt.Errorf("%w: description is required", domain.ErrInvalidInput)
	case utf8.RuneCountInString(description) > maxDescriptionLength:
		return nil, fmt.Errorf("%w: description must be %d characters or fewer", domain.ErrInvalidInput, maxDescriptionLength)
	case country == "":
		return nil, fmt.Errorf("%w: country is required", domain.ErrInvalidInput)
	case city == "":
		return nil, fmt.Errorf("%w: city is required", domain.ErrInvalidInput)
	case in.CreditsCost <= 0:
		return nil, fmt.Errorf("%w: credits cost must be positive", domain.ErrInvalidInput)
	}

	if !validImageURL(in.ImageURL) {
		return nil, fmt.Errorf("%w: image url must be a valid http(s) URL", domain.ErrInvalidInput)
	}

	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return nil, err
	}

	return &domain.Post{
		Title:       title,
		Description: description,
		ImageURL:    in.ImageURL,
		Category:    category,
		Country:     country,
		City:        city,
		CreditsCost: in.CreditsCost,
	}, nil
}

func validImageURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validatePostQuery(q PostQuery) (domain.PostFilter, domain.Page, error) {
	var filter domain.PostFilter
	if q.Category != "" {
		c, err := domain.ParseCategory(q.Category)
		if err != nil {
			return filter, domain.Page{}, err
		}
		filter.Category = c
	}
	filter.Country = strings.TrimSpace(q.Country)
	filter.City = strings.TrimSpace(q.City)

	page := domain.Page{Limit: q.Limit, Offset: q.Offset}
	if page.Limit == 0 {
		page.Limit = domain.DefaultPageLimit
	}
	if page.Limit < 1 || page.Limit > domain.MaxPageLimit {
		return filter, page, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, domain.MaxPageLimit)
	}
	if page.Offset < 0 {
		return filter, page, fmt.Errorf("%w: offset must not be negative", domain.ErrInvalidInput)
	}
	return filter, page, nil
}
