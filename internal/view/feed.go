// Package view renders the server-side feed as templ components. The
// components live in feed.templ; run templ generate after editing it.
package view

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
)

const (
	PostListID = "post-list"
	LoadMoreID = "load-more"
)

// Filter is the feed's current filter selection.
type Filter struct {
	Category string
	Country  string
	City     string
}

// Cursor identifies the next feed page.
type Cursor struct {
	Filter  Filter
	Offset  int
	HasMore bool
}

// FeedData is everything the feed page needs.
type FeedData struct {
	User   *domain.User
	Facets *domain.Facets
	Posts  []domain.Post
	Now    time.Time
	Next   Cursor
}

// citiesIn lists the cities offered by the filter form, narrowed to country
// when one is selected.
func citiesIn(f *domain.Facets, country string) []string {
	var cities []string
	for _, loc := range f.Locations {
		if country != "" && loc.Country != country {
			continue
		}
		cities = append(cities, loc.Cities...)
	}
	return cities
}

func moreURL(c Cursor) string {
	q := url.Values{}
	q.Set("offset", strconv.Itoa(c.Offset))
	if c.Filter.Category != "" {
		q.Set("category", c.Filter.Category)
	}
	if c.Filter.Country != "" {
		q.Set("country", c.Filter.Country)
	}
	if c.Filter.City != "" {
		q.Set("city", c.Filter.City)
	}
	return "/feed/more?" + q.Encode()
}

func remaining(expiresAt, now time.Time) string {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return "expired"
	}
	if d < time.Hour {
		return fmt.Sprintf("expires in %dm", int(d.Minutes()))
	}
	return fmt.Sprintf("expires in %dh", int(d.Hours()))
}
