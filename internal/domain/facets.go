package domain

import (
	"sort"
	"time"
)

// LocationCount is one (country, city) group of active posts as returned by a
// store aggregation query.
type LocationCount struct {
	Country    string
	City       string
	Posts      int
	NextExpiry time.Time
}

// AggregateFacets folds grouped location counts into Facets. Categories are
// always the full enumeration; every list is sorted and never nil.
func AggregateFacets(groups []LocationCount) *Facets {
	byCountry := make(map[string]map[string]struct{})
	cities := make(map[string]struct{})
	f := &Facets{
		Categories: Categories(),
		Countries:  []string{},
		Cities:     []string{},
		Locations:  []Location{},
	}

	for _, g := range groups {
		if g.Posts <= 0 {
			continue
		}
		f.Stats.TotalPosts += g.Posts
		if f.NextExpiry.IsZero() || g.NextExpiry.Before(f.NextExpiry) {
			f.NextExpiry = g.NextExpiry
		}
		set, ok := byCountry[g.Country]
		if !ok {
			set = make(map[string]struct{})
			byCountry[g.Country] = set
		}
		set[g.City] = struct{}{}
		cities[g.City] = struct{}{}
	}

	for country, set := range byCountry {
		f.Countries = append(f.Countries, country)
		f.Locations = append(f.Locations, Location{Country: country, Cities: sortedKeys(set)})
	}
	sort.Strings(f.Countries)
	sort.Slice(f.Locations, func(i, j int) bool { return f.Locations[i].Country < f.Locations[j].Country })
	f.Cities = sortedKeys(cities)

	f.Stats.TotalCountries = len(f.Countries)
	f.Stats.TotalCities = len(f.Cities)
	return f
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
