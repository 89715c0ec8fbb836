package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/repository/sqlite"
)

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func insertPost(t *testing.T, db *sqlite.DB, userID int64, at time.Time, country, city string, category domain.Category, cost int64) *domain.Post {
	t.Helper()
	post := &domain.Post{
		UserID:      userID,
		Title:       "Post in " + city,
		Description: "Something happened in " + city,
		ImageURL:    "https://images.example.com/" + city + ".jpg",
		Category:    category,
		Country:     country,
		City:        city,
		CreditsCost: cost,
	}
	if err := db.Posts().Insert(context.Background(), post, at); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return post
}

func TestPostRepository_Insert(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "poster@example.com", 10)

	post := insertPost(t, db, user.ID, fixedNow, "Japan", "Kyoto", domain.CategoryTravel, 2)

	if post.ID == 0 {
		t.Fatal("expected post ID to be set")
	}
	if !post.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected CreatedAt %v, got %v", fixedNow, post.CreatedAt)
	}
	if !post.ExpiresAt.Equal(fixedNow.Add(24 * time.Hour)) {
		t.Fatalf("expected ExpiresAt 24h after creation, got %v", post.ExpiresAt)
	}

	found, err := db.Posts().GetByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if found.Category != domain.CategoryTravel || found.City != "Kyoto" || found.CreditsCost != 2 {
		t.Fatalf("unexpected post read back: %+v", found)
	}
	if !found.ExpiresAt.Equal(post.ExpiresAt) {
		t.Fatalf("expected ExpiresAt %v, got %v", post.ExpiresAt, found.ExpiresAt)
	}
}

func TestPostRepository_Insert_RejectsUnknownCategory(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "badcat@example.com", 10)

	post := &domain.Post{
		UserID: user.ID, Title: "t", Description: "d", ImageURL: "https://x.test/i.png",
		Category: domain.Category("gardening"), Country: "UK", City: "Leeds", CreditsCost: 1,
	}
	err := db.Posts().Insert(context.Background(), post, fixedNow)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPostRepository_GetByID_ReturnsExpiredRecords(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "raw@example.com", 10)
	post := insertPost(t, db, user.ID, fixedNow.Add(-48*time.Hour), "Peru", "Lima", domain.CategoryFood, 1)

	found, err := db.Posts().GetByID(context.Background(), post.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if found.ActiveAt(fixedNow) {
		t.Fatal("expected the raw record to be expired")
	}

	if _, err := db.Posts().GetByID(context.Background(), 5000); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPostRepository_Query(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "query@example.com", 100)

	oldest := insertPost(t, db, user.ID, fixedNow.Add(-3*time.Hour), "France", "Paris", domain.CategoryArt, 1)
	middle := insertPost(t, db, user.ID, fixedNow.Add(-2*time.Hour), "France", "Lyon", domain.CategoryFood, 1)
	newest := insertPost(t, db, user.ID, fixedNow.Add(-1*time.Hour), "Italy", "Rome", domain.CategoryArt, 1)
	insertPost(t, db, user.ID, fixedNow.Add(-30*time.Hour), "France", "Paris", domain.CategoryArt, 1)

	all := domain.Page{Limit: 20}
	tests := []struct {
		name   string
		filter domain.PostFilter
		page   domain.Page
		want   []int64
	}{
		{"all active newest first", domain.PostFilter{}, all, []int64{newest.ID, middle.ID, oldest.ID}},
		{"by category", domain.PostFilter{Category: domain.CategoryArt}, all, []int64{newest.ID, oldest.ID}},
		{"by country", domain.PostFilter{Country: "France"}, all, []int64{middle.ID, oldest.ID}},
		{"by city", domain.PostFilter{City: "Paris"}, all, []int64{oldest.ID}},
		{"combined", domain.PostFilter{Category: domain.CategoryFood, Country: "France", City: "Lyon"}, all, []int64{middle.ID}},
		{"no match", domain.PostFilter{Country: "Chile"}, all, nil},
		{"limit", domain.PostFilter{}, domain.Page{Limit: 2}, []int64{newest.ID, middle.ID}},
		{"offset", domain.PostFilter{}, domain.Page{Limit: 2, Offset: 2}, []int64{oldest.ID}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			posts, err := db.Posts().Query(ctx, tc.filter, tc.page, fixedNow)
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			assertPostIDs(t, posts, tc.want)
		})
	}
}

func TestPostRepository_Query_ExpiryBoundaryIsStrict(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "boundary@example.com", 10)
	post := insertPost(t, db, user.ID, fixedNow, "Chile", "Santiago", domain.CategorySports, 1)

	justBefore := post.ExpiresAt.Add(-time.Nanosecond)
	posts, err := db.Posts().Query(context.Background(), domain.PostFilter{}, domain.Page{Limit: 10}, justBefore)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertPostIDs(t, posts, []int64{post.ID})

	posts, err = db.Posts().Query(context.Background(), domain.PostFilter{}, domain.Page{Limit: 10}, post.ExpiresAt)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertPostIDs(t, posts, nil)
}

func TestPostRepository_Query_TiesBrokenByIDDescending(t *testing.T) {
	db := newTestDB(t)
	user := createUser(t, db, "ties@example.com", 10)
	first := insertPost(t, db, user.ID, fixedNow, "Kenya", "Nairobi", domain.CategoryCulture, 1)
	second := insertPost(t, db, user.ID, fixedNow, "Kenya", "Mombasa", domain.CategoryCulture, 1)

	posts, err := db.Posts().Query(context.Background(), domain.PostFilter{}, domain.Page{Limit: 10}, fixedNow)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	assertPostIDs(t, posts, []int64{second.ID, first.ID})
}

func TestPostRepository_ListByUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice@example.com", 10)
	bob := createUser(t, db, "bob@example.com", 10)

	expired := insertPost(t, db, alice.ID, fixedNow.Add(-25*time.Hour), "Egypt", "Cairo", domain.CategoryTravel, 1)
	active := insertPost(t, db, alice.ID, fixedNow.Add(-time.Hour), "Egypt", "Giza", domain.CategoryTravel, 1)
	insertPost(t, db, bob.ID, fixedNow, "Egypt", "Luxor", domain.CategoryTravel, 1)

	posts, err := db.Posts().ListByUser(ctx, alice.ID, false, fixedNow)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	assertPostIDs(t, posts, []int64{active.ID})

	posts, err = db.Posts().ListByUser(ctx, alice.ID, true, fixedNow)
	if err != nil {
		t.Fatalf("ListByUser include expired: %v", err)
	}
	assertPostIDs(t, posts, []int64{active.ID, expired.ID})
}

func TestPostRepository_StatsAndRecent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "stats@example.com", 100)

	var ids []int64
	for i := range 12 {
		p := insertPost(t, db, user.ID, fixedNow.Add(-time.Duration(30-i)*time.Hour), "Brazil", "Recife", domain.CategoryOther, int64(i+1))
		ids = append(ids, p.ID)
	}

	stats, err := db.Posts().StatsByUser(ctx, user.ID, fixedNow)
	if err != nil {
		t.Fatalf("StatsByUser: %v", err)
	}
	// Posts created 30..19 hours ago: those older than 24h (30..24, seven posts) are expired.
	if stats.Expired != 7 || stats.Active != 5 {
		t.Fatalf("expected 5 active / 7 expired, got %+v", stats)
	}
	if stats.CreditsSpent != 78 {
		t.Fatalf("expected 78 credits spent, got %d", stats.CreditsSpent)
	}

	recent, err := db.Posts().RecentByUser(ctx, user.ID, 10)
	if err != nil {
		t.Fatalf("RecentByUser: %v", err)
	}
	if len(recent) != 10 {
		t.Fatalf("expected 10 recent posts, got %d", len(recent))
	}
	if recent[0].ID != ids[11] || recent[9].ID != ids[2] {
		t.Fatalf("unexpected recent ordering: first=%d last=%d", recent[0].ID, recent[9].ID)
	}

	empty, err := db.Posts().StatsByUser(ctx, 4040, fixedNow)
	if err != nil {
		t.Fatalf("StatsByUser for unknown user: %v", err)
	}
	if empty != (domain.UserPostStats{}) {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
}

func TestPostRepository_DeleteExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "sweep@example.com", 10)

	insertPost(t, db, user.ID, fixedNow.Add(-48*time.Hour), "India", "Pune", domain.CategoryBusiness, 1)
	// Expires exactly at fixedNow and therefore counts as expired.
	insertPost(t, db, user.ID, fixedNow.Add(-24*time.Hour), "India", "Delhi", domain.CategoryBusiness, 1)
	keep := insertPost(t, db, user.ID, fixedNow.Add(-23*time.Hour), "India", "Goa", domain.CategoryBusiness, 1)

	n, err := db.Posts().DeleteExpired(ctx, fixedNow)
	if err != nil {
		t.Fatalf("DeleteExpired: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	n, err = db.Posts().DeleteExpired(ctx, fixedNow)
	if err != nil {
		t.Fatalf("second DeleteExpired: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected idempotent second sweep, got %d", n)
	}

	if _, err := db.Posts().GetByID(ctx, keep.ID); err != nil {
		t.Fatalf("expected active post to survive: %v", err)
	}
}

func TestPostRepository_Facets(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createUser(t, db, "facets@example.com", 100)

	insertPost(t, db, user.ID, fixedNow.Add(-2*time.Hour), "Spain", "Madrid", domain.CategoryFood, 1)
	insertPost(t, db, user.ID, fixedNow.Add(-3*time.Hour), "Spain", "Barcelona", domain.CategoryArt, 1)
	insertPost(t, db, user.ID, fixedNow.Add(-4*time.Hour), "Spain", "Madrid", domain.CategoryArt, 1)
	insertPost(t, db, user.ID, fixedNow.Add(-5*time.Hour), "Argentina", "Cordoba", domain.CategoryArt, 1)
	// Expired: must not contribute.
	insertPost(t, db, user.ID, fixedNow.Add(-25*time.Hour), "Norway", "Oslo", domain.CategoryArt, 1)

	f, err := db.Posts().Facets(ctx, fixedNow)
	if err != nil {
		t.Fatalf("Facets: %v", err)
	}

	if len(f.Categories) != 10 {
		t.Fatalf("expected 10 categories, got %d", len(f.Categories))
	}
	assertStrings(t, "countries", f.Countries, []string{"Argentina", "Spain"})
	assertStrings(t, "cities", f.Cities, []string{"Barcelona", "Cordoba", "Madrid"})
	if len(f.Locations) != 2 || f.Locations[1].Country != "Spain" {
		t.Fatalf("unexpected locations: %+v", f.Locations)
	}
	assertStrings(t, "spain cities", f.Locations[1].Cities, []string{"Barcelona", "Madrid"})
	if f.Stats != (domain.FacetStats{TotalPosts: 4, TotalCountries: 2, TotalCities: 3}) {
		t.Fatalf("unexpected stats: %+v", f.Stats)
	}
	wantNext := fixedNow.Add(-5 * time.Hour).Add(24 * time.Hour)
	if !f.NextExpiry.Equal(wantNext) {
		t.Fatalf("expected next expiry %v, got %v", wantNext, f.NextExpiry)
	}
}

func TestPostRepository_Facets_Empty(t *testing.T) {
	db := newTestDB(t)

	f, err := db.Posts().Facets(context.Background(), fixedNow)
	if err != nil {
		t.Fatalf("Facets: %v", err)
	}
	if len(f.Categories) != 10 {
		t.Fatalf("expected full category list, got %v", f.Categories)
	}
	if len(f.Countries) != 0 || len(f.Cities) != 0 || len(f.Locations) != 0 {
		t.Fatalf("expected empty location facets, got %+v", f)
	}
	if f.Stats.TotalPosts != 0 {
		t.Fatalf("expected 0 posts, got %d", f.Stats.TotalPosts)
	}
}

func assertPostIDs(t *testing.T, posts []domain.Post, want []int64) {
	t.Helper()
	if len(posts) != len(want) {
		t.Fatalf("expected %d posts, got %d", len(want), len(posts))
	}
	for i, p := range posts {
		if p.ID != want[i] {
			t.Fatalf("post %d: expected id %d, got %d", i, want[i], p.ID)
		}
	}
}

func assertStrings(t *testing.T, label string, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %v, got %v", label, want, got)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("%s: expected %v, got %v", label, want, got)
		}
	}
}
