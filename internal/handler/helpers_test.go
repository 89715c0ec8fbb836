package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/appdotbuilder/golden-timeline/internal/handler"
	"github.com/appdotbuilder/golden-timeline/internal/repository/sqlite"
	"github.com/appdotbuilder/golden-timeline/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

var t0 = time.Date(2026, time.May, 10, 9, 30, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db    *sqlite.DB
	auth  *service.AuthService
	posts *service.PostService
	admin *service.AdminService
	clock *testClock
	srv   *httptest.Server
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestAuthService(t *testing.T) *service.AuthService {
	t.Helper()
	return service.NewAuthService(newTestDB(t).Users(), testJWTSecret, 4)
}

func newTestEnv(t *testing.T, limits handler.RateLimits) *testEnv {
	t.Helper()
	db := newTestDB(t)
	clock := &testClock{now: t0}
	env := &testEnv{
		db:    db,
		auth:  service.NewAuthService(db.Users(), testJWTSecret, 4),
		posts: service.NewPostService(db, clock.Now),
		admin: service.NewAdminService(db).WithClock(clock.Now),
		clock: clock,
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, env.auth, env.posts, env.admin, limits, false)
	env.srv = httptest.NewServer(handler.LogRequests(handler.SecurityHeaders(mux)))
	t.Cleanup(env.srv.Close)
	return env
}

// registerAndLogin creates an account and returns its id and bearer token.
func (e *testEnv) registerAndLogin(t *testing.T, email string) (int64, string) {
	t.Helper()
	ctx := context.Background()
	user, err := e.auth.Register(ctx, email, "password123")
	if err != nil {
		t.Fatalf("Register %s: %v", email, err)
	}
	_, token, err := e.auth.Login(ctx, email, "password123")
	if err != nil {
		t.Fatalf("Login %s: %v", email, err)
	}
	return user.ID, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", resp.Request.Method, resp.Request.URL.Path, want, resp.StatusCode, body)
	}
}

func postBody(title string, cost int64) map[string]any {
	return map[string]any{
		"title":        title,
		"description":  "Sunset over the river",
		"image_url":    "https://example.com/a.jpg",
		"category":     "travel",
		"country":      "France",
		"city":         "Paris",
		"credits_cost": cost,
	}
}
