package handler

import (
	"log/slog"
	"net/http"

	"github.com/appdotbuilder/golden-timeline/internal/service"
)

// RateLimits holds the per-client limiters applied to abuse-prone routes.
// A nil limiter disables limiting for its routes.
type RateLimits struct {
	Auth  *service.TokenBucket
	Posts *service.TokenBucket
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, auth *service.AuthService, posts *service.PostService, admin *service.AdminService, limits RateLimits, cookieSecure bool) {
	authHandler := NewAuthHandler(auth, cookieSecure)
	postHandler := NewPostHandler(posts)
	adminHandler := NewAdminHandler(admin, posts)
	feedHandler := NewFeedHandler(posts)

	requireAuth := func(h http.HandlerFunc) http.Handler { return RequireAuth(auth, h) }
	limit := func(l *service.TokenBucket, h http.Handler) http.Handler {
		if l == nil {
			return h
		}
		return RateLimit(l, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz)

	// Auth
	mux.Handle("POST /api/auth/register", limit(limits.Auth, http.HandlerFunc(authHandler.HandleRegister)))
	mux.Handle("POST /api/auth/login", limit(limits.Auth, http.HandlerFunc(authHandler.HandleLogin)))
	mux.HandleFunc("POST /api/auth/logout", authHandler.HandleLogout)
	mux.Handle("GET /api/auth/me", requireAuth(authHandler.HandleMe))

	// Posts
	mux.HandleFunc("GET /api/posts", postHandler.HandleList)
	mux.Handle("POST /api/posts", limit(limits.Posts, requireAuth(postHandler.HandleCreate)))
	mux.HandleFunc("GET /api/posts/{id}", postHandler.HandleGet)
	mux.HandleFunc("GET /api/users/{id}/posts", postHandler.HandleListByUser)
	mux.HandleFunc("GET /api/facets", postHandler.HandleFacets)
	mux.Handle("GET /api/dashboard", requireAuth(postHandler.HandleDashboard))

	// Admin
	mux.Handle("PUT /api/admin/users/{id}/credits", requireAuth(adminHandler.HandleAdjustCredits))
	mux.Handle("POST /api/admin/sweep", requireAuth(adminHandler.HandleSweep))

	// Feed
	mux.Handle("GET /{$}", OptionalAuth(auth, http.HandlerFunc(feedHandler.HandleFeed)))
	mux.HandleFunc("GET /feed/more", feedHandler.HandleLoadMore)
}

func logRenderError(r *http.Request, err error) {
	slog.Error("render response", "path", r.URL.Path, "request_id", RequestIDFromContext(r.Context()), "error", err)
}
