package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/service"
	"github.com/appdotbuilder/golden-timeline/internal/view"
	datastar "github.com/starfederation/datastar-go/datastar"
)

const feedPageSize = 20

// FeedHandler serves the public feed page and its SSE pagination.
type FeedHandler struct {
	posts *service.PostService
}

// NewFeedHandler creates a new FeedHandler.
func NewFeedHandler(posts *service.PostService) *FeedHandler {
	return &FeedHandler{posts: posts}
}

// HandleFeed renders the first page of active posts.
// GET /
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	filter := feedFilter(r)
	posts, err := h.posts.GetPosts(r.Context(), feedQuery(filter, 0))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		writeServiceError(w, "render feed", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err = view.FeedPage(view.FeedData{
		User:   UserFromContext(r.Context()),
		Facets: h.posts.GetFacets(r.Context()),
		Posts:  posts,
		Now:    h.posts.Now(),
		Next:   nextCursor(filter, 0, len(posts)),
	}).Render(r.Context(), w)
	if err != nil {
		logRenderError(r, err)
	}
}

// HandleLoadMore returns the next page of post cards via SSE.
// GET /feed/more?offset=&category=&country=&city=
func (h *FeedHandler) HandleLoadMore(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	filter := feedFilter(r)
	posts, err := h.posts.GetPosts(r.Context(), feedQuery(filter, offset))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		writeServiceError(w, "load more posts", err)
		return
	}

	sse := datastar.NewSSE(w, r)

	// Append the new cards to the list.
	if err := sse.PatchElementTempl(
		view.PostCards(posts, h.posts.Now()),
		datastar.WithSelectorID(view.PostListID),
		datastar.WithModeAppend(),
	); err != nil {
		logRenderError(r, err)
		return
	}

	// Replace the load-more button (advances the offset or removes it).
	if err := sse.PatchElementTempl(view.LoadMore(nextCursor(filter, offset, len(posts)))); err != nil {
		logRenderError(r, err)
	}
}

func feedFilter(r *http.Request) view.Filter {
	q := r.URL.Query()
	return view.Filter{
		Category: q.Get("category"),
		Country:  q.Get("country"),
		City:     q.Get("city"),
	}
}

func feedQuery(f view.Filter, offset int) service.PostQuery {
	return service.PostQuery{
		Category: f.Category,
		Country:  f.Country,
		City:     f.City,
		Limit:    feedPageSize,
		Offset:   offset,
	}
}

func nextCursor(f view.Filter, offset, got int) view.Cursor {
	return view.Cursor{
		Filter:  f,
		Offset:  offset + got,
		HasMore: got == feedPageSize,
	}
}
