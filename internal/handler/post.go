package handler

import (
	"net/http"
	"strconv"

	"github.com/appdotbuilder/golden-timeline/internal/domain"
	"github.com/appdotbuilder/golden-timeline/internal/service"
)

// PostHandler serves the post API.
type PostHandler struct {
	posts *service.PostService
}

// NewPostHandler creates a new PostHandler.
func NewPostHandler(posts *service.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Category    string `json:"category"`
	Country     string `json:"country"`
	City        string `json:"city"`
	CreditsCost int64  `json:"credits_cost"`
}

// HandleCreate publishes a post on behalf of the authenticated user.
// POST /api/posts
// Response: 201 {"post": {...}}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	var req createPostRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	post, err := h.posts.CreatePost(r.Context(), user.ID, service.CreatePostInput{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Country:     req.Country,
		City:        req.City,
		CreditsCost: req.CreditsCost,
	})
	if err != nil {
		writeServiceError(w, "create post", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"post": toPostDTO(post)})
}

// HandleList lists active posts.
// GET /api/posts?category=&country=&city=&limit=&offset=
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q, ok := parsePostQuery(w, r)
	if !ok {
		return
	}

	posts, err := h.posts.GetPosts(r.Context(), q)
	if err != nil {
		writeServiceError(w, "list posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostDTOs(posts)})
}

// HandleGet returns one active post.
// GET /api/posts/{id}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	post, err := h.posts.GetPostByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get post", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"post": toPostDTO(post)})
}

// HandleListByUser lists a user's posts.
// GET /api/users/{id}/posts?include_expired=true
func (h *PostHandler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	includeExpired := false
	if v := r.URL.Query().Get("include_expired"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "include_expired must be a boolean.")
			return
		}
		includeExpired = parsed
	}

	posts, err := h.posts.GetUserPosts(r.Context(), id, includeExpired)
	if err != nil {
		writeServiceError(w, "list user posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"posts": toPostDTOs(posts)})
}

// HandleFacets returns the filter vocabulary for the active post set.
// GET /api/facets
func (h *PostHandler) HandleFacets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toFacetsDTO(h.posts.GetFacets(r.Context())))
}

// HandleDashboard returns the authenticated user's dashboard.
// GET /api/dashboard
func (h *PostHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	d, err := h.posts.GetUserDashboard(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, "get dashboard", err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

// parsePostQuery reads filters and pagination from the query string. Range
// checks are left to the service.
func parsePostQuery(w http.ResponseWriter, r *http.Request) (service.PostQuery, bool) {
	v := r.URL.Query()
	q := service.PostQuery{
		Category: v.Get("category"),
		Country:  v.Get("country"),
		City:     v.Get("city"),
	}

	var err error
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil || q.Limit == 0 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be an integer between 1 and 100.")
			return q, false
		}
	}
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "offset must be a non-negative integer.")
			return q, false
		}
	}
	return q, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeServiceError(w, "parse id", domain.ErrNotFound)
		return 0, false
	}
	return id, true
}
