package handler

import (
	"net/http"

	"github.com/appdotbuilder/golden-timeline/internal/service"
)

// AdminHandler serves privileged endpoints. The acting admin is always the
// authenticated user.
type AdminHandler struct {
	admin *service.AdminService
	posts *service.PostService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(admin *service.AdminService, posts *service.PostService) *AdminHandler {
	return &AdminHandler{admin: admin, posts: posts}
}

// HandleAdjustCredits sets a user's balance.
// PUT /api/admin/users/{id}/credits
// Request:  {"credits": 50}
// Response: {"user": {...}}
func (h *AdminHandler) HandleAdjustCredits(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	targetID, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Credits *int64 `json:"credits"`
	}
	if err := readJSON(w, r, &req); err != nil || req.Credits == nil {
		writeError(w, http.StatusBadRequest, "Request body must contain credits.")
		return
	}

	user, err := h.admin.AdjustCredits(r.Context(), actor.ID, targetID, *req.Credits)
	if err != nil {
		writeServiceError(w, "adjust credits", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": toUserDTO(user)})
}

// HandleSweep deletes expired posts immediately.
// POST /api/admin/sweep
// Response: {"deleted": n}
func (h *AdminHandler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}
	if err := h.admin.RequireAdmin(r.Context(), actor.ID); err != nil {
		writeServiceError(w, "sweep authorization", err)
		return
	}

	n, err := h.posts.SweepExpired(r.Context(), h.posts.Now())
	if err != nil {
		writeServiceError(w, "sweep expired posts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}
