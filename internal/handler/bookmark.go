package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/kitchi/internal/service"
)

// BookmarkHandler serves saved recipes.
type BookmarkHandler struct {
	svc    *service.BookmarkService
	logger *slog.Logger
}

func NewBookmarkHandler(svc *service.BookmarkService, logger *slog.Logger) *BookmarkHandler {
	return &BookmarkHandler{svc: svc, logger: logger}
}

// bookmarkStatus answers GET/PUT/DELETE on a single bookmark so the app can
// flip its heart icon from the response alone.
type bookmarkStatus struct {
	RecipeID   string `json:"recipeId"`
	Bookmarked bool   `json:"bookmarked"`
}

// HandleList: GET /api/bookmarks → [{"userId","recipeId","createdAt"}]
func (h *BookmarkHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	rows, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleListRecipes: GET /api/bookmarks/recipes → recipe summaries,
// newest bookmark first.
func (h *BookmarkHandler) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	recipes, err := h.svc.ListRecipes(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleGet: GET /api/bookmarks/{recipeID}
func (h *BookmarkHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	recipeID := strings.TrimSpace(r.PathValue("recipeID"))
	ok, err := h.svc.IsBookmarked(r.Context(), userID, recipeID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkStatus{RecipeID: recipeID, Bookmarked: ok})
}

// HandlePut: PUT /api/bookmarks/{recipeID}. Idempotent.
func (h *BookmarkHandler) HandlePut(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	recipeID := strings.TrimSpace(r.PathValue("recipeID"))
	if err := h.svc.Add(r.Context(), userID, recipeID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkStatus{RecipeID: recipeID, Bookmarked: true})
}

// HandleDelete: DELETE /api/bookmarks/{recipeID}. Removing a bookmark that
// isn't there is still 200.
func (h *BookmarkHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	recipeID := strings.TrimSpace(r.PathValue("recipeID"))
	if _, err := h.svc.Remove(r.Context(), userID, recipeID); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarkStatus{RecipeID: recipeID, Bookmarked: false})
}
