package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/service"
)

// RecipeHandler serves recipe search, recipe detail and shopping lists.
type RecipeHandler struct {
	recipes  *service.RecipeService
	shopping *service.ShoppingService
	logger   *slog.Logger
}

func NewRecipeHandler(recipes *service.RecipeService, shopping *service.ShoppingService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, shopping: shopping, logger: logger}
}

type shoppingListRequest struct {
	Ingredients []string `json:"ingredients"`
}

type shoppingListResponse struct {
	Missing []string `json:"missing"`
}

// HandleFind: GET /api/recipes?ingredients=eggs,milk&number=10
//
// Without ingredients the search uses the caller's pantry. No matches is
// an empty list, not an error.
func (h *RecipeHandler) HandleFind(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	q := r.URL.Query()
	var ingredients []string
	if raw := q.Get("ingredients"); raw != "" {
		ingredients = strings.Split(raw, ",")
	}

	number := 0
	if raw := q.Get("number"); raw != "" {
		number, err = strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, h.logger, apperror.ValidationFailed("number", "number must be a whole number."))
			return
		}
	}

	recipes, err := h.recipes.Find(r.Context(), userID, ingredients, number)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// HandleDetail: GET /api/recipes/{id}
func (h *RecipeHandler) HandleDetail(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, err := service.ParseRecipeID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	detail, err := h.recipes.Detail(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleRecipeShoppingList: GET /api/recipes/{id}/shopping-list
// → {"missing": [...]}
func (h *RecipeHandler) HandleRecipeShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	id, err := service.ParseRecipeID(r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	missing, err := h.shopping.ForRecipe(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shoppingListResponse{Missing: missing})
}

// HandleShoppingList: POST /api/shopping-list {"ingredients": [...]}
// → {"missing": [...]}
//
// The app already has the ingredient names on the detail screen, so this
// variant skips the recipe lookup.
func (h *RecipeHandler) HandleShoppingList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req shoppingListRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	missing, err := h.shopping.ForIngredients(r.Context(), userID, req.Ingredients)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, shoppingListResponse{Missing: missing})
}
