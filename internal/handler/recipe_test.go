package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/service"
)

func addPantryItem(t *testing.T, env *testEnv, userID, name string) {
	t.Helper()
	rr := httptest.NewRecorder()
	env.pantry.HandleAdd(rr, as(jsonRequest(http.MethodPost, "/api/pantry",
		map[string]string{"foodName": name, "expiryDate": "2026-06-01"}), userID))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
}

func TestRecipeHandler_Find(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.recipes.HandleFind(rr, as(httptest.NewRequest(http.MethodGet, "/api/recipes?ingredients=eggs,rice&number=2", nil), "u-1"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var recipes []model.Recipe
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&recipes))
	require.Len(t, recipes, 2)
	assert.Equal(t, "Egg Fried Rice", recipes[0].Title)
	assert.Equal(t, []string{"eggs,rice"}, env.recipeAPI.queries)
}

func TestRecipeHandler_FindKeepsZeroCounts(t *testing.T) {
	env := newTestEnv(t)

	rr := httptest.NewRecorder()
	env.recipes.HandleFind(rr, as(httptest.NewRequest(http.MethodGet, "/api/recipes?ingredients=eggs", nil), "u-1"))
	require.Equal(t, http.StatusOK, rr.Code)

	var raw []map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&raw))
	require.NotEmpty(t, raw)
	assert.Equal(t, float64(0), raw[0]["missedIngredientCount"], "nothing missing is still reported")
	assert.Equal(t, float64(2), raw[0]["usedIngredientCount"])
}

func TestRecipeHandler_FindFromPantry(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signUp(t, "find@example.com")
	addPantryItem(t, env, userID, "Rice")

	rr := httptest.NewRecorder()
	env.recipes.HandleFind(rr, as(httptest.NewRequest(http.MethodGet, "/api/recipes", nil), userID))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"Rice"}, env.recipeAPI.queries)
}

func TestRecipeHandler_FindEmpty(t *testing.T) {
	env := newTestEnv(t)

	t.Run("no results is an empty list", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.recipes.HandleFind(rr, as(httptest.NewRequest(http.MethodGet, "/api/recipes?ingredients=gravel", nil), "u-1"))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
	})

	t.Run("empty pantry never calls the API", func(t *testing.T) {
		before := len(env.recipeAPI.queries)
		rr := httptest.NewRecorder()
		env.recipes.HandleFind(rr, as(httptest.NewRequest(http.MethodGet, "/api/recipes", nil), "nobody"))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `[]`, rr.Body.String())
		assert.Len(t, env.recipeAPI.queries, before)
	})

	t.Run("bad number", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.recipes.HandleFind(rr, as(httptest.NewRequest(http.MethodGet, "/api/recipes?number=ten", nil), "u-1"))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestRecipeHandler_Detail(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signUp(t, "detail@example.com")
	require.NoError(t, env.db.AddBookmark(context.Background(), userID, "101"))

	req := as(httptest.NewRequest(http.MethodGet, "/api/recipes/101", nil), userID)
	req.SetPathValue("id", "101")
	rr := httptest.NewRecorder()
	env.recipes.HandleDetail(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var d model.RecipeDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&d))
	assert.Equal(t, "Quick weeknight dish.", d.Summary)
	assert.Equal(t, []string{"Cook rice.", "Fry eggs."}, d.Steps)
	assert.True(t, d.Bookmarked)
}

func TestRecipeHandler_DetailErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		id     string
		status int
	}{
		{"abc", http.StatusBadRequest},
		{"999", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			req := as(httptest.NewRequest(http.MethodGet, "/api/recipes/"+tt.id, nil), "u-1")
			req.SetPathValue("id", tt.id)
			rr := httptest.NewRecorder()
			env.recipes.HandleDetail(rr, req)

			assert.Equal(t, tt.status, rr.Code)
		})
	}
}

func TestRecipeHandler_NoInstructions(t *testing.T) {
	env := newTestEnv(t)

	req := as(httptest.NewRequest(http.MethodGet, "/api/recipes/102", nil), "u-1")
	req.SetPathValue("id", "102")
	rr := httptest.NewRecorder()
	env.recipes.HandleDetail(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var d model.RecipeDetail
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&d))
	assert.Equal(t, service.NoInstructions, d.Instructions)
}

func TestRecipeHandler_ShoppingLists(t *testing.T) {
	env := newTestEnv(t)
	userID := env.signUp(t, "shop@example.com")
	addPantryItem(t, env, userID, "Rice")
	addPantryItem(t, env, userID, "egg")

	t.Run("for a recipe", func(t *testing.T) {
		req := as(httptest.NewRequest(http.MethodGet, "/api/recipes/101/shopping-list", nil), userID)
		req.SetPathValue("id", "101")
		rr := httptest.NewRecorder()
		env.recipes.HandleRecipeShoppingList(rr, req)

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.JSONEq(t, `{"missing":["soy sauce"]}`, rr.Body.String())
	})

	t.Run("for given ingredients", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.recipes.HandleShoppingList(rr, as(jsonRequest(http.MethodPost, "/api/shopping-list",
			map[string]any{"ingredients": []string{"Brown Rice", "butter"}}), userID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"missing":["butter"]}`, rr.Body.String())
	})

	t.Run("everything in the pantry", func(t *testing.T) {
		rr := httptest.NewRecorder()
		env.recipes.HandleShoppingList(rr, as(jsonRequest(http.MethodPost, "/api/shopping-list",
			map[string]any{"ingredients": []string{"rice"}}), userID))

		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"missing":[]}`, rr.Body.String())
	})
}
