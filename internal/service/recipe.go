package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
	"github.com/sakif/kitchi/internal/richtext"
	"github.com/sakif/kitchi/internal/spoonacular"
)

// NoInstructions is shown when a recipe comes without instructions.
const NoInstructions = "No instructions available."

// RecipeService searches recipes from the pantry and loads recipe detail.
type RecipeService struct {
	api       RecipeAPI
	cache     DetailCache
	pantry    repository.PantryRepository
	bookmarks repository.BookmarkRepository
	logger    *slog.Logger
}

// NewRecipeService wires the service. cache may be nil.
func NewRecipeService(
	api RecipeAPI,
	cache DetailCache,
	pantry repository.PantryRepository,
	bookmarks repository.BookmarkRepository,
	logger *slog.Logger,
) *RecipeService {
	return &RecipeService{api: api, cache: cache, pantry: pantry, bookmarks: bookmarks, logger: logger}
}

// Find searches recipes by ingredients. With no ingredients given, the
// user's pantry is used; an empty pantry yields no recipes without calling
// the API.
func (s *RecipeService) Find(ctx context.Context, userID string, ingredients []string, number int) ([]model.Recipe, error) {
	cleaned := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if ing = strings.TrimSpace(ing); ing != "" {
			cleaned = append(cleaned, ing)
		}
	}

	if len(cleaned) == 0 {
		names, err := s.pantry.PantryFoodNames(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("service/recipe: loading pantry names: %w", err)
		}
		cleaned = names
	}
	if len(cleaned) == 0 {
		return []model.Recipe{}, nil
	}

	recipes, err := s.api.FindByIngredients(ctx, cleaned, clampRecipeCount(number))
	if err != nil {
		return nil, fmt.Errorf("service/recipe: searching: %w", err)
	}
	return recipes, nil
}

// Detail returns the recipe with plain-text summary and instructions and
// the user's bookmark flag.
func (s *RecipeService) Detail(ctx context.Context, userID string, id int) (*model.RecipeDetail, error) {
	detail, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}

	bookmarked, err := s.bookmarks.IsBookmarked(ctx, userID, strconv.Itoa(id))
	if err != nil {
		return nil, fmt.Errorf("service/recipe: checking bookmark: %w", err)
	}
	detail.Bookmarked = bookmarked
	return detail, nil
}

func (s *RecipeService) loadDetail(ctx context.Context, id int) (*model.RecipeDetail, error) {
	if s.cache != nil {
		if d, ok := s.cache.Get(ctx, id); ok {
			return d, nil
		}
	}

	info, err := s.api.Information(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: loading %d: %w", id, err)
	}
	detail := toDetail(info)

	if s.cache != nil {
		s.cache.Set(ctx, detail)
	}
	return detail, nil
}

func toDetail(info *spoonacular.Information) *model.RecipeDetail {
	instructions := richtext.PlainText(info.Instructions)
	if instructions == "" {
		instructions = NoInstructions
	}
	ingredients := info.ExtendedIngredients
	if ingredients == nil {
		ingredients = []model.Ingredient{}
	}
	return &model.RecipeDetail{
		ID:             info.ID,
		Title:          info.Title,
		Image:          info.Image,
		Servings:       info.Servings,
		ReadyInMinutes: info.ReadyInMinutes,
		Summary:        richtext.PlainText(info.Summary),
		Instructions:   instructions,
		Steps:          richtext.Steps(info.Instructions),
		Ingredients:    ingredients,
		SourceURL:      info.SourceURL,
	}
}

func clampRecipeCount(n int) int {
	switch {
	case n == 0:
		return DefaultRecipeCount
	case n < 1:
		return 1
	case n > MaxRecipeCount:
		return MaxRecipeCount
	}
	return n
}
