package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sakif/kitchi/internal/repository"
)

// ShoppingService works out which recipe ingredients the user still needs.
type ShoppingService struct {
	recipes *RecipeService
	pantry  repository.PantryRepository
}

func NewShoppingService(recipes *RecipeService, pantry repository.PantryRepository) *ShoppingService {
	return &ShoppingService{recipes: recipes, pantry: pantry}
}

// ForRecipe returns the ingredients of recipe id that are not in the pantry.
func (s *ShoppingService) ForRecipe(ctx context.Context, userID string, id int) ([]string, error) {
	detail, err := s.recipes.Detail(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.ForIngredients(ctx, userID, detail.IngredientNames())
}

// ForIngredients returns the given ingredients that are not in the pantry.
func (s *ShoppingService) ForIngredients(ctx context.Context, userID string, ingredients []string) ([]string, error) {
	names, err := s.pantry.PantryFoodNames(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/shopping: loading pantry: %w", err)
	}
	return Missing(ingredients, names), nil
}

// Missing returns the ingredients no pantry name covers. A pantry name
// covers an ingredient when, lowercased and trimmed, it is a substring of
// the lowercased ingredient ("egg" covers "Large Eggs"). Order, spelling
// and duplicates of ingredients are preserved.
func Missing(ingredients, pantry []string) []string {
	needles := make([]string, 0, len(pantry))
	for _, p := range pantry {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			needles = append(needles, p)
		}
	}

	missing := []string{}
	for _, ing := range ingredients {
		lower := strings.ToLower(ing)
		covered := false
		for _, n := range needles {
			if strings.Contains(lower, n) {
				covered = true
				break
			}
		}
		if !covered {
			missing = append(missing, ing)
		}
	}
	return missing
}
