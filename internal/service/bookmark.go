package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

// BookmarkService saves recipe ids per user. Recipes themselves live in the
// recipe API; only the id is stored.
type BookmarkService struct {
	bookmarks repository.BookmarkRepository
	recipes   RecipeAPI
	logger    *slog.Logger
}

func NewBookmarkService(bookmarks repository.BookmarkRepository, recipes RecipeAPI, logger *slog.Logger) *BookmarkService {
	return &BookmarkService{bookmarks: bookmarks, recipes: recipes, logger: logger}
}

func (s *BookmarkService) List(ctx context.Context, userID string) ([]model.Bookmark, error) {
	rows, err := s.bookmarks.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/bookmark: listing: %w", err)
	}
	return rows, nil
}

func (s *BookmarkService) IsBookmarked(ctx context.Context, userID, recipeID string) (bool, error) {
	id, err := ParseRecipeID(recipeID)
	if err != nil {
		return false, err
	}
	ok, err := s.bookmarks.IsBookmarked(ctx, userID, strconv.Itoa(id))
	if err != nil {
		return false, fmt.Errorf("service/bookmark: checking %s: %w", recipeID, err)
	}
	return ok, nil
}

// Add is idempotent.
func (s *BookmarkService) Add(ctx context.Context, userID, recipeID string) error {
	id, err := ParseRecipeID(recipeID)
	if err != nil {
		return err
	}
	if err := s.bookmarks.AddBookmark(ctx, userID, strconv.Itoa(id)); err != nil {
		return fmt.Errorf("service/bookmark: adding %d: %w", id, err)
	}
	s.logger.Info("bookmark added", slog.String("user_id", userID), slog.Int("recipe_id", id))
	return nil
}

// Remove is idempotent; removed reports whether a bookmark existed.
func (s *BookmarkService) Remove(ctx context.Context, userID, recipeID string) (removed bool, err error) {
	id, err := ParseRecipeID(recipeID)
	if err != nil {
		return false, err
	}
	removed, err = s.bookmarks.RemoveBookmark(ctx, userID, strconv.Itoa(id))
	if err != nil {
		return false, fmt.Errorf("service/bookmark: removing %d: %w", id, err)
	}
	return removed, nil
}

// ListRecipes returns summaries of every bookmarked recipe, newest bookmark
// first, with a single bulk API call.
func (s *BookmarkService) ListRecipes(ctx context.Context, userID string) ([]model.Recipe, error) {
	rows, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []model.Recipe{}, nil
	}

	ids := make([]int, 0, len(rows))
	for _, b := range rows {
		id, err := strconv.Atoi(b.RecipeID)
		if err != nil {
			s.logger.Warn("skipping malformed bookmark", slog.String("recipe_id", b.RecipeID))
			continue
		}
		ids = append(ids, id)
	}

	recipes, err := s.recipes.InformationBulk(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/bookmark: loading %d recipes: %w", len(ids), err)
	}

	// The bulk endpoint doesn't promise order; restore bookmark order.
	byID := make(map[int]model.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	out := make([]model.Recipe, 0, len(ids))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// ParseRecipeID accepts only positive integers.
func ParseRecipeID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("recipeId", "Invalid recipe id.")
	}
	return id, nil
}
