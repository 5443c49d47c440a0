package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

// PantryService manages a user's pantry items and announces every change
// to the user's open sessions.
type PantryService struct {
	items    repository.PantryRepository
	profiles repository.ProfileRepository
	events   EventPublisher
	logger   *slog.Logger
}

func NewPantryService(
	items repository.PantryRepository,
	profiles repository.ProfileRepository,
	events EventPublisher,
	logger *slog.Logger,
) *PantryService {
	return &PantryService{items: items, profiles: profiles, events: events, logger: logger}
}

// AddPantryItemInput is one item from the manual form or the photo picker.
type AddPantryItemInput struct {
	FoodName   string `json:"foodName"`
	ExpiryDate string `json:"expiryDate"`
}

// List returns the user's items by expiry date. order is "asc" (default)
// or "desc".
func (s *PantryService) List(ctx context.Context, userID, order string) ([]model.PantryItem, error) {
	sortOrder, err := parseSortOrder(order)
	if err != nil {
		return nil, err
	}
	items, err := s.items.ListPantryItems(ctx, userID, sortOrder)
	if err != nil {
		return nil, fmt.Errorf("service/pantry: listing: %w", err)
	}
	return items, nil
}

// Add inserts one item.
func (s *PantryService) Add(ctx context.Context, userID string, in AddPantryItemInput) (*model.PantryItem, error) {
	items, err := s.AddMany(ctx, userID, []AddPantryItemInput{in})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// AddMany inserts 1 to MaxBatchItems items in one transaction. Any invalid
// item rejects the whole batch.
func (s *PantryService) AddMany(ctx context.Context, userID string, in []AddPantryItemInput) ([]model.PantryItem, error) {
	if len(in) == 0 {
		return nil, apperror.ValidationFailed("items", "Please select at least one item.")
	}
	if len(in) > MaxBatchItems {
		return nil, apperror.ValidationFailed("items",
			fmt.Sprintf("You can add at most %d items at once.", MaxBatchItems))
	}

	fullName := s.ownerName(ctx, userID)
	rows := make([]*model.PantryItem, 0, len(in))
	for _, it := range in {
		item, err := validatePantryItem(it)
		if err != nil {
			return nil, err
		}
		item.UserID = userID
		item.FullName = fullName
		rows = append(rows, item)
	}

	if err := s.items.CreatePantryItems(ctx, rows); err != nil {
		return nil, fmt.Errorf("service/pantry: inserting %d items: %w", len(rows), err)
	}

	out := make([]model.PantryItem, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
		s.events.Publish(userID, model.PantryEvent{Type: model.PantryInserted, Item: *r})
	}
	s.logger.Info("pantry items added", slog.String("user_id", userID), slog.Int("count", len(out)))
	return out, nil
}

// Delete removes an item the user owns. Anyone else's item is not found.
func (s *PantryService) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperror.ValidationFailed("id", "Missing pantry item id.")
	}
	item, err := s.items.DeletePantryItem(ctx, userID, id)
	if err != nil {
		return fmt.Errorf("service/pantry: deleting %s: %w", id, err)
	}
	s.events.Publish(userID, model.PantryEvent{Type: model.PantryDeleted, Item: *item})
	return nil
}

// ownerName is the profile name copied onto new rows. A missing profile
// leaves it blank rather than failing the insert.
func (s *PantryService) ownerName(ctx context.Context, userID string) string {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("could not load profile for pantry insert",
				slog.String("user_id", userID), slog.String("error", err.Error()))
		}
		return ""
	}
	return p.FullName
}

func validatePantryItem(in AddPantryItemInput) (*model.PantryItem, error) {
	name := strings.TrimSpace(in.FoodName)
	date := strings.TrimSpace(in.ExpiryDate)
	if name == "" || date == "" {
		return nil, apperror.ValidationFailed("foodName", "Please fill in both fields.")
	}
	if len([]rune(name)) > MaxFoodNameLength {
		return nil, apperror.ValidationFailed("foodName",
			fmt.Sprintf("Food name must be at most %d characters.", MaxFoodNameLength))
	}
	if _, err := time.Parse(model.ExpiryDateLayout, date); err != nil {
		return nil, apperror.ValidationFailed("expiryDate", "Please enter the expiry date as YYYY-MM-DD.")
	}
	return &model.PantryItem{FoodName: name, ExpiryDate: date}, nil
}

func parseSortOrder(order string) (model.SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(order)) {
	case "", string(model.SortAsc):
		return model.SortAsc, nil
	case string(model.SortDesc):
		return model.SortDesc, nil
	default:
		return "", apperror.ValidationFailed("order", `Sort order must be "asc" or "desc".`)
	}
}
