// Package repository declares the storage interfaces the services depend on.
// The sqlite subpackage implements all of them on a single *sqlite.DB.
package repository

import (
	"context"
	"time"

	"github.com/sakif/kitchi/internal/model"
)

type UserRepository interface {
	// CreateUser inserts a new email account. A taken email returns
	// apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHubUser finds the user linked to githubID, creating it when
	// missing. created reports whether a new row was inserted.
	UpsertGitHubUser(ctx context.Context, githubID int64, email string) (user *model.User, created bool, err error)
	DeleteUser(ctx context.Context, id string) error
}

type ProfileRepository interface {
	// UpsertProfile inserts or replaces the profile keyed by ID. A username
	// owned by another profile returns apperror.ErrConflict.
	UpsertProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
}

type PantryRepository interface {
	ListPantryItems(ctx context.Context, userID string, order model.SortOrder) ([]model.PantryItem, error)
	// CreatePantryItems inserts all items in one transaction.
	CreatePantryItems(ctx context.Context, items []*model.PantryItem) error
	// DeletePantryItem removes the item only if userID owns it and returns
	// the removed row.
	DeletePantryItem(ctx context.Context, userID, id string) (*model.PantryItem, error)
	PantryFoodNames(ctx context.Context, userID string) ([]string, error)
}

type BookmarkRepository interface {
	ListBookmarks(ctx context.Context, userID string) ([]model.Bookmark, error)
	IsBookmarked(ctx context.Context, userID, recipeID string) (bool, error)
	AddBookmark(ctx context.Context, userID, recipeID string) error
	RemoveBookmark(ctx context.Context, userID, recipeID string) (bool, error)
}

type DeviceRepository interface {
	UpsertDevice(ctx context.Context, device *model.Device) error
	DeleteDevice(ctx context.Context, userID, deviceID string) error
	ListDevicesByUser(ctx context.Context, userID string) ([]model.Device, error)
	DeleteDevicesByToken(ctx context.Context, pushToken string) (int64, error)
	DeleteStaleDevices(ctx context.Context, before time.Time) (int64, error)
}

type NotificationRepository interface {
	// ListPendingExpiry returns items expiring on or before cutoff that have
	// no notification of their kind yet. Items with a date before today are
	// "expired", however long ago.
	ListPendingExpiry(ctx context.Context, today, cutoff string) ([]model.ExpiringItem, error)
	// RecordNotification is idempotent per (PantryItemID, Kind).
	RecordNotification(ctx context.Context, n *model.ExpiryNotification) error
}
