// Package service contains the business logic of the Kitchi API.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services also orchestrate the outbound clients (recipe API, serverless
// functions) behind small interfaces declared here, so tests can swap in
// hand-written fakes without an HTTP server.
//
// Errors that should reach the user are *apperror.AppError values; their
// Message is shown as-is in the app's alert dialog.
package service

import (
	"context"
	"io"

	"github.com/sakif/kitchi/internal/functions"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/spoonacular"
)

// Validation limits.
const (
	MaxFoodNameLength  = 100
	MaxBatchItems      = 50
	MinUsernameLength  = 3
	MaxUsernameLength  = 30
	MaxFullNameLength  = 100
	MinPasswordLength  = 6
	DefaultRecipeCount = 10
	MaxRecipeCount     = 100
)

// RecipeAPI is the subset of *spoonacular.Client the services call.
type RecipeAPI interface {
	FindByIngredients(ctx context.Context, ingredients []string, number int) ([]model.Recipe, error)
	Information(ctx context.Context, id int) (*spoonacular.Information, error)
	InformationBulk(ctx context.Context, ids []int) ([]model.Recipe, error)
}

// DetailCache caches recipe details. *recipecache.Cache implements it.
type DetailCache interface {
	Get(ctx context.Context, id int) (*model.RecipeDetail, bool)
	Set(ctx context.Context, detail *model.RecipeDetail)
}

// EventPublisher fans pantry events out to a user's open sessions.
// *realtime.Hub implements it.
type EventPublisher interface {
	Publish(userID string, payload any)
}

// ImageAnalyzer is the subset of *functions.Client the analyzer uses.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, image io.Reader, filename, contentType string) (*functions.Analysis, error)
	GenerateRecipe(ctx context.Context, ingredients string) (string, error)
}

// ImageFetcher downloads an image from a user-supplied URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*functions.Image, error)
}
