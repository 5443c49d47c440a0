package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/functions"
)

// AnalyzerService turns food photos into ingredient lists and ingredient
// lists into generated recipes.
type AnalyzerService struct {
	analyzer ImageAnalyzer
	fetcher  ImageFetcher
	maxBytes int64
	logger   *slog.Logger
}

func NewAnalyzerService(analyzer ImageAnalyzer, fetcher ImageFetcher, maxBytes int64, logger *slog.Logger) *AnalyzerService {
	return &AnalyzerService{analyzer: analyzer, fetcher: fetcher, maxBytes: maxBytes, logger: logger}
}

// AnalyzeUpload analyzes an uploaded image. size is the declared size in
// bytes, or -1 when unknown.
func (s *AnalyzerService) AnalyzeUpload(ctx context.Context, image io.Reader, filename, contentType string, size int64) (*functions.Analysis, error) {
	if !functions.IsImageType(contentType) {
		return nil, apperror.ValidationFailed("image", "Please choose an image file.")
	}
	if size > s.maxBytes {
		return nil, apperror.ValidationFailed("image", "The image is too large.")
	}
	if filename == "" {
		filename = "food.jpg"
	}

	analysis, err := s.analyzer.AnalyzeImage(ctx, image, filename, contentType)
	if err != nil {
		return nil, fmt.Errorf("service/analyzer: %w", err)
	}
	s.logger.Info("image analyzed", slog.Int("ingredients", len(analysis.Items)))
	return analysis, nil
}

// AnalyzeURL downloads the image first, then analyzes it.
func (s *AnalyzerService) AnalyzeURL(ctx context.Context, rawURL string) (*functions.Analysis, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, apperror.ValidationFailed("url", "Please enter an image link.")
	}
	img, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("service/analyzer: %w", err)
	}
	return s.AnalyzeUpload(ctx, img.Reader(), img.Filename, img.ContentType, int64(len(img.Data)))
}

// GenerateRecipe asks the model for a recipe using ingredients.
func (s *AnalyzerService) GenerateRecipe(ctx context.Context, ingredients string) (string, error) {
	ingredients = strings.TrimSpace(ingredients)
	if ingredients == "" {
		return "", apperror.ValidationFailed("ingredients", "Please provide some ingredients.")
	}
	recipe, err := s.analyzer.GenerateRecipe(ctx, ingredients)
	if err != nil {
		return "", fmt.Errorf("service/analyzer: %w", err)
	}
	return recipe, nil
}
