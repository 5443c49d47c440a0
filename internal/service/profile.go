package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

// ProfileService reads and edits the public profile.
type ProfileService struct {
	profiles repository.ProfileRepository
	users    repository.UserRepository
	logger   *slog.Logger
}

func NewProfileService(profiles repository.ProfileRepository, users repository.UserRepository, logger *slog.Logger) *ProfileService {
	return &ProfileService{profiles: profiles, users: users, logger: logger}
}

// UpdateProfileInput is the profile form.
type UpdateProfileInput struct {
	Username string `json:"username"`
	FullName string `json:"fullName"`
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: %w", err)
	}
	return p, nil
}

// Update upserts the profile. A username another user owns is a conflict.
func (s *ProfileService) Update(ctx context.Context, userID string, in UpdateProfileInput) (*model.Profile, error) {
	username := strings.TrimSpace(in.Username)
	fullName := strings.TrimSpace(in.FullName)
	if username == "" {
		return nil, apperror.ValidationFailed("username", "Please enter a username.")
	}
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if len(fullName) > MaxFullNameLength {
		return nil, apperror.ValidationFailed("fullName",
			fmt.Sprintf("Full name must be at most %d characters.", MaxFullNameLength))
	}

	p := &model.Profile{ID: userID, Username: username, FullName: fullName}

	// The first save for an account without a profile needs the email.
	if _, err := s.profiles.GetProfile(ctx, userID); errors.Is(err, apperror.ErrNotFound) {
		user, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("service/profile: loading user %s: %w", userID, err)
		}
		p.Email = user.Email
	}

	if err := s.profiles.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("service/profile: saving %s: %w", userID, err)
	}

	s.logger.Info("profile updated", slog.String("user_id", userID), slog.String("username", username))
	return s.profiles.GetProfile(ctx, userID)
}
