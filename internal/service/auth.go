package service

// AuthService is the business logic layer for authentication:
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT)           ↘ ProfileRepository (DB)
//
// Two ways in, one way out. Email/password sign-up and GitHub sign-in both
// end with a user row, a profile row and a session token.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/auth"
	"github.com/sakif/kitchi/internal/model"
	"github.com/sakif/kitchi/internal/repository"
)

// Messages the app shows verbatim.
const (
	msgMissingCredentials = "Please enter an email and password."
	msgInvalidCredentials = "Invalid login credentials"
)

// AuthService handles sign-up, sign-in and sign-out.
type AuthService struct {
	users     repository.UserRepository
	profiles  repository.ProfileRepository
	devices   repository.DeviceRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger

	// randIntn returns a number in [0, n). Tests pin it.
	randIntn func(n int) int
}

func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	devices repository.DeviceRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		profiles:  profiles,
		devices:   devices,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		randIntn:  rand.IntN,
	}
}

// AuthResult bundles the signed-in profile and its session token so the
// handler can set the cookie and respond in one step.
type AuthResult struct {
	Profile *model.Profile `json:"profile"`
	Token   string         `json:"token"`
}

// SignUpInput is the sign-up form. Username and FullName are optional.
type SignUpInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

// SignUp creates the account and its profile, then signs the user in.
//
// If the chosen or derived username is taken, the profile insert is retried
// exactly once with a random numeric suffix. A second conflict fails the
// sign-up and the half-created user is removed so the email can be reused.
func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", msgMissingCredentials)
	}
	if !strings.Contains(email, "@") {
		return nil, apperror.ValidationFailed("email", "Please enter a valid email address.")
	}
	if len(password) < MinPasswordLength {
		return nil, apperror.ValidationFailed("password",
			fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength))
	}

	// A chosen name keeps its characters; short ones are padded.
	username := strings.TrimSpace(in.Username)
	switch {
	case username == "":
		username = s.deriveUsername(email)
	case len(username) > MaxUsernameLength:
		return nil, apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be at most %d characters.", MaxUsernameLength))
	default:
		username = s.padUsername(username)
	}

	hash, err := s.passwords.Hash(password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password",
				fmt.Sprintf("Password must be at most %d bytes.", auth.MaxPasswordBytes))
		}
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	profile := &model.Profile{
		ID:       user.ID,
		Username: username,
		FullName: strings.TrimSpace(in.FullName),
		Email:    user.Email,
	}
	if err := s.createProfile(ctx, profile); err != nil {
		if delErr := s.users.DeleteUser(ctx, user.ID); delErr != nil {
			s.logger.Warn("failed to roll back user after profile error",
				slog.String("user_id", user.ID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("service/auth: creating profile: %w", err)
	}

	s.logger.Info("user signed up",
		slog.String("user_id", user.ID),
		slog.String("username", profile.Username),
	)
	return s.issue(profile)
}

// SignIn checks email and password. Unknown email and wrong password give
// the same error.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", msgMissingCredentials)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized(msgInvalidCredentials)
		}
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	profile, err := s.ensureProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed in", slog.String("user_id", user.ID))
	return s.issue(profile)
}

// SignOut forgets the device's push registration. Failing to do so is
// logged and never blocks the sign-out.
func (s *AuthService) SignOut(ctx context.Context, userID, deviceID string) {
	if userID == "" || deviceID == "" {
		return
	}
	if err := s.devices.DeleteDevice(ctx, userID, deviceID); err != nil {
		s.logger.Warn("failed to remove device on sign-out",
			slog.String("user_id", userID),
			slog.String("device_id", deviceID),
			slog.String("error", err.Error()),
		)
	}
}

// LoginOrRegisterGitHub handles the GitHub OAuth callback: link or create
// the user by GitHub id, make sure it has a profile, and issue a token.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, created, err := s.users.UpsertGitHubUser(ctx, ghUser.ID, ghUser.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	profile, err := s.profiles.GetProfile(ctx, user.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		username := sanitizeUsername(ghUser.Login)
		if len(username) < MinUsernameLength {
			username = s.deriveUsername(user.Email)
		}
		fullName := ghUser.Name
		if fullName == "" {
			fullName = ghUser.Login
		}
		profile = &model.Profile{ID: user.ID, Username: username, FullName: fullName, Email: user.Email}
		if err := s.createProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("service/auth: creating GitHub profile: %w", err)
		}
	default:
		return nil, fmt.Errorf("service/auth: loading profile %s: %w", user.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("user_id", user.ID),
		slog.String("login", ghUser.Login),
		slog.Bool("new_user", created),
	)
	return s.issue(profile)
}

// Me returns the signed-in user's profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.Profile, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return s.ensureProfile(ctx, user)
}

// ensureProfile loads the user's profile, creating one with a derived
// username for accounts that somehow have none.
func (s *AuthService) ensureProfile(ctx context.Context, user *model.User) (*model.Profile, error) {
	profile, err := s.profiles.GetProfile(ctx, user.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: loading profile %s: %w", user.ID, err)
	}

	profile = &model.Profile{ID: user.ID, Username: s.deriveUsername(user.Email), Email: user.Email}
	if err := s.createProfile(ctx, profile); err != nil {
		return nil, fmt.Errorf("service/auth: creating missing profile: %w", err)
	}
	return profile, nil
}

// createProfile upserts p, retrying once with a suffixed username on a
// username conflict.
func (s *AuthService) createProfile(ctx context.Context, p *model.Profile) error {
	err := s.profiles.UpsertProfile(ctx, p)
	if err == nil || !errors.Is(err, apperror.ErrConflict) {
		return err
	}

	taken := p.Username
	p.Username = fmt.Sprintf("%s_%d", taken, s.randIntn(10000))
	s.logger.Info("username taken, retrying",
		slog.String("taken", taken),
		slog.String("retry", p.Username),
	)
	return s.profiles.UpsertProfile(ctx, p)
}

func (s *AuthService) issue(profile *model.Profile) (*AuthResult, error) {
	token, err := s.tokens.Generate(profile.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", profile.ID, err)
	}
	return &AuthResult{Profile: profile, Token: token}, nil
}

// deriveUsername builds a username from the email's local part: only
// [a-zA-Z0-9_], at most 20 chars, "user" if nothing is left, and a random
// number appended when shorter than 3 chars.
func (s *AuthService) deriveUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	base := sanitizeUsername(local)
	if len(base) > 20 {
		base = base[:20]
	}
	if base == "" {
		base = "user"
	}
	return s.padUsername(base)
}

// padUsername appends a random number in [0, 1000) to names shorter than
// MinUsernameLength.
func (s *AuthService) padUsername(username string) string {
	if len(username) < MinUsernameLength {
		return fmt.Sprintf("%s%d", username, s.randIntn(1000))
	}
	return username
}

func sanitizeUsername(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validateUsername checks a name edited on the profile form.
func validateUsername(username string) error {
	if n := len(username); n < MinUsernameLength || n > MaxUsernameLength {
		return apperror.ValidationFailed("username",
			fmt.Sprintf("Username must be between %d and %d characters.", MinUsernameLength, MaxUsernameLength))
	}
	if sanitizeUsername(username) != username {
		return apperror.ValidationFailed("username", "Username may only contain letters, numbers and underscores.")
	}
	return nil
}
