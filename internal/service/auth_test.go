package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/auth"
)

type authFixture struct {
	svc      *AuthService
	users    *fakeUserRepo
	profiles *fakeProfileRepo
	devices  *fakeDeviceRepo
	tokens   *auth.TokenService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16", time.Hour)
	require.NoError(t, err)

	f := &authFixture{
		users:    newFakeUserRepo(),
		profiles: newFakeProfileRepo(),
		devices:  newFakeDeviceRepo(),
		tokens:   tokens,
	}
	f.svc = NewAuthService(f.users, f.profiles, f.devices, tokens, auth.NewPasswordServiceForTest(4), discardLogger())
	f.svc.randIntn = func(n int) int { return 42 }
	return f
}

func TestSignUp_DerivesUsernameFromEmail(t *testing.T) {
	f := newAuthFixture(t)

	res, err := f.svc.SignUp(context.Background(), SignUpInput{
		Email:    "  Jane.Doe+kitchen@example.com ",
		Password: "secret123",
		FullName: "Jane Doe",
	})
	require.NoError(t, err)

	assert.Equal(t, "JaneDoekitchen", res.Profile.Username)
	assert.Equal(t, "Jane Doe", res.Profile.FullName)
	assert.Equal(t, "jane.doe+kitchen@example.com", res.Profile.Email)

	userID, err := f.tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, userID)
}

func TestSignUp_UsernameDerivation(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"averyveryverylongemailaddress@example.com", "averyveryverylongema"},
		{"ab@example.com", "ab42"},
		{"...@example.com", "user"},
		{"snake_case@example.com", "snake_case"},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			f := newAuthFixture(t)
			res, err := f.svc.SignUp(context.Background(), SignUpInput{Email: tt.email, Password: "secret123"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Profile.Username)
		})
	}
}

func TestSignUp_ChosenUsername(t *testing.T) {
	tests := []struct {
		username string
		want     string
	}{
		{"ab", "ab42"},
		{"  x  ", "x42"},
		{"john.doe", "john.doe"},
		{"Chef Remy", "Chef Remy"},
	}
	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			f := newAuthFixture(t)
			res, err := f.svc.SignUp(context.Background(), SignUpInput{
				Email: "x@y.z", Password: "secret123", Username: tt.username,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Profile.Username)
			assert.Equal(t, []string{tt.want}, f.profiles.upserts)
		})
	}
}

func TestSignUp_RetriesOnceOnUsernameConflict(t *testing.T) {
	f := newAuthFixture(t)
	f.profiles.conflicts["chef"] = true

	res, err := f.svc.SignUp(context.Background(), SignUpInput{
		Email: "a@example.com", Password: "secret123", Username: "chef",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"chef", "chef_42"}, f.profiles.upserts)
	assert.Equal(t, "chef_42", res.Profile.Username)
}

func TestSignUp_SecondConflictFails(t *testing.T) {
	f := newAuthFixture(t)
	f.profiles.conflicts["chef"] = true
	f.profiles.conflicts["chef_42"] = true

	_, err := f.svc.SignUp(context.Background(), SignUpInput{
		Email: "a@example.com", Password: "secret123", Username: "chef",
	})

	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Len(t, f.profiles.upserts, 2, "exactly one retry")
	assert.Len(t, f.users.deleted, 1, "half-created user is removed")
}

func TestSignUp_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      SignUpInput
		message string
	}{
		{"empty email", SignUpInput{Password: "secret123"}, "Please enter an email and password."},
		{"blank password", SignUpInput{Email: "a@b.com", Password: "   "}, "Please enter an email and password."},
		{"short password", SignUpInput{Email: "a@b.com", Password: "123"}, "Password should be at least 6 characters."},
		{"long username", SignUpInput{Email: "a@b.com", Password: "secret123", Username: strings.Repeat("x", 31)}, "Username must be at most 30 characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.SignUp(context.Background(), tt.in)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.True(t, errors.Is(err, apperror.ErrValidation))
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Email: "a@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = f.svc.SignUp(ctx, SignUpInput{Email: "A@example.com", Password: "other123"})
	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.True(t, errors.Is(err, apperror.ErrConflict))
	assert.Equal(t, "User already registered", appErr.Message)
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signup, err := f.svc.SignUp(ctx, SignUpInput{Email: "cook@example.com", Password: "secret123"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		res, err := f.svc.SignIn(ctx, "cook@example.com", "secret123")
		require.NoError(t, err)
		assert.Equal(t, signup.Profile.ID, res.Profile.ID)
		assert.NotEmpty(t, res.Token)
	})

	for _, tc := range []struct{ name, email, password string }{
		{"wrong password", "cook@example.com", "nope1234"},
		{"unknown email", "ghost@example.com", "secret123"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.SignIn(ctx, tc.email, tc.password)
			assert.True(t, errors.Is(err, apperror.ErrUnauthorized))
			assert.Equal(t, "Invalid login credentials", err.Error())
		})
	}
}

func TestSignOut_RemovesDevice(t *testing.T) {
	f := newAuthFixture(t)

	f.svc.SignOut(context.Background(), "user-1", "device-a")

	assert.Equal(t, []string{"user-1/device-a"}, f.devices.deleted)
}

func TestSignOut_DeviceErrorDoesNotBlock(t *testing.T) {
	f := newAuthFixture(t)
	f.devices.deleteErr = errors.New("db is locked")

	assert.NotPanics(t, func() {
		f.svc.SignOut(context.Background(), "user-1", "device-a")
	})
}

func TestSignOut_NoDeviceID(t *testing.T) {
	f := newAuthFixture(t)

	f.svc.SignOut(context.Background(), "user-1", "")

	assert.Empty(t, f.devices.deleted)
}

func TestLoginOrRegisterGitHub(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	gh := &auth.GitHubUser{ID: 99, Login: "octo-cat", Name: "Octo Cat", Email: "octo@example.com"}

	first, err := f.svc.LoginOrRegisterGitHub(ctx, gh)
	require.NoError(t, err)
	assert.Equal(t, "octocat", first.Profile.Username)
	assert.Equal(t, "Octo Cat", first.Profile.FullName)

	second, err := f.svc.LoginOrRegisterGitHub(ctx, gh)
	require.NoError(t, err)
	assert.Equal(t, first.Profile.ID, second.Profile.ID)
	assert.Len(t, f.profiles.upserts, 1, "existing profile is reused")
}

func TestLoginOrRegisterGitHub_NilUser(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.LoginOrRegisterGitHub(context.Background(), nil)
	assert.Error(t, err)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signup, err := f.svc.SignUp(ctx, SignUpInput{Email: "me@example.com", Password: "secret123"})
	require.NoError(t, err)

	profile, err := f.svc.Me(ctx, signup.Profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "me42", profile.Username)

	_, err = f.svc.Me(ctx, "missing")
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}
