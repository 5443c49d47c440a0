package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/auth"
	"github.com/sakif/kitchi/internal/service"
)

const stateCookieName = "oauth_state"

// GitHubOAuth is the part of auth.GitHubProvider the handler needs.
type GitHubOAuth interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler serves sign-up, sign-in, sign-out, GitHub OAuth and /api/me.
//
// The mobile app keeps the token from the JSON body and sends it as a
// Bearer header. Browsers get the same token as an HttpOnly cookie.
type AuthHandler struct {
	svc      *service.AuthService
	github   GitHubOAuth // nil when GitHub sign-in is not configured
	tokenTTL time.Duration
	logger   *slog.Logger
}

func NewAuthHandler(svc *service.AuthService, github GitHubOAuth, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, github: github, tokenTTL: tokenTTL, logger: logger}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signOutRequest struct {
	DeviceID string `json:"deviceId"`
}

// HandleSignUp creates an account.
//
// HTTP: POST /auth/signup
// BODY: {"email", "password", "fullName"?, "username"?}
// 201:  {"profile": {...}, "token": "<jwt>"}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.SignUp(r.Context(), req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setSessionCookie(w, r, result.Token)
	writeJSON(w, http.StatusCreated, result)
}

// HandleSignIn checks email and password.
//
// HTTP: POST /auth/signin
// 401 with "Invalid login credentials" for unknown email or wrong password.
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	result, err := h.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	h.setSessionCookie(w, r, result.Token)
	writeJSON(w, http.StatusOK, result)
}

// HandleSignOut clears the cookie and forgets the device's push token.
//
// HTTP: POST /auth/signout (OptionalAuth)
// BODY: {"deviceId": "..."} or empty
//
// Always 200: an expired session or a failed device cleanup must not keep
// the user signed in on the client.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	var req signOutRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		h.logger.Debug("ignoring unreadable sign-out body", slog.String("error", err.Error()))
	}

	if userID, ok := auth.UserIDFromContext(r.Context()); ok {
		h.svc.SignOut(r.Context(), userID, req.DeviceID)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

// HandleGitHubLogin redirects to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state goes into a short-lived HttpOnly cookie and into the
// redirect; the callback only proceeds when both match (CSRF check).
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, h.logger, apperror.NotFound("sign-in provider", "github"))
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
//  1. state must match the cookie
//  2. code is exchanged for the GitHub profile
//  3. the user is linked or created, with a profile
//  4. the session cookie is set and the browser goes home
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeError(w, r, h.logger, apperror.NotFound("sign-in provider", "github"))
		return
	}

	q := r.URL.Query()
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || q.Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeError(w, r, h.logger, apperror.ValidationFailed("state", "Invalid sign-in state. Please try again."))
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, r, h.logger, apperror.ValidationFailed("code", "Missing sign-in code."))
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	result, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("github_id", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, "/?auth=failed", http.StatusSeeOther)
		return
	}

	h.setSessionCookie(w, r, result.Token)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	profile, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// isHTTPS also trusts X-Forwarded-Proto from the reverse proxy.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
