// Package handler contains the HTTP handlers for the Kitchi API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path values, query params, JSON body)
//  2. Call the service that owns the rule
//  3. Write the response (status code, JSON body)
//
// Handlers do not contain business logic. They are the glue between HTTP
// and the service layer, and they never touch the database directly.
package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON / writeError so the app always
// gets the same shapes:
//
//	success: the resource itself, as JSON
//	failure: {"error": "validation_error", "message": "Please fill in both fields."}
//
// The app shows `message` in its alert dialog verbatim, so services write
// messages for people, and `error` is the stable machine-readable code.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/auth"
)

// maxJSONBody caps JSON request bodies. Image uploads have their own limit.
const maxJSONBody = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeJSON sets headers, then status, then body. Headers written after the
// body has started are silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status.
//
// errors.Is walks the whole chain, so a service error like
//
//	fmt.Errorf("service/pantry: deleting x: %w", apperror.NotFound(...))
//
// still maps to 404. Anything that isn't an *apperror.AppError is a bug or
// an infrastructure failure: it is logged with the request id and the client
// only sees a generic 500, never the raw message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Something went wrong. Please try again.",
		})
		return
	}

	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("upstream request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, ErrorResponse{Error: code, Message: appErr.Message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched
// when allowEmpty is set (sign-out sends none).
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF) && allowEmpty:
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.ValidationFailed("body", "The request is too large.")
	}
	return apperror.ValidationFailed("body", "Invalid JSON body.")
}

// currentUser returns the id RequireAuth stored. Routes behind RequireAuth
// always have one; the error keeps a mis-wired route from acting as "".
func currentUser(r *http.Request) (string, error) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("Please sign in again.")
	}
	return userID, nil
}
