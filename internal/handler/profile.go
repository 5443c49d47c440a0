package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/kitchi/internal/service"
)

// ProfileHandler serves the account screen.
type ProfileHandler struct {
	svc    *service.ProfileService
	logger *slog.Logger
}

func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{svc: svc, logger: logger}
}

// HandleGet: GET /api/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate: PUT /api/profile {"username", "fullName"}
// A username someone else has is 409.
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req service.UpdateProfileInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	p, err := h.svc.Update(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
