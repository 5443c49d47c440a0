package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/kitchi/internal/service"
)

// DeviceHandler registers push tokens for expiry reminders.
type DeviceHandler struct {
	svc    *service.DeviceService
	logger *slog.Logger
}

func NewDeviceHandler(svc *service.DeviceService, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{svc: svc, logger: logger}
}

// HandleRegister: PUT /api/devices
// BODY: {"deviceId", "pushToken", "platform", "appVersion"}
//
// Sent on every app start; the latest token for a device wins.
func (h *DeviceHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req service.RegisterDeviceInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	d, err := h.svc.Register(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// HandleUnregister: DELETE /api/devices/{deviceID} → 204
func (h *DeviceHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Unregister(r.Context(), userID, r.PathValue("deviceID")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
