package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/kitchi/internal/service"
)

// EventStream upgrades a request into a live stream of one user's events.
// Implemented by *realtime.Hub.
type EventStream interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

// PantryHandler serves the pantry list, item add/delete and the live
// change stream.
type PantryHandler struct {
	svc    *service.PantryService
	events EventStream
	logger *slog.Logger
}

func NewPantryHandler(svc *service.PantryService, events EventStream, logger *slog.Logger) *PantryHandler {
	return &PantryHandler{svc: svc, events: events, logger: logger}
}

type addBatchRequest struct {
	Items []service.AddPantryItemInput `json:"items"`
}

// HandleList: GET /api/pantry?order=asc|desc
func (h *PantryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, err := h.svc.List(r.Context(), userID, r.URL.Query().Get("order"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// HandleAdd: POST /api/pantry {"foodName", "expiryDate"} → 201 item
func (h *PantryHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req service.AddPantryItemInput
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	item, err := h.svc.Add(r.Context(), userID, req)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// HandleAddBatch: POST /api/pantry/batch {"items": [...]} → 201 items
//
// Used by the photo flow after the user picks detected ingredients. The
// batch is all-or-nothing.
func (h *PantryHandler) HandleAddBatch(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	var req addBatchRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	items, err := h.svc.AddMany(r.Context(), userID, req.Items)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, items)
}

// HandleDelete: DELETE /api/pantry/{id} → 204
func (h *PantryHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvents: GET /api/pantry/events (websocket)
//
// Streams {"type":"pantry.inserted"|"pantry.deleted","item":{...}} for the
// caller's own pantry until the socket closes.
func (h *PantryHandler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.events.Serve(w, r, userID)
}
