package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/kitchi/internal/apperror"
	"github.com/sakif/kitchi/internal/service"
)

// multipartOverhead is room for the multipart boundaries and headers on
// top of the image itself.
const multipartOverhead = 64 << 10

// AnalyzeHandler serves the photo-to-ingredients flow and recipe
// generation.
type AnalyzeHandler struct {
	svc      *service.AnalyzerService
	maxBytes int64
	logger   *slog.Logger
}

func NewAnalyzeHandler(svc *service.AnalyzerService, maxBytes int64, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{svc: svc, maxBytes: maxBytes, logger: logger}
}

type analyzeURLRequest struct {
	URL string `json:"url"`
}

type generateRecipeRequest struct {
	Ingredients string `json:"ingredients"`
}

type generateRecipeResponse struct {
	Recipe string `json:"recipe"`
}

// HandleAnalyze: POST /api/analyze, multipart form with an "image" file
// → {"ingredients": "<raw model text>", "items": ["eggs", ...]}
//
// The body is capped at the image limit so an oversized upload is cut off
// while reading instead of being buffered first.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, h.logger, apperror.ValidationFailed("image", "The image is too large."))
			return
		}
		writeError(w, r, h.logger, apperror.ValidationFailed("image", "Please choose an image file."))
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, h.logger, apperror.ValidationFailed("image", "Please choose an image file."))
		return
	}
	defer file.Close()

	analysis, err := h.svc.AnalyzeUpload(r.Context(), file, header.Filename, header.Header.Get("Content-Type"), header.Size)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// HandleAnalyzeURL: POST /api/analyze/url {"url": "https://..."}
//
// The server downloads the image itself; private and loopback addresses are
// refused.
func (h *AnalyzeHandler) HandleAnalyzeURL(w http.ResponseWriter, r *http.Request) {
	var req analyzeURLRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	analysis, err := h.svc.AnalyzeURL(r.Context(), req.URL)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

// HandleGenerateRecipe: POST /api/generate-recipe {"ingredients": "eggs, milk"}
// → {"recipe": "..."}
func (h *AnalyzeHandler) HandleGenerateRecipe(w http.ResponseWriter, r *http.Request) {
	var req generateRecipeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	recipe, err := h.svc.GenerateRecipe(r.Context(), req.Ingredients)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, generateRecipeResponse{Recipe: recipe})
}
