package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/CareerForge/internal/adapter/litellm"
	"github.com/Strob0t/CareerForge/internal/domain"
	"github.com/Strob0t/CareerForge/internal/extract"
	"github.com/Strob0t/CareerForge/internal/resilience"
	"github.com/Strob0t/CareerForge/internal/service"
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// requireField writes a 400 error and returns false when value is empty.
func requireField(w http.ResponseWriter, value, fieldName string) bool {
	if strings.TrimSpace(value) == "" {
		writeError(w, http.StatusBadRequest, fieldName+" is required")
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

// generationErrorResponse is returned when model output is unusable.
type generationErrorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details"`
	RawResponse string `json:"raw_response,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "resource was modified by another request")
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	default:
		writeInternalError(w, err)
	}
}

// writeGenerateError maps failures of a model-backed operation. Unusable
// model output becomes 502 carrying the raw text; an unavailable provider
// becomes 502 or 503; everything else goes through writeDomainError.
func writeGenerateError(w http.ResponseWriter, err error, fallbackMsg string) {
	var genErr *service.GenerationError
	var tooLarge *extract.InputTooLargeError
	var apiErr *litellm.APIError
	switch {
	case errors.As(err, &tooLarge):
		writeJSON(w, http.StatusBadGateway, generationErrorResponse{
			Error:   "Failed to parse AI response",
			Details: tooLarge.Error(),
		})
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, generationErrorResponse{
			Error:       "Failed to parse AI response",
			Details:     strings.TrimPrefix(genErr.Err.Error(), domain.ErrValidation.Error()+": "),
			RawResponse: genErr.Raw,
		})
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "text generation temporarily unavailable")
	case errors.As(err, &apiErr), errors.Is(err, litellm.ErrEmptyCompletion):
		slog.Error("text generation failed", "error", err)
		writeError(w, http.StatusBadGateway, "text generation failed")
	default:
		writeDomainError(w, err, fallbackMsg)
	}
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
