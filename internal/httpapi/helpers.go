package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "gitlab.com/timkado/api/daisi-wa-crm-api/internal/apperrors"
	"gitlab.com/timkado/api/daisi-wa-crm-api/pkg/logger"
)

const defaultBodyLimit = 1 << 20 // 1 MiB

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, defaultBodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
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

// queryInt reads an integer query parameter with a default.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Log.Error("Failed to write JSON response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeAppError maps the application error taxonomy onto HTTP status codes.
// Bodies stay generic; details are logged server-side only.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.IsUnauthorizedError(err):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case apperrors.IsNotFoundError(err):
		writeError(w, http.StatusNotFound, "resource not found")
	case apperrors.IsValidationError(err) || apperrors.IsBadRequestError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case apperrors.IsUnconfiguredError(err):
		writeError(w, http.StatusPreconditionFailed, "whatsapp account not configured")
	case apperrors.IsDuplicateError(err) || apperrors.IsConflictError(err):
		writeError(w, http.StatusConflict, "resource conflict")
	case apperrors.IsExternalCallError(err):
		writeError(w, http.StatusBadGateway, "upstream provider call failed")
	default:
		logger.FromContext(r.Context()).Error("Unhandled application error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
