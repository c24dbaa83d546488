package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tickethub/panel/internal/models"
	pkghttp "github.com/tickethub/panel/pkg/http"
)

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps service-layer sentinel errors onto HTTP
// responses. Handlers with endpoint-specific mappings switch on the
// sentinels themselves before falling back to this.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrInvalidMasterSecret):
		pkghttp.WriteUnauthorized(w, "Invalid master password")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication required")
	case errors.Is(err, models.ErrForbidden), errors.Is(err, models.ErrAccessDenied):
		pkghttp.WriteForbidden(w, "Access denied")
	case errors.Is(err, models.ErrRateLimited):
		pkghttp.WriteTooManyRequests(w, "Too many requests")
	case errors.Is(err, models.ErrBadRequest), errors.Is(err, models.ErrInvalidDestination):
		pkghttp.WriteBadRequest(w, "Invalid request")
	case errors.Is(err, models.ErrBotNotRunning):
		pkghttp.WriteConflict(w, "The bot is not running")
	case errors.Is(err, models.ErrConnect), errors.Is(err, models.ErrDeliveryFailed):
		pkghttp.WriteError(w, http.StatusBadGateway, "upstream_error", "The chat platform could not be reached")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
