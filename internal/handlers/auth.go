package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tickethub/panel/internal/models"
	"github.com/tickethub/panel/internal/services"
	pkghttp "github.com/tickethub/panel/pkg/http"
)

// LoginServiceInterface defines the interface for the login guard
type LoginServiceInterface interface {
	Login(ctx context.Context, accountID, password string) (*services.LoginResult, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service  LoginServiceInterface
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service LoginServiceInterface, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	AccountID string `json:"account_id" validate:"required"`
	Password  string `json:"password" validate:"required"`
}

// Login handles operator login
// @Summary Operator login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} services.LoginResult
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.AccountID = strings.TrimSpace(req.AccountID)

	result, err := h.service.Login(r.Context(), req.AccountID, req.Password)
	if err != nil {
		h.logger.Info("login rejected",
			slog.String("account_id", req.AccountID),
			slog.String("ip", pkghttp.ExtractClientIP(r, h.ipConfig)),
			slog.Any("error", err))

		switch {
		case errors.Is(err, models.ErrRateLimited):
			pkghttp.WriteTooManyRequests(w, "Too many failed login attempts. Please try again later.")
		case errors.Is(err, models.ErrAccessDenied):
			pkghttp.WriteForbidden(w, "Access denied")
		case errors.Is(err, models.ErrInvalidCredential),
			errors.Is(err, models.ErrCredentialNotProvisioned):
			// Same response for both to prevent probing for provisioned accounts
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}
