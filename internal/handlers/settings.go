package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tickethub/panel/internal/models"
	pkghttp "github.com/tickethub/panel/pkg/http"
)

// SettingsStoreInterface defines the settings persistence operations
type SettingsStoreInterface interface {
	Get(ctx context.Context) (*models.Settings, error)
	Update(ctx context.Context, s *models.Settings) (*models.Settings, error)
}

// SettingsHandler handles the singleton settings row
type SettingsHandler struct {
	store  SettingsStoreInterface
	logger *slog.Logger
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(store SettingsStoreInterface, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{store: store, logger: logger}
}

// UpdateSettingsRequest represents the request body for a settings
// update. An empty bot_token keeps the stored one, so the token never
// has to round-trip through the panel.
type UpdateSettingsRequest struct {
	WebsiteURL         string `json:"website_url" validate:"omitempty,url"`
	ImageURL           string `json:"image_url" validate:"omitempty,url"`
	BlacklistChannelID string `json:"blacklist_channel_id" validate:"omitempty,min=17,max=20"`
	BotToken           string `json:"bot_token"`
	BotClientID        string `json:"bot_client_id" validate:"omitempty,min=17,max=20"`
}

// SettingsResponse is the public view of the settings row. The bot
// token is reported only as present or absent.
type SettingsResponse struct {
	WebsiteURL         string    `json:"website_url"`
	ImageURL           string    `json:"image_url"`
	BlacklistChannelID string    `json:"blacklist_channel_id"`
	BotTokenSet        bool      `json:"bot_token_set"`
	BotClientID        string    `json:"bot_client_id"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toSettingsResponse(s *models.Settings) SettingsResponse {
	return SettingsResponse{
		WebsiteURL:         s.WebsiteURL,
		ImageURL:           s.ImageURL,
		BlacklistChannelID: s.BlacklistChannelID,
		BotTokenSet:        s.BotToken != "",
		BotClientID:        s.BotClientID,
		UpdatedAt:          s.UpdatedAt,
	}
}

// Get returns the current settings
// @Router /settings [get]
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// Update replaces the settings row
// @Router /settings [put]
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	current, err := h.store.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to load settings", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	next := &models.Settings{
		WebsiteURL:         req.WebsiteURL,
		ImageURL:           req.ImageURL,
		BlacklistChannelID: req.BlacklistChannelID,
		BotToken:           req.BotToken,
		BotClientID:        req.BotClientID,
	}
	if next.BotToken == "" {
		next.BotToken = current.BotToken
	}

	updated, err := h.store.Update(r.Context(), next)
	if err != nil {
		h.logger.Error("failed to update settings", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(updated))
}
