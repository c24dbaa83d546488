package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tickethub/panel/internal/auth"
	"github.com/tickethub/panel/internal/config"
	"github.com/tickethub/panel/internal/models"
	pkghttp "github.com/tickethub/panel/pkg/http"
)

// SessionControllerInterface defines the lifecycle and send operations
// of the external session controller
type SessionControllerInterface interface {
	Start(ctx context.Context, token, applicationID string) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context, token, applicationID string) error
	Running() bool
	SendMessage(ctx context.Context, channelID, text string) error
}

// MasterVerifierInterface defines the step-up authorization gate
type MasterVerifierInterface interface {
	Verify(ctx context.Context, supplied, operation, actorID string) error
}

// SettingsProviderInterface supplies the singleton settings row
type SettingsProviderInterface interface {
	Get(ctx context.Context) (*models.Settings, error)
}

// BotHandler handles external-session lifecycle and messaging requests.
// Every mutating endpoint re-verifies the master secret; a valid
// session token alone is never enough.
type BotHandler struct {
	sessions SessionControllerInterface
	gate     MasterVerifierInterface
	settings SettingsProviderInterface
	botCfg   config.BotConfig
	logger   *slog.Logger
}

// NewBotHandler creates a new BotHandler
func NewBotHandler(
	sessions SessionControllerInterface,
	gate MasterVerifierInterface,
	settings SettingsProviderInterface,
	botCfg config.BotConfig,
	logger *slog.Logger,
) *BotHandler {
	return &BotHandler{
		sessions: sessions,
		gate:     gate,
		settings: settings,
		botCfg:   botCfg,
		logger:   logger,
	}
}

// Request DTOs

// MasterSecretRequest carries only the master secret
type MasterSecretRequest struct {
	MasterPassword string `json:"master_password" validate:"required"`
}

// SendMessageRequest represents the request body for a channel send
type SendMessageRequest struct {
	MasterPassword string `json:"master_password" validate:"required"`
	ChannelID      string `json:"channel_id" validate:"required"`
	Message        string `json:"message" validate:"required,max=2000"`
}

// StatusResponse reports whether the external session is running
type StatusResponse struct {
	Running bool `json:"running"`
}

// InviteResponse carries the bot's server invite URL
type InviteResponse struct {
	InviteURL string `json:"invite_url"`
}

// Status reports the external session state
// @Router /bot/status [get]
func (h *BotHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Running: h.sessions.Running()})
}

// Invite returns the OAuth2 invite URL for the configured application
// @Router /bot/invite [get]
func (h *BotHandler) Invite(w http.ResponseWriter, r *http.Request) {
	_, clientID := h.connectCredentials(r.Context())
	if clientID == "" {
		pkghttp.WriteNotFound(w, "No bot client ID configured")
		return
	}

	url := fmt.Sprintf(
		"https://discord.com/oauth2/authorize?client_id=%s&permissions=8&scope=bot%%20applications.commands",
		clientID)
	writeJSON(w, http.StatusOK, InviteResponse{InviteURL: url})
}

// Verify checks a supplied master secret without performing any
// operation. The panel uses this to unlock its privileged UI, but the
// verdict is advisory only: every privileged endpoint re-checks.
// @Router /bot/verify [post]
func (h *BotHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req MasterSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.gate.Verify(r.Context(), req.MasterPassword, "master_verify", actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"verified": true})
}

// Control starts, stops or restarts the external session. The action
// is the last path segment: start, stop or restart.
// @Router /bot/control/{action} [post]
func (h *BotHandler) Control(w http.ResponseWriter, r *http.Request) {
	action := chi.URLParam(r, "action")

	var req MasterSecretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.gate.Verify(r.Context(), req.MasterPassword, "bot_"+action, actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	token, clientID := h.connectCredentials(r.Context())

	var err error
	switch action {
	case "start":
		err = h.requireCredentials(token, clientID, func() error {
			return h.sessions.Start(r.Context(), token, clientID)
		})
	case "stop":
		err = h.sessions.Stop(r.Context())
	case "restart":
		err = h.requireCredentials(token, clientID, func() error {
			return h.sessions.Restart(r.Context(), token, clientID)
		})
	default:
		pkghttp.WriteBadRequest(w, "Unknown action: must be start, stop or restart")
		return
	}

	if err != nil {
		h.logger.Error("bot control failed",
			slog.String("action", action), slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Running: h.sessions.Running()})
}

// SendMessage posts a message to a channel through the live session
// @Router /bot/send [post]
func (h *BotHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.gate.Verify(r.Context(), req.MasterPassword, "bot_send", actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.sessions.SendMessage(r.Context(), req.ChannelID, req.Message); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"sent": true})
}

// connectCredentials resolves the token and application ID, preferring
// the settings row over the environment so the panel can rotate the
// token without a redeploy.
func (h *BotHandler) connectCredentials(ctx context.Context) (token, clientID string) {
	token, clientID = h.botCfg.Token, h.botCfg.ClientID

	settings, err := h.settings.Get(ctx)
	if err != nil {
		h.logger.Warn("failed to load settings, using environment bot credentials", slog.Any("error", err))
		return token, clientID
	}
	if settings.BotToken != "" {
		token = settings.BotToken
	}
	if settings.BotClientID != "" {
		clientID = settings.BotClientID
	}
	return token, clientID
}

func (h *BotHandler) requireCredentials(token, clientID string, run func() error) error {
	if token == "" || clientID == "" {
		return fmt.Errorf("%w: no bot token or client ID configured", models.ErrBadRequest)
	}
	return run()
}

// actorID extracts the authenticated account ID for audit trails.
func actorID(r *http.Request) string {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		return claims.AccountID
	}
	return ""
}
