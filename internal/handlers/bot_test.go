package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/panel/internal/config"
	"github.com/tickethub/panel/internal/models"
)

const testMasterSecret = "hunter2-master"

func newBotHandler(sessions *MockSessionController, settings *MockSettingsStore) *BotHandler {
	if settings == nil {
		settings = &MockSettingsStore{}
	}
	return NewBotHandler(
		sessions,
		acceptingGate(testMasterSecret),
		settings,
		config.BotConfig{Token: "env-token", ClientID: "112233445566778899"},
		discardLogger(),
	)
}

func TestBotHandler_Status(t *testing.T) {
	handler := newBotHandler(&MockSessionController{RunningFunc: func() bool { return true }}, nil)

	rec := httptest.NewRecorder()
	handler.Status(rec, jsonRequest(t, http.MethodGet, "/api/bot/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[StatusResponse](t, rec).Running)
}

func TestBotHandler_Invite(t *testing.T) {
	handler := newBotHandler(&MockSessionController{}, nil)

	rec := httptest.NewRecorder()
	handler.Invite(rec, jsonRequest(t, http.MethodGet, "/api/bot/invite", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[InviteResponse](t, rec)
	assert.Contains(t, resp.InviteURL, "client_id=112233445566778899")
}

func TestBotHandler_InviteSettingsOverride(t *testing.T) {
	settings := &MockSettingsStore{
		GetFunc: func(ctx context.Context) (*models.Settings, error) {
			return &models.Settings{BotClientID: "998877665544332211"}, nil
		},
	}
	handler := newBotHandler(&MockSessionController{}, settings)

	rec := httptest.NewRecorder()
	handler.Invite(rec, jsonRequest(t, http.MethodGet, "/api/bot/invite", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody[InviteResponse](t, rec).InviteURL, "client_id=998877665544332211")
}

func TestBotHandler_VerifyMasterSecret(t *testing.T) {
	handler := newBotHandler(&MockSessionController{}, nil)

	rec := httptest.NewRecorder()
	handler.Verify(rec, jsonRequest(t, http.MethodPost, "/api/bot/verify",
		MasterSecretRequest{MasterPassword: testMasterSecret}))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.Verify(rec, jsonRequest(t, http.MethodPost, "/api/bot/verify",
		MasterSecretRequest{MasterPassword: "wrong"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBotHandler_ControlStart(t *testing.T) {
	var gotToken, gotClientID string
	sessions := &MockSessionController{
		StartFunc: func(ctx context.Context, token, applicationID string) error {
			gotToken, gotClientID = token, applicationID
			return nil
		},
		RunningFunc: func() bool { return true },
	}
	handler := newBotHandler(sessions, nil)

	req := withURLParam(jsonRequest(t, http.MethodPost, "/api/bot/control/start",
		MasterSecretRequest{MasterPassword: testMasterSecret}), "action", "start")
	rec := httptest.NewRecorder()

	handler.Control(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "env-token", gotToken)
	assert.Equal(t, "112233445566778899", gotClientID)
	assert.True(t, decodeBody[StatusResponse](t, rec).Running)
}

func TestBotHandler_ControlStartSettingsTokenOverride(t *testing.T) {
	var gotToken string
	sessions := &MockSessionController{
		StartFunc: func(ctx context.Context, token, applicationID string) error {
			gotToken = token
			return nil
		},
		RunningFunc: func() bool { return true },
	}
	settings := &MockSettingsStore{
		GetFunc: func(ctx context.Context) (*models.Settings, error) {
			return &models.Settings{BotToken: "rotated-token"}, nil
		},
	}
	handler := newBotHandler(sessions, settings)

	req := withURLParam(jsonRequest(t, http.MethodPost, "/api/bot/control/start",
		MasterSecretRequest{MasterPassword: testMasterSecret}), "action", "start")
	rec := httptest.NewRecorder()

	handler.Control(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "rotated-token", gotToken, "settings token must override the environment")
}

func TestBotHandler_ControlRequiresMasterSecret(t *testing.T) {
	called := false
	sessions := &MockSessionController{
		StartFunc: func(ctx context.Context, token, applicationID string) error {
			called = true
			return nil
		},
	}
	handler := newBotHandler(sessions, nil)

	req := withURLParam(jsonRequest(t, http.MethodPost, "/api/bot/control/start",
		MasterSecretRequest{MasterPassword: "wrong"}), "action", "start")
	rec := httptest.NewRecorder()

	handler.Control(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called, "a bearer token alone must never start the bot")
}

func TestBotHandler_ControlConnectFailure(t *testing.T) {
	sessions := &MockSessionController{
		StartFunc: func(ctx context.Context, token, applicationID string) error {
			return models.ErrConnect
		},
	}
	handler := newBotHandler(sessions, nil)

	req := withURLParam(jsonRequest(t, http.MethodPost, "/api/bot/control/start",
		MasterSecretRequest{MasterPassword: testMasterSecret}), "action", "start")
	rec := httptest.NewRecorder()

	handler.Control(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestBotHandler_ControlUnknownAction(t *testing.T) {
	handler := newBotHandler(&MockSessionController{}, nil)

	req := withURLParam(jsonRequest(t, http.MethodPost, "/api/bot/control/reboot",
		MasterSecretRequest{MasterPassword: testMasterSecret}), "action", "reboot")
	rec := httptest.NewRecorder()

	handler.Control(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBotHandler_ControlStop(t *testing.T) {
	stopped := false
	sessions := &MockSessionController{
		StopFunc: func(ctx context.Context) error {
			stopped = true
			return nil
		},
		RunningFunc: func() bool { return false },
	}
	handler := newBotHandler(sessions, nil)

	req := withURLParam(jsonRequest(t, http.MethodPost, "/api/bot/control/stop",
		MasterSecretRequest{MasterPassword: testMasterSecret}), "action", "stop")
	rec := httptest.NewRecorder()

	handler.Control(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, stopped)
	assert.False(t, decodeBody[StatusResponse](t, rec).Running)
}

func TestBotHandler_SendMessage(t *testing.T) {
	var gotChannel, gotText string
	sessions := &MockSessionController{
		SendMessageFunc: func(ctx context.Context, channelID, text string) error {
			gotChannel, gotText = channelID, text
			return nil
		},
	}
	handler := newBotHandler(sessions, nil)

	rec := httptest.NewRecorder()
	handler.SendMessage(rec, jsonRequest(t, http.MethodPost, "/api/bot/send", SendMessageRequest{
		MasterPassword: testMasterSecret,
		ChannelID:      "555666777888999000",
		Message:        "maintenance at midnight",
	}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "555666777888999000", gotChannel)
	assert.Equal(t, "maintenance at midnight", gotText)
}

func TestBotHandler_SendMessageWhileStopped(t *testing.T) {
	sessions := &MockSessionController{
		SendMessageFunc: func(ctx context.Context, channelID, text string) error {
			return models.ErrBotNotRunning
		},
	}
	handler := newBotHandler(sessions, nil)

	rec := httptest.NewRecorder()
	handler.SendMessage(rec, jsonRequest(t, http.MethodPost, "/api/bot/send", SendMessageRequest{
		MasterPassword: testMasterSecret,
		ChannelID:      "555666777888999000",
		Message:        "hello",
	}))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestBotHandler_SendMessageInvalidDestination(t *testing.T) {
	sessions := &MockSessionController{
		SendMessageFunc: func(ctx context.Context, channelID, text string) error {
			return fmt.Errorf("channel 555666777888999000: %w", models.ErrInvalidDestination)
		},
	}
	handler := newBotHandler(sessions, nil)

	rec := httptest.NewRecorder()
	handler.SendMessage(rec, jsonRequest(t, http.MethodPost, "/api/bot/send", SendMessageRequest{
		MasterPassword: testMasterSecret,
		ChannelID:      "555666777888999000",
		Message:        "hello",
	}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
