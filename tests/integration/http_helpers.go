package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tickethub/panel/internal/auth"
	"github.com/tickethub/panel/internal/bot"
	"github.com/tickethub/panel/internal/config"
	"github.com/tickethub/panel/internal/database"
	"github.com/tickethub/panel/internal/handlers"
	"github.com/tickethub/panel/internal/routes"
	"github.com/tickethub/panel/internal/services"
	pkghttp "github.com/tickethub/panel/pkg/http"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

// TestOwnerID is the Discord snowflake of the seeded owner account
const TestOwnerID = "1435310225010987088"

// TestMasterPassword is the global master secret the test server accepts
const TestMasterPassword = "test-master-secret"

// StubGateway records outbound traffic instead of dialing Discord
type StubGateway struct {
	mu       sync.Mutex
	Opened   bool
	Closed   bool
	SentDMs  map[string][]string
	SentText map[string][]string
}

func NewStubGateway() *StubGateway {
	return &StubGateway{
		SentDMs:  make(map[string][]string),
		SentText: make(map[string][]string),
	}
}

func (g *StubGateway) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Opened = true
	return nil
}

func (g *StubGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Closed = true
	return nil
}

func (g *StubGateway) OverwriteCommands(applicationID string, specs []bot.CommandSpec) error {
	return nil
}

func (g *StubGateway) OnCommand(handler func(inv bot.Invocation)) {}

func (g *StubGateway) SendText(ctx context.Context, channelID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SentText[channelID] = append(g.SentText[channelID], text)
	return nil
}

func (g *StubGateway) SendEmbed(ctx context.Context, channelID string, embed bot.Embed) error {
	return nil
}

func (g *StubGateway) SendDM(ctx context.Context, accountID, text string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.SentDMs[accountID] = append(g.SentDMs[accountID], text)
	return nil
}

func (g *StubGateway) User(ctx context.Context, accountID string) (*bot.RemoteUser, error) {
	return &bot.RemoteUser{ID: accountID, Username: "testuser"}, nil
}

// TestServer wires the full HTTP stack against a real database and a
// stubbed chat gateway
type TestServer struct {
	Server  *httptest.Server
	DB      *database.DB
	Gateway *StubGateway
	Session *bot.Session
	Config  *config.Config

	logger *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + stubbed gateway
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret-32-characters-long-for-testing",
			TokenExpiry:     12 * time.Hour,
			MaxFailures:     3,
			LockoutDuration: 10 * time.Minute,
			CleanupInterval: 1 * time.Hour,
			MasterPassword:  TestMasterPassword,
		},
		Bot: config.BotConfig{
			Token:    "test-bot-token",
			ClientID: "112233445566778899",
			OwnerID:  TestOwnerID,
		},
		Server: config.ServerConfig{
			Port: "0",
			Env:  "test",
		},
	}

	accountRepo, attemptRepo, settingsRepo := InitializeRepositories(db)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	auditLogger := pkglogger.NewAuditLogger(logger)

	loginService := services.NewLoginService(
		accountRepo, attemptRepo, tokenManager,
		cfg.Auth.MaxFailures, cfg.Auth.LockoutDuration,
		logger, auditLogger,
	)
	masterGate := services.NewMasterSecretGate(
		cfg.Auth.MasterPassword, cfg.Auth.MasterPasswordHash, cfg.Bot.OwnerID,
		accountRepo, logger, auditLogger,
	)
	credentialService := services.NewCredentialService(accountRepo, logger, auditLogger)

	gateway := NewStubGateway()
	registry := bot.NewRegistry()
	registry.Register(&bot.HelpCommand{Settings: settingsRepo})
	registry.Register(&bot.PasswordGenerateCommand{
		OwnerID:     cfg.Bot.OwnerID,
		Gate:        masterGate,
		Credentials: credentialService,
	})

	dial := func(token string) (bot.Gateway, error) { return gateway, nil }
	session := bot.NewSession(dial, registry, settingsRepo, logger)
	credentialService.SetDeliverer(session)

	authHandler := handlers.NewAuthHandler(loginService, &pkghttp.IPConfig{}, logger)
	botHandler := handlers.NewBotHandler(session, masterGate, settingsRepo, cfg.Bot, logger)
	accountHandler := handlers.NewAccountHandler(
		accountRepo, credentialService, masterGate, cfg.Bot.OwnerID, logger, auditLogger)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, logger)

	router := chi.NewRouter()
	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, authHandler, botHandler, accountHandler, settingsHandler, tokenManager)
	})

	return &TestServer{
		Server:  httptest.NewServer(router),
		DB:      db,
		Gateway: gateway,
		Session: session,
		Config:  cfg,
		logger:  logger,
	}
}

func (ts *TestServer) Close() {
	if ts.Session != nil {
		_ = ts.Session.Stop(context.Background())
	}
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a session token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// LoginAs performs a login and returns the issued session token
func (ts *TestServer) LoginAs(accountID, password string) (string, int, error) {
	resp, err := ts.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"account_id": accountID,
		"password":   password,
	}, nil)
	if err != nil {
		return "", 0, err
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", resp.StatusCode, nil
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := ParseJSONResponse(resp, &result); err != nil {
		return "", resp.StatusCode, err
	}
	return result.Token, resp.StatusCode, nil
}
