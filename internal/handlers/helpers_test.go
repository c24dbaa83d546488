package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/panel/internal/auth"
	"github.com/tickethub/panel/internal/models"
	"github.com/tickethub/panel/internal/services"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

const testActorID = "1435310225010987088"

type MockLoginService struct {
	LoginFunc func(ctx context.Context, accountID, password string) (*services.LoginResult, error)
}

func (m *MockLoginService) Login(ctx context.Context, accountID, password string) (*services.LoginResult, error) {
	return m.LoginFunc(ctx, accountID, password)
}

type MockSessionController struct {
	StartFunc       func(ctx context.Context, token, applicationID string) error
	StopFunc        func(ctx context.Context) error
	RestartFunc     func(ctx context.Context, token, applicationID string) error
	RunningFunc     func() bool
	SendMessageFunc func(ctx context.Context, channelID, text string) error
}

func (m *MockSessionController) Start(ctx context.Context, token, applicationID string) error {
	return m.StartFunc(ctx, token, applicationID)
}

func (m *MockSessionController) Stop(ctx context.Context) error {
	return m.StopFunc(ctx)
}

func (m *MockSessionController) Restart(ctx context.Context, token, applicationID string) error {
	return m.RestartFunc(ctx, token, applicationID)
}

func (m *MockSessionController) Running() bool {
	if m.RunningFunc != nil {
		return m.RunningFunc()
	}
	return false
}

func (m *MockSessionController) SendMessage(ctx context.Context, channelID, text string) error {
	return m.SendMessageFunc(ctx, channelID, text)
}

type MockGate struct {
	VerifyFunc func(ctx context.Context, supplied, operation, actorID string) error
}

func (m *MockGate) Verify(ctx context.Context, supplied, operation, actorID string) error {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, supplied, operation, actorID)
	}
	return nil
}

// acceptingGate approves one fixed secret and rejects everything else.
func acceptingGate(secret string) *MockGate {
	return &MockGate{
		VerifyFunc: func(ctx context.Context, supplied, operation, actorID string) error {
			if supplied == secret {
				return nil
			}
			return models.ErrInvalidMasterSecret
		},
	}
}

type MockSettingsStore struct {
	GetFunc    func(ctx context.Context) (*models.Settings, error)
	UpdateFunc func(ctx context.Context, s *models.Settings) (*models.Settings, error)
}

func (m *MockSettingsStore) Get(ctx context.Context) (*models.Settings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return &models.Settings{}, nil
}

func (m *MockSettingsStore) Update(ctx context.Context, s *models.Settings) (*models.Settings, error) {
	return m.UpdateFunc(ctx, s)
}

type MockAccountStore struct {
	GetByIDFunc func(ctx context.Context, id string) (*models.Account, error)
	ListFunc    func(ctx context.Context) ([]*models.Account, error)
	UpsertFunc  func(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error)
	DeleteFunc  func(ctx context.Context, id string) error
}

func (m *MockAccountStore) GetByID(ctx context.Context, id string) (*models.Account, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *MockAccountStore) List(ctx context.Context) ([]*models.Account, error) {
	return m.ListFunc(ctx)
}

func (m *MockAccountStore) Upsert(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error) {
	return m.UpsertFunc(ctx, id, role, addedBy)
}

func (m *MockAccountStore) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

type MockCredentialIssuer struct {
	IssueFunc func(ctx context.Context, accountID string, role models.Role, issuedBy string) (*services.IssuedCredential, error)
}

func (m *MockCredentialIssuer) Issue(ctx context.Context, accountID string, role models.Role, issuedBy string) (*services.IssuedCredential, error) {
	return m.IssueFunc(ctx, accountID, role, issuedBy)
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// jsonRequest builds a request with a JSON body and authenticated
// owner claims in context.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	claims := &models.TokenClaims{AccountID: testActorID, Role: models.RoleOwner}
	return req.WithContext(context.WithValue(req.Context(), auth.ClaimsContextKey, claims))
}

// withURLParam injects a chi route parameter the way the router would.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}
