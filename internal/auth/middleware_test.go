package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickethub/panel/internal/models"
)

func newAuthedRequest(t *testing.T, tm *TokenManager, accountID string, role models.Role) *http.Request {
	t.Helper()
	token, err := tm.Generate(accountID, role)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestRequireAuth_ValidToken(t *testing.T) {
	tm := NewTokenManager(testSecret, 12*time.Hour)

	var gotClaims *models.TokenClaims
	handler := RequireAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(t, tm, "123456789012345678", models.RoleAdmin))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotClaims)
	assert.Equal(t, "123456789012345678", gotClaims.AccountID)
	assert.Equal(t, models.RoleAdmin, gotClaims.Role)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, 12*time.Hour)

	handler := RequireAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/protected", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	tm := NewTokenManager(testSecret, 12*time.Hour)

	handler := RequireAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abcdef")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole_Allowed(t *testing.T) {
	tm := NewTokenManager(testSecret, 12*time.Hour)

	handler := RequireAuth(tm)(RequireRole(models.RoleOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(t, tm, "123456789012345678", models.RoleOwner))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRole_Forbidden(t *testing.T) {
	tm := NewTokenManager(testSecret, 12*time.Hour)

	handler := RequireAuth(tm)(RequireRole(models.RoleOwner)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not be reached")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(t, tm, "123456789012345678", models.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
