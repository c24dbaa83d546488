package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tickethub/panel/internal/models"
	pkglogger "github.com/tickethub/panel/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountRepository is a test double with function fields
type MockAccountRepository struct {
	GetByIDFunc       func(ctx context.Context, id string) (*models.Account, error)
	UpsertFunc        func(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error)
	SetCredentialFunc func(ctx context.Context, id, passwordHash, lastPassword string) error
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) Upsert(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, id, role, addedBy)
	}
	return &models.Account{ID: id, Role: role, AddedBy: addedBy}, nil
}

func (m *MockAccountRepository) SetCredential(ctx context.Context, id, passwordHash, lastPassword string) error {
	if m.SetCredentialFunc != nil {
		return m.SetCredentialFunc(ctx, id, passwordHash, lastPassword)
	}
	return nil
}

// MockLoginAttemptRepository is a test double with function fields
type MockLoginAttemptRepository struct {
	GetFunc           func(ctx context.Context, accountID string) (*models.LoginAttempt, error)
	RecordFailureFunc func(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error)
	ResetFunc         func(ctx context.Context, accountID string) error
}

func (m *MockLoginAttemptRepository) Get(ctx context.Context, accountID string) (*models.LoginAttempt, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *MockLoginAttemptRepository) RecordFailure(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error) {
	if m.RecordFailureFunc != nil {
		return m.RecordFailureFunc(ctx, accountID, threshold, lockout)
	}
	return &models.LoginAttempt{AccountID: accountID, FailCount: 1}, nil
}

func (m *MockLoginAttemptRepository) Reset(ctx context.Context, accountID string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, accountID)
	}
	return nil
}

// MockTokenIssuer is a test double with function fields
type MockTokenIssuer struct {
	GenerateFunc func(accountID string, role models.Role) (string, error)
}

func (m *MockTokenIssuer) Generate(accountID string, role models.Role) (string, error) {
	if m.GenerateFunc != nil {
		return m.GenerateFunc(accountID, role)
	}
	return "test-token", nil
}

// MockDeliverer is a test double with function fields
type MockDeliverer struct {
	SendCredentialDMFunc func(ctx context.Context, accountID, plaintext string) error
}

func (m *MockDeliverer) SendCredentialDM(ctx context.Context, accountID, plaintext string) error {
	if m.SendCredentialDMFunc != nil {
		return m.SendCredentialDMFunc(ctx, accountID, plaintext)
	}
	return nil
}

func testAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(slog.Default())
}

// quickHash hashes at minimum cost; comparison does not depend on cost
func quickHash(t *testing.T, password string) *string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	s := string(hash)
	return &s
}

func futureTime(d time.Duration) *time.Time {
	ts := time.Now().Add(d)
	return &ts
}
