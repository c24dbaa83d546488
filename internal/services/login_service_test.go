package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickethub/panel/internal/models"
)

const (
	testAccountID = "123456789012345678"
	testPassword  = "hunter2-issued"
)

func newLoginService(accounts *MockAccountRepository, attempts *MockLoginAttemptRepository) *LoginService {
	return NewLoginService(
		accounts,
		attempts,
		&MockTokenIssuer{},
		3,
		10*time.Minute,
		slog.Default(),
		testAuditLogger(),
	)
}

func TestLoginService_LockedOut_PasswordNeverEvaluated(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			t.Fatal("account must not be consulted while locked")
			return nil, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		GetFunc: func(ctx context.Context, accountID string) (*models.LoginAttempt, error) {
			return &models.LoginAttempt{
				AccountID:   accountID,
				FailCount:   3,
				LockedUntil: futureTime(5 * time.Minute),
			}, nil
		},
	}

	svc := newLoginService(accounts, attempts)
	result, err := svc.Login(context.Background(), testAccountID, testPassword)

	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Nil(t, result)
}

func TestLoginService_ExpiredLockout_ReevaluatesNormally(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{
				ID:           id,
				Role:         models.RoleAdmin,
				PasswordHash: quickHash(t, testPassword),
			}, nil
		},
	}
	resetCalled := false
	attempts := &MockLoginAttemptRepository{
		GetFunc: func(ctx context.Context, accountID string) (*models.LoginAttempt, error) {
			return &models.LoginAttempt{
				AccountID:   accountID,
				FailCount:   3,
				LockedUntil: futureTime(-1 * time.Second),
			}, nil
		},
		ResetFunc: func(ctx context.Context, accountID string) error {
			resetCalled = true
			return nil
		},
	}

	svc := newLoginService(accounts, attempts)
	result, err := svc.Login(context.Background(), testAccountID, testPassword)

	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, result.Role)
	assert.True(t, resetCalled, "success must reset the failure record")
}

func TestLoginService_UnknownAccount(t *testing.T) {
	recorded := false
	attempts := &MockLoginAttemptRepository{
		RecordFailureFunc: func(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error) {
			recorded = true
			return nil, nil
		},
	}

	svc := newLoginService(&MockAccountRepository{}, attempts)
	result, err := svc.Login(context.Background(), "999999999999999999", "whatever")

	assert.ErrorIs(t, err, models.ErrAccessDenied)
	assert.Nil(t, result)
	assert.False(t, recorded, "unknown accounts must not accumulate failure records")
}

func TestLoginService_NotProvisioned(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{ID: id, Role: models.RoleAdmin}, nil
		},
	}

	svc := newLoginService(accounts, &MockLoginAttemptRepository{})
	result, err := svc.Login(context.Background(), testAccountID, "anything")

	assert.ErrorIs(t, err, models.ErrCredentialNotProvisioned)
	assert.Nil(t, result)
}

func TestLoginService_WrongPassword_UnderThreshold(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{
				ID:           id,
				Role:         models.RoleAdmin,
				PasswordHash: quickHash(t, testPassword),
			}, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		RecordFailureFunc: func(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error) {
			assert.Equal(t, 3, threshold)
			assert.Equal(t, 10*time.Minute, lockout)
			return &models.LoginAttempt{AccountID: accountID, FailCount: 1}, nil
		},
	}

	svc := newLoginService(accounts, attempts)
	_, err := svc.Login(context.Background(), testAccountID, "wrong-password")

	assert.ErrorIs(t, err, models.ErrInvalidCredential)
}

func TestLoginService_WrongPassword_CrossesThreshold(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{
				ID:           id,
				Role:         models.RoleAdmin,
				PasswordHash: quickHash(t, testPassword),
			}, nil
		},
	}
	attempts := &MockLoginAttemptRepository{
		RecordFailureFunc: func(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error) {
			return &models.LoginAttempt{
				AccountID:   accountID,
				FailCount:   3,
				LockedUntil: futureTime(lockout),
			}, nil
		},
	}

	svc := newLoginService(accounts, attempts)
	_, err := svc.Login(context.Background(), testAccountID, "wrong-password")

	assert.ErrorIs(t, err, models.ErrRateLimited,
		"the failure that crosses the threshold must surface as rate limited")
}

func TestLoginService_Success(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{
				ID:           id,
				Role:         models.RoleOwner,
				PasswordHash: quickHash(t, testPassword),
			}, nil
		},
	}
	var resetID string
	attempts := &MockLoginAttemptRepository{
		GetFunc: func(ctx context.Context, accountID string) (*models.LoginAttempt, error) {
			return &models.LoginAttempt{AccountID: accountID, FailCount: 2}, nil
		},
		ResetFunc: func(ctx context.Context, accountID string) error {
			resetID = accountID
			return nil
		},
	}

	svc := newLoginService(accounts, attempts)
	result, err := svc.Login(context.Background(), testAccountID, testPassword)

	require.NoError(t, err)
	assert.Equal(t, "test-token", result.Token)
	assert.Equal(t, testAccountID, result.AccountID)
	assert.Equal(t, models.RoleOwner, result.Role)
	assert.Equal(t, testAccountID, resetID, "success must reset the counter regardless of prior state")
}

func TestLoginService_LockoutWindowPassedToStore(t *testing.T) {
	accounts := &MockAccountRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.Account, error) {
			return &models.Account{
				ID:           id,
				Role:         models.RoleAdmin,
				PasswordHash: quickHash(t, testPassword),
			}, nil
		},
	}
	var gotLockout time.Duration
	attempts := &MockLoginAttemptRepository{
		RecordFailureFunc: func(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error) {
			gotLockout = lockout
			return &models.LoginAttempt{AccountID: accountID, FailCount: 1}, nil
		},
	}

	svc := NewLoginService(accounts, attempts, &MockTokenIssuer{}, 3, 10*time.Minute, slog.Default(), testAuditLogger())
	_, _ = svc.Login(context.Background(), testAccountID, "wrong")

	assert.Equal(t, 10*time.Minute, gotLockout)
}
