package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tickethub/panel/internal/models"
	pkgauth "github.com/tickethub/panel/pkg/auth"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

// AccountRepository defines the account lookups the services need
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
}

// LoginAttemptRepository defines the failure-tracking operations used by the login guard
type LoginAttemptRepository interface {
	Get(ctx context.Context, accountID string) (*models.LoginAttempt, error)
	RecordFailure(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error)
	Reset(ctx context.Context, accountID string) error
}

// TokenIssuer mints session tokens after a successful login
type TokenIssuer interface {
	Generate(accountID string, role models.Role) (string, error)
}

// LoginService is the brute-force-resistant login guard. The lockout
// check runs strictly before the password comparison, so a locked
// account never learns whether the password it supplied was correct.
type LoginService struct {
	accounts    AccountRepository
	attempts    LoginAttemptRepository
	tokens      TokenIssuer
	maxFailures int
	lockout     time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewLoginService creates a new LoginService
func NewLoginService(
	accounts AccountRepository,
	attempts LoginAttemptRepository,
	tokens TokenIssuer,
	maxFailures int,
	lockout time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *LoginService {
	return &LoginService{
		accounts:    accounts,
		attempts:    attempts,
		tokens:      tokens,
		maxFailures: maxFailures,
		lockout:     lockout,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// LoginResult carries the issued session token and the account's role
type LoginResult struct {
	Token     string      `json:"token"`
	AccountID string      `json:"account_id"`
	Role      models.Role `json:"role"`
}

// Login evaluates a login attempt against the stored credential and the
// account's failure history.
func (s *LoginService) Login(ctx context.Context, accountID, password string) (*LoginResult, error) {
	attempt, err := s.attempts.Get(ctx, accountID)
	if err != nil {
		s.logger.Error("failed to load login attempt record", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if attempt.Locked(time.Now()) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     accountID,
			FailureReason: "locked_out",
			Success:       false,
		})
		return nil, models.ErrRateLimited
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown IDs do not accumulate lockout state; probing for
			// valid IDs is throttled upstream by the IP rate limit.
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "unknown_account",
				Success:       false,
			})
			return nil, models.ErrAccessDenied
		}
		s.logger.Error("failed to load account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !account.Provisioned() {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     account.ID,
			FailureReason: "credential_not_provisioned",
			Success:       false,
		})
		return nil, models.ErrCredentialNotProvisioned
	}

	if err := pkgauth.ComparePassword(*account.PasswordHash, password); err != nil {
		return nil, s.recordFailure(ctx, account.ID)
	}

	if err := s.attempts.Reset(ctx, account.ID); err != nil {
		// A stale counter is recoverable; the login itself succeeded.
		s.logger.Warn("failed to reset login attempt record",
			slog.String("account_id", account.ID), slog.Any("error", err))
	}

	token, err := s.tokens.Generate(account.ID, account.Role)
	if err != nil {
		s.logger.Error("failed to generate session token",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AccountID: account.ID,
		Success:   true,
	})

	return &LoginResult{
		Token:     token,
		AccountID: account.ID,
		Role:      account.Role,
	}, nil
}

// recordFailure persists a failed attempt and reports whether this
// failure crossed the lockout threshold.
func (s *LoginService) recordFailure(ctx context.Context, accountID string) error {
	updated, err := s.attempts.RecordFailure(ctx, accountID, s.maxFailures, s.lockout)
	if err != nil {
		s.logger.Error("failed to record login failure",
			slog.String("account_id", accountID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if updated.Locked(time.Now()) {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			AccountID:     accountID,
			FailureReason: "lockout_triggered",
			Success:       false,
		})
		return models.ErrRateLimited
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     accountID,
		FailureReason: "invalid_credential",
		Success:       false,
	})
	return models.ErrInvalidCredential
}
