package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tickethub/panel/internal/models"
	pkgauth "github.com/tickethub/panel/pkg/auth"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

// CredentialAccountRepository defines the account mutations credential issuance needs
type CredentialAccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Upsert(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error)
	SetCredential(ctx context.Context, id, passwordHash, lastPassword string) error
}

// CredentialDeliverer attempts out-of-band delivery of a minted
// plaintext credential to its account holder.
type CredentialDeliverer interface {
	SendCredentialDM(ctx context.Context, accountID, plaintext string) error
}

// CredentialService mints login credentials for panel accounts.
type CredentialService struct {
	accounts    CredentialAccountRepository
	delivery    CredentialDeliverer
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewCredentialService creates a new CredentialService. Delivery is
// wired separately via SetDeliverer because the bot session that
// performs DM delivery is constructed after this service.
func NewCredentialService(
	accounts CredentialAccountRepository,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *CredentialService {
	return &CredentialService{
		accounts:    accounts,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// SetDeliverer installs the out-of-band delivery channel.
func (s *CredentialService) SetDeliverer(d CredentialDeliverer) {
	s.delivery = d
}

// IssuedCredential reports the two independent outcomes of a minting
// operation: the credential itself and whether out-of-band delivery of
// the plaintext succeeded.
type IssuedCredential struct {
	AccountID string      `json:"account_id"`
	Role      models.Role `json:"role"`
	Plaintext string      `json:"password"`
	Delivered bool        `json:"delivered"`
}

// Issue mints a fresh credential for accountID, creating the account
// with the given role when it does not exist yet. Delivery failure
// never fails the issuance.
func (s *CredentialService) Issue(ctx context.Context, accountID string, role models.Role, issuedBy string) (*IssuedCredential, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to load account for credential issuance", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
		if !role.Valid() {
			role = models.RoleAdmin
		}
		account, err = s.accounts.Upsert(ctx, accountID, role, issuedBy)
		if err != nil {
			s.logger.Error("failed to create account for credential issuance", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	plaintext, err := pkgauth.GeneratePassword()
	if err != nil {
		s.logger.Error("failed to generate credential", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hash, err := pkgauth.HashPassword(plaintext)
	if err != nil {
		s.logger.Error("failed to hash credential", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.accounts.SetCredential(ctx, account.ID, hash, plaintext); err != nil {
		s.logger.Error("failed to store credential",
			slog.String("account_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	delivered := false
	if s.delivery != nil {
		if err := s.delivery.SendCredentialDM(ctx, account.ID, plaintext); err != nil {
			s.logger.Warn("credential DM delivery failed",
				slog.String("account_id", account.ID), slog.Any("error", err))
		} else {
			delivered = true
		}
	}

	s.auditLogger.LogCredentialIssued(account.ID, issuedBy, delivered)

	return &IssuedCredential{
		AccountID: account.ID,
		Role:      account.Role,
		Plaintext: plaintext,
		Delivered: delivered,
	}, nil
}
