package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/tickethub/panel/internal/models"
	pkgauth "github.com/tickethub/panel/pkg/auth"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

// MasterSecretGate is the step-up authorization check in front of every
// privileged operation. It is stateless and carries no lockout: it
// protects operations, not identity, and each caller re-verifies on
// every invocation.
//
// The third accepted source equates knowing the owner account's login
// password with knowing the operator secret; see DESIGN.md.
type MasterSecretGate struct {
	secret      string
	secretHash  string
	ownerID     string
	accounts    AccountRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewMasterSecretGate creates a new MasterSecretGate
func NewMasterSecretGate(
	secret, secretHash, ownerID string,
	accounts AccountRepository,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *MasterSecretGate {
	return &MasterSecretGate{
		secret:      secret,
		secretHash:  secretHash,
		ownerID:     ownerID,
		accounts:    accounts,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Verify returns nil when the supplied secret matches any configured
// source, and ErrInvalidMasterSecret otherwise. operation and actorID
// are recorded for the audit trail only.
func (g *MasterSecretGate) Verify(ctx context.Context, supplied, operation, actorID string) error {
	if supplied != "" && g.matches(ctx, supplied) {
		g.auditLogger.LogMasterSecretCheck(operation, actorID, true)
		return nil
	}

	g.auditLogger.LogMasterSecretCheck(operation, actorID, false)
	return models.ErrInvalidMasterSecret
}

func (g *MasterSecretGate) matches(ctx context.Context, supplied string) bool {
	if g.secret != "" && subtle.ConstantTimeCompare([]byte(supplied), []byte(g.secret)) == 1 {
		return true
	}

	if g.secretHash != "" && pkgauth.ComparePassword(g.secretHash, supplied) == nil {
		return true
	}

	// Fallback: the owner account's own login password satisfies the gate.
	if g.ownerID != "" {
		owner, err := g.accounts.GetByID(ctx, g.ownerID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) {
				g.logger.Error("failed to load owner account for master secret check", slog.Any("error", err))
			}
			return false
		}
		if owner.Provisioned() && pkgauth.ComparePassword(*owner.PasswordHash, supplied) == nil {
			return true
		}
	}

	return false
}
