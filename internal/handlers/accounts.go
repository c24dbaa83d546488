package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tickethub/panel/internal/models"
	"github.com/tickethub/panel/internal/services"
	pkghttp "github.com/tickethub/panel/pkg/http"
	pkglogger "github.com/tickethub/panel/pkg/logger"
)

// AccountStoreInterface defines the account persistence operations
type AccountStoreInterface interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context) ([]*models.Account, error)
	Upsert(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}

// CredentialIssuerInterface mints panel login credentials
type CredentialIssuerInterface interface {
	Issue(ctx context.Context, accountID string, role models.Role, issuedBy string) (*services.IssuedCredential, error)
}

// AccountHandler handles operator account management. All routes are
// owner-only; credential minting additionally re-verifies the master
// secret.
type AccountHandler struct {
	store       AccountStoreInterface
	credentials CredentialIssuerInterface
	gate        MasterVerifierInterface
	ownerID     string
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(
	store AccountStoreInterface,
	credentials CredentialIssuerInterface,
	gate MasterVerifierInterface,
	ownerID string,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AccountHandler {
	return &AccountHandler{
		store:       store,
		credentials: credentials,
		gate:        gate,
		ownerID:     ownerID,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Request/response DTOs

// CreateAccountRequest represents the request body for adding an admin
type CreateAccountRequest struct {
	AccountID string `json:"account_id" validate:"required,min=17,max=20"`
	Role      string `json:"role" validate:"omitempty,oneof=ADMIN OWNER"`
}

// MintPasswordRequest represents the request body for credential minting
type MintPasswordRequest struct {
	AccountID      string `json:"account_id" validate:"required,min=17,max=20"`
	Role           string `json:"role" validate:"omitempty,oneof=ADMIN OWNER"`
	MasterPassword string `json:"master_password" validate:"required"`
}

// AccountResponse is the public view of an account. It never carries
// the password hash or the retained plaintext.
type AccountResponse struct {
	AccountID   string    `json:"account_id"`
	Role        string    `json:"role"`
	Provisioned bool      `json:"provisioned"`
	AddedBy     string    `json:"added_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CredentialResponse is the owner-only credential recovery view
type CredentialResponse struct {
	AccountID    string `json:"account_id"`
	Role         string `json:"role"`
	LastPassword string `json:"last_password,omitempty"`
}

func toAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		AccountID:   a.ID,
		Role:        string(a.Role),
		Provisioned: a.Provisioned(),
		AddedBy:     a.AddedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// List returns all operator accounts
// @Router /accounts [get]
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list accounts", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		resp = append(resp, toAccountResponse(a))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListCredentials returns the retained last-issued plaintexts so the
// owner can recover a credential whose DM delivery failed
// @Router /accounts/credentials [get]
func (h *AccountHandler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list accounts", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	resp := make([]CredentialResponse, 0, len(accounts))
	for _, a := range accounts {
		cred := CredentialResponse{AccountID: a.ID, Role: string(a.Role)}
		if a.LastPassword != nil {
			cred.LastPassword = *a.LastPassword
		}
		resp = append(resp, cred)
	}

	h.auditLogger.LogAccountAction("credentials_viewed", "", actorID(r), nil)
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one account by ID
// @Router /accounts/{id} [get]
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	account, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// Create registers a new admin account without a credential. The
// credential is minted separately so the two audit events stay distinct.
// @Router /accounts [post]
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleAdmin
	}

	account, err := h.store.Upsert(r.Context(), req.AccountID, role, actorID(r))
	if err != nil {
		h.logger.Error("failed to create account", slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	h.auditLogger.LogAccountAction("account_created", account.ID, actorID(r),
		map[string]string{"role": string(account.Role)})
	writeJSON(w, http.StatusCreated, toAccountResponse(account))
}

// MintPassword issues a fresh credential over HTTP, master-secret
// gated. The plaintext is returned once in the response; delivery over
// DM is attempted but its failure does not fail the mint.
// @Router /accounts/password [post]
func (h *AccountHandler) MintPassword(w http.ResponseWriter, r *http.Request) {
	var req MintPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.gate.Verify(r.Context(), req.MasterPassword, "password_mint", actorID(r)); err != nil {
		writeServiceError(w, err)
		return
	}

	role := models.Role(req.Role)
	if role == "" {
		role = models.RoleAdmin
	}

	issued, err := h.credentials.Issue(r.Context(), req.AccountID, role, actorID(r))
	if err != nil {
		h.logger.Error("credential minting failed",
			slog.String("account_id", req.AccountID), slog.Any("error", err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, issued)
}

// Delete removes an operator account. The configured owner account
// cannot be deleted.
// @Router /accounts/{id} [delete]
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if id == h.ownerID {
		pkghttp.WriteForbidden(w, "The owner account cannot be deleted")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}

	h.auditLogger.LogAccountAction("account_deleted", id, actorID(r), nil)
	w.WriteHeader(http.StatusNoContent)
}
