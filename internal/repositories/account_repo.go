package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tickethub/panel/internal/database"
	"github.com/tickethub/panel/internal/models"
)

type AccountRepository struct {
	pool *pgxpool.Pool
}

func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{pool: db.Pool}
}

// rowScanner interface for scanning account rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

const accountColumns = "id, role, password_hash, last_password, added_by, created_at, updated_at"

func scanAccountRow(scanner rowScanner) (*models.Account, error) {
	var account models.Account
	err := scanner.Scan(
		&account.ID, &account.Role, &account.PasswordHash,
		&account.LastPassword, &account.AddedBy,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &account, nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccountRow(r.pool.QueryRow(ctx, query, id))
}

func (r *AccountRepository) List(ctx context.Context) ([]*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	accounts := make([]*models.Account, 0)
	for rows.Next() {
		account, err := scanAccountRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return accounts, nil
}

// Upsert creates the account or updates its role and creator. Issued
// credentials survive role changes.
func (r *AccountRepository) Upsert(ctx context.Context, id string, role models.Role, addedBy string) (*models.Account, error) {
	query := `
		INSERT INTO accounts (id, role, added_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			role = EXCLUDED.role,
			added_by = EXCLUDED.added_by,
			updated_at = now()
		RETURNING ` + accountColumns

	return scanAccountRow(r.pool.QueryRow(ctx, query, id, role, addedBy))
}

// SetCredential stores a freshly issued credential: the bcrypt hash used
// for login plus the plaintext retained for operator recovery.
func (r *AccountRepository) SetCredential(ctx context.Context, id, passwordHash, lastPassword string) error {
	query := `
		UPDATE accounts
		SET password_hash = $2, last_password = $3, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, passwordHash, lastPassword)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
