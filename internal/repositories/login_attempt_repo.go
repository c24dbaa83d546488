package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tickethub/panel/internal/database"
	"github.com/tickethub/panel/internal/models"
)

// LoginAttemptRepository persists per-account failure counters. The
// increment-and-maybe-lock step runs as a single upsert so concurrent
// failed logins for the same account never under-count toward the
// lockout threshold.
type LoginAttemptRepository struct {
	pool *pgxpool.Pool
}

func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{pool: db.Pool}
}

const attemptColumns = "account_id, fail_count, locked_until, updated_at"

func scanAttemptRow(scanner rowScanner) (*models.LoginAttempt, error) {
	var attempt models.LoginAttempt
	err := scanner.Scan(
		&attempt.AccountID, &attempt.FailCount,
		&attempt.LockedUntil, &attempt.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &attempt, nil
}

// Get returns the failure record for an account ID, or nil if none exists.
func (r *LoginAttemptRepository) Get(ctx context.Context, accountID string) (*models.LoginAttempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM login_attempts WHERE account_id = $1`

	attempt, err := scanAttemptRow(r.pool.QueryRow(ctx, query, accountID))
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// RecordFailure atomically increments the failure counter, setting the
// lockout expiry when the new count reaches threshold. It returns the
// updated record so the caller can tell whether this failure crossed
// the threshold.
func (r *LoginAttemptRepository) RecordFailure(ctx context.Context, accountID string, threshold int, lockout time.Duration) (*models.LoginAttempt, error) {
	query := `
		INSERT INTO login_attempts (account_id, fail_count, locked_until)
		VALUES ($1, 1, CASE WHEN 1 >= $2 THEN now() + $3 ELSE NULL END)
		ON CONFLICT (account_id) DO UPDATE SET
			fail_count = login_attempts.fail_count + 1,
			locked_until = CASE
				WHEN login_attempts.fail_count + 1 >= $2 THEN now() + $3
				ELSE login_attempts.locked_until
			END,
			updated_at = now()
		RETURNING ` + attemptColumns

	return scanAttemptRow(r.pool.QueryRow(ctx, query, accountID, threshold, lockout))
}

// Reset clears the failure counter and any lockout after a successful login.
func (r *LoginAttemptRepository) Reset(ctx context.Context, accountID string) error {
	query := `
		INSERT INTO login_attempts (account_id, fail_count, locked_until)
		VALUES ($1, 0, NULL)
		ON CONFLICT (account_id) DO UPDATE SET
			fail_count = 0,
			locked_until = NULL,
			updated_at = now()
	`

	_, err := r.pool.Exec(ctx, query, accountID)
	return err
}

// PurgeStale removes records that carry no live lockout and have not
// been touched within the retention window.
func (r *LoginAttemptRepository) PurgeStale(ctx context.Context, retention time.Duration) (int64, error) {
	query := `
		DELETE FROM login_attempts
		WHERE (locked_until IS NULL OR locked_until <= now())
		  AND updated_at <= now() - $1
	`

	tag, err := r.pool.Exec(ctx, query, retention)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
