package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickethub/panel/internal/models"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = SetupTestDatabase(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = testDB.Teardown(ctx)
	os.Exit(code)
}

func freshServer(t *testing.T) *TestServer {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
	ts := NewTestServer(testDB.DB)
	t.Cleanup(ts.Close)
	return ts
}

func TestLoginLockoutFlow(t *testing.T) {
	ctx := context.Background()
	ts := freshServer(t)

	_, err := SeedAccount(ctx, testDB.Pool, TestOwnerID, models.RoleOwner, "correct-password")
	require.NoError(t, err)

	// Two failures stay under the threshold
	for i := 0; i < 2; i++ {
		_, status, err := ts.LoginAs(TestOwnerID, "wrong-password")
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, status)
	}

	// Third failure crosses the threshold and locks the account
	_, status, err := ts.LoginAs(TestOwnerID, "wrong-password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)

	// The correct password is rejected while locked: the lockout check
	// runs before the password is ever evaluated
	_, status, err = ts.LoginAs(TestOwnerID, "correct-password")
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, status)

	// Expire the lockout in the database
	_, err = testDB.Pool.Exec(ctx,
		`UPDATE login_attempts SET locked_until = now() - interval '1 minute' WHERE account_id = $1`,
		TestOwnerID)
	require.NoError(t, err)

	// An elapsed lockout is treated as absent
	token, status, err := ts.LoginAs(TestOwnerID, "correct-password")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, token)

	// Success resets the failure counter
	var failCount int
	err = testDB.Pool.QueryRow(ctx,
		`SELECT fail_count FROM login_attempts WHERE account_id = $1`, TestOwnerID).Scan(&failCount)
	require.NoError(t, err)
	assert.Equal(t, 0, failCount)
}

func TestLoginUnknownAccount(t *testing.T) {
	ts := freshServer(t)

	_, status, err := ts.LoginAs("999999999999999999", "whatever")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)

	// Unknown accounts never accrue failure records
	var count int
	err = testDB.Pool.QueryRow(context.Background(),
		`SELECT count(*) FROM login_attempts`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestLoginUnprovisionedAccount(t *testing.T) {
	ctx := context.Background()
	ts := freshServer(t)

	require.NoError(t, SeedUnprovisionedAccount(ctx, testDB.Pool, "223344556677889900", models.RoleAdmin))

	_, status, err := ts.LoginAs("223344556677889900", "anything")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestConcurrentFailuresNeverUndercount(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.CleanupTables(ctx))

	_, attemptRepo, _ := InitializeRepositories(testDB.DB)

	// Record failures concurrently; the atomic upsert must count every
	// one of them
	const attempts = 6
	done := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := attemptRepo.RecordFailure(ctx, TestOwnerID, 3, 10*time.Minute)
			done <- err
		}()
	}
	for i := 0; i < attempts; i++ {
		require.NoError(t, <-done)
	}

	var failCount int
	var lockedUntil *time.Time
	err := testDB.Pool.QueryRow(ctx,
		`SELECT fail_count, locked_until FROM login_attempts WHERE account_id = $1`,
		TestOwnerID).Scan(&failCount, &lockedUntil)
	require.NoError(t, err)
	assert.Equal(t, attempts, failCount)
	require.NotNil(t, lockedUntil)
	assert.True(t, lockedUntil.After(time.Now()))
}
