package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/db"
	"github.com/ignatzorin/servicehub-backend/internal/logger"
	"github.com/ignatzorin/servicehub-backend/internal/models"
)

// Тесты гоняют SQL на живой базе: TEST_DATABASE_URL=postgres://... go test ./internal/repository/
func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	logger.Init("error", false)

	ctx := context.Background()
	conn, err := db.NewPostgres(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, db.RunMigrations(ctx, conn, "../../migrations"))
	return conn
}

func newTestUser(t *testing.T, conn *sqlx.DB) *models.User {
	t.Helper()
	email := uuid.NewString() + "@test.local"
	user := &models.User{Username: &email, Email: &email}
	require.NoError(t, NewUserRepository(conn).Create(context.Background(), user))
	t.Cleanup(func() {
		_, _ = conn.Exec(`DELETE FROM users WHERE id = $1`, user.ID)
	})
	return user
}

func TestOTPRepository_UpsertKeepsSingleRow(t *testing.T) {
	conn := newTestDB(t)
	repo := NewOTPRepository(conn)
	ctx := context.Background()
	user := newTestUser(t, conn)
	now := time.Now().UTC().Truncate(time.Microsecond)

	first := &models.OTP{UserID: user.ID, Value: "111111", CreatedAt: now}
	require.NoError(t, repo.Upsert(ctx, first))
	require.True(t, first.IsActive)

	second := &models.OTP{UserID: user.ID, Value: "222222", CreatedAt: now.Add(time.Second)}
	require.NoError(t, repo.Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	_, err := repo.GetActive(ctx, user.ID, "111111")
	assert.ErrorIs(t, err, ErrOTPNotFound)

	got, err := repo.GetActive(ctx, user.ID, "222222")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(second.CreatedAt))

	var rows int
	require.NoError(t, conn.Get(&rows, `SELECT COUNT(*) FROM otps WHERE user_id = $1`, user.ID))
	assert.Equal(t, 1, rows)
}

func TestOTPRepository_ConsumeOnce(t *testing.T) {
	conn := newTestDB(t)
	repo := NewOTPRepository(conn)
	ctx := context.Background()
	user := newTestUser(t, conn)

	otp := &models.OTP{UserID: user.ID, Value: "123456", CreatedAt: time.Now().UTC()}
	require.NoError(t, repo.Upsert(ctx, otp))

	const workers = 8
	var (
		mu        sync.Mutex
		successes int
		wg        sync.WaitGroup
	)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.Consume(ctx, otp)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)

	ok, err := repo.Consume(ctx, otp)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetActive(ctx, user.ID, "123456")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestOTPRepository_DeactivateIgnoresReissuedCode(t *testing.T) {
	conn := newTestDB(t)
	repo := NewOTPRepository(conn)
	ctx := context.Background()
	user := newTestUser(t, conn)
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, repo.Upsert(ctx, &models.OTP{UserID: user.ID, Value: "111111", CreatedAt: now.Add(-10 * time.Minute)}))
	stale, err := repo.GetActive(ctx, user.ID, "111111")
	require.NoError(t, err)

	require.NoError(t, repo.Upsert(ctx, &models.OTP{UserID: user.ID, Value: "222222", CreatedAt: now}))
	require.NoError(t, repo.Deactivate(ctx, stale))

	fresh, err := repo.GetActive(ctx, user.ID, "222222")
	require.NoError(t, err)
	assert.True(t, fresh.IsActive)

	require.NoError(t, repo.Deactivate(ctx, fresh))
	_, err = repo.GetActive(ctx, user.ID, "222222")
	assert.ErrorIs(t, err, ErrOTPNotFound)
}
