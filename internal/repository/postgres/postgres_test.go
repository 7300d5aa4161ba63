package postgres

import (
	"Shortly-Backend/internal/database"
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// setupStorage starts a throwaway PostgreSQL container and runs the
// schema migrations against it.
func setupStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		tcpostgres.WithDatabase("shortly_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	log := zap.NewNop()
	require.NoError(t, database.AutoMigrate(db, log))

	return New(db, log)
}

func TestPostgresStorage_MappingLifecycle(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	m := &domain.Mapping{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com/page",
		IsActive:    true,
	}
	require.NoError(t, storage.SaveMapping(ctx, m))
	assert.NotZero(t, m.ID)

	// Duplicate short code surfaces the sentinel.
	err := storage.SaveMapping(ctx, &domain.Mapping{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com/other",
		IsActive:    true,
	})
	assert.ErrorIs(t, err, repository.ErrCodeExists)

	found, err := storage.FindActiveByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", found.OriginalURL)

	byURL, err := storage.FindActiveByURL(ctx, "https://example.com/page")
	require.NoError(t, err)
	assert.Equal(t, "abc123", byURL.ShortCode)

	require.NoError(t, storage.DeactivateMapping(ctx, "abc123"))

	_, err = storage.FindActiveByCode(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	// The row survives soft deletion.
	raw, err := storage.FindByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.False(t, raw.IsActive)

	err = storage.DeactivateMapping(ctx, "abc123")
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)
}

func TestPostgresStorage_ExpiredMappingNotFound(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	expired := time.Now().Add(-time.Minute)
	require.NoError(t, storage.SaveMapping(ctx, &domain.Mapping{
		ShortCode:   "gone99",
		OriginalURL: "https://example.com/expired",
		IsActive:    true,
		ExpiresAt:   &expired,
	}))

	_, err := storage.FindActiveByCode(ctx, "gone99")
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)
}

func TestPostgresStorage_RecordAccess(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	m := &domain.Mapping{
		ShortCode:   "abc123",
		OriginalURL: "https://example.com/page",
		IsActive:    true,
	}
	require.NoError(t, storage.SaveMapping(ctx, m))

	for i := 0; i < 3; i++ {
		require.NoError(t, storage.RecordAccess(ctx, m.ID, &domain.AccessEntry{
			MappingID: m.ID,
			Timestamp: time.Now(),
			UserAgent: "Mozilla/5.0",
			IPAddress: "203.0.113.9",
			Referer:   domain.UnknownValue,
		}))
	}

	found, err := storage.FindActiveByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(3), found.ClickCount)
	assert.NotNil(t, found.LastAccessedAt)

	entries, err := storage.ListRecentAccesses(ctx, m.ID, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	stats, err := storage.AccessStats(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.UniqueUserAgents)
	assert.Equal(t, int64(1), stats.UniqueIPAddresses)

	err = storage.RecordAccess(ctx, 99999, &domain.AccessEntry{MappingID: 99999})
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)
}

func TestPostgresStorage_Aggregates(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	codes := []string{"one111", "two222", "three3"}
	for i, code := range codes {
		m := &domain.Mapping{
			ShortCode:   code,
			OriginalURL: "https://example.com/" + code,
			IsActive:    true,
		}
		require.NoError(t, storage.SaveMapping(ctx, m))
		for j := 0; j <= i; j++ {
			require.NoError(t, storage.RecordAccess(ctx, m.ID, &domain.AccessEntry{
				MappingID: m.ID,
				Timestamp: time.Now(),
				UserAgent: "Mozilla/5.0",
				IPAddress: "203.0.113.9",
				Referer:   domain.UnknownValue,
			}))
		}
	}

	count, err := storage.CountActiveMappings(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	clicks, err := storage.SumClicks(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(6), clicks)

	top, err := storage.TopMappingsByClicks(ctx, nil, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "three3", top[0].ShortCode)

	trends, err := storage.DailyTrends(ctx, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	require.NotEmpty(t, trends)
	assert.Equal(t, int64(3), trends[len(trends)-1].Created)
	assert.Equal(t, int64(6), trends[len(trends)-1].Clicks)
}

func TestPostgresStorage_Users(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	user := &domain.User{
		Email:        "user@example.com",
		PasswordHash: "not-a-real-hash",
		IsActive:     true,
	}
	require.NoError(t, storage.CreateUser(ctx, user))
	assert.NotZero(t, user.ID)

	err := storage.CreateUser(ctx, &domain.User{
		Email:        "user@example.com",
		PasswordHash: "other",
		IsActive:     true,
	})
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	byEmail, err := storage.GetUserByEmail(ctx, "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)

	_, err = storage.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, repository.ErrUserNotFound)

	byID, err := storage.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", byID.Email)
}
