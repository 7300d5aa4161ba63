package analytics

import (
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/internal/repository/memory"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func recordClicks(t *testing.T, storage *memory.MemStorage, mappingID int64, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, storage.RecordAccess(context.Background(), mappingID, &domain.AccessEntry{
			MappingID: mappingID,
			Timestamp: time.Now(),
			UserAgent: fmt.Sprintf("agent-%d", i),
			IPAddress: fmt.Sprintf("203.0.113.%d", i%4),
			Referer:   domain.UnknownValue,
		}))
	}
}

func TestSummary(t *testing.T) {
	storage := memory.New()
	aggregator := NewAggregator(storage, zap.NewNop())
	ctx := context.Background()

	for i, clicks := range []int{5, 3, 0} {
		m := seedMapping(t, storage, fmt.Sprintf("code%02d", i))
		recordClicks(t, storage, m.ID, clicks)
	}

	summary, err := aggregator.Summary(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(3), summary.TotalActiveURLs)
	assert.Equal(t, int64(8), summary.TotalClicks)
	assert.InDelta(t, 8.0/3.0, summary.AvgClicksPerURL, 0.001)

	require.NotEmpty(t, summary.TopURLs)
	assert.Equal(t, "code00", summary.TopURLs[0].ShortCode)
	assert.Equal(t, int64(5), summary.TopURLs[0].ClickCount)
	assert.Len(t, summary.RecentURLs, 3)
}

func TestSummary_Empty(t *testing.T) {
	aggregator := NewAggregator(memory.New(), zap.NewNop())

	summary, err := aggregator.Summary(context.Background(), nil)
	require.NoError(t, err)

	assert.Zero(t, summary.TotalActiveURLs)
	assert.Zero(t, summary.TotalClicks)
	assert.Zero(t, summary.AvgClicksPerURL)
	assert.Empty(t, summary.TopURLs)
}

func TestSummary_OwnerScoped(t *testing.T) {
	storage := memory.New()
	aggregator := NewAggregator(storage, zap.NewNop())
	ctx := context.Background()

	ownerID := int64(7)
	owned := &domain.Mapping{
		ShortCode: "owned1", OriginalURL: "https://example.com/owned",
		OwnerID: &ownerID, IsActive: true,
	}
	require.NoError(t, storage.SaveMapping(ctx, owned))
	recordClicks(t, storage, owned.ID, 4)

	other := seedMapping(t, storage, "anon01")
	recordClicks(t, storage, other.ID, 9)

	summary, err := aggregator.Summary(ctx, &ownerID)
	require.NoError(t, err)

	assert.Equal(t, int64(1), summary.TotalActiveURLs)
	assert.Equal(t, int64(4), summary.TotalClicks)
	require.Len(t, summary.TopURLs, 1)
	assert.Equal(t, "owned1", summary.TopURLs[0].ShortCode)
}

func TestTrends_ClampsPeriod(t *testing.T) {
	aggregator := NewAggregator(memory.New(), zap.NewNop())
	ctx := context.Background()

	report, err := aggregator.Trends(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PeriodDays)

	report, err = aggregator.Trends(ctx, 10000)
	require.NoError(t, err)
	assert.Equal(t, 365, report.PeriodDays)

	report, err = aggregator.Trends(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, report.PeriodDays)
}

func TestTrends_BucketsByDay(t *testing.T) {
	storage := memory.New()
	aggregator := NewAggregator(storage, zap.NewNop())
	ctx := context.Background()

	m := seedMapping(t, storage, "abc123")
	recordClicks(t, storage, m.ID, 3)

	report, err := aggregator.Trends(ctx, 7)
	require.NoError(t, err)
	require.NotEmpty(t, report.Trends)

	today := time.Now().UTC().Format("2006-01-02")
	var found bool
	for _, bucket := range report.Trends {
		if bucket.Day.Format("2006-01-02") == today {
			found = true
			assert.Equal(t, int64(1), bucket.Created)
			assert.Equal(t, int64(3), bucket.Clicks)
		}
	}
	assert.True(t, found, "expected a bucket for today")
}

func TestDetail(t *testing.T) {
	storage := memory.New()
	aggregator := NewAggregator(storage, zap.NewNop())
	ctx := context.Background()

	m := seedMapping(t, storage, "abc123")
	recordClicks(t, storage, m.ID, 6)

	detail, err := aggregator.Detail(ctx, "abc123", nil)
	require.NoError(t, err)

	assert.Equal(t, "abc123", detail.ShortCode)
	assert.Equal(t, int64(6), detail.TotalClicks)
	assert.False(t, detail.IsExpired)
	assert.NotNil(t, detail.LastAccessedAt)
	assert.Len(t, detail.RecentAccesses, 6)
	// Six distinct agents over four distinct addresses.
	require.NotNil(t, detail.AccessStats)
	assert.Equal(t, int64(6), detail.AccessStats.UniqueUserAgents)
	assert.Equal(t, int64(4), detail.AccessStats.UniqueIPAddresses)
	assert.GreaterOrEqual(t, detail.AvgClicksPerDay, 6.0)
}

func TestDetail_NotFoundCases(t *testing.T) {
	storage := memory.New()
	aggregator := NewAggregator(storage, zap.NewNop())
	ctx := context.Background()

	seedMapping(t, storage, "dead99")
	require.NoError(t, storage.DeactivateMapping(ctx, "dead99"))

	_, err := aggregator.Detail(ctx, "missing", nil)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	_, err = aggregator.Detail(ctx, "dead99", nil)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)
}

func TestDetail_OwnershipMasked(t *testing.T) {
	storage := memory.New()
	aggregator := NewAggregator(storage, zap.NewNop())
	ctx := context.Background()

	ownerID := int64(1)
	require.NoError(t, storage.SaveMapping(ctx, &domain.Mapping{
		ShortCode: "owned1", OriginalURL: "https://example.com",
		OwnerID: &ownerID, IsActive: true,
	}))

	otherID := int64(2)
	_, err := aggregator.Detail(ctx, "owned1", &otherID)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	_, err = aggregator.Detail(ctx, "owned1", nil)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	detail, err := aggregator.Detail(ctx, "owned1", &ownerID)
	require.NoError(t, err)
	assert.Equal(t, "owned1", detail.ShortCode)
}
