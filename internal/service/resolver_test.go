package service

import (
	"Shortly-Backend/internal/analytics"
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/internal/repository/memory"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// syncRecorder writes access records inline so tests observe the click
// counter without waiting on a worker pool.
type syncRecorder struct {
	storage repository.Storage
	events  []*analytics.AccessEvent
	fail    bool
}

func (r *syncRecorder) Submit(event *analytics.AccessEvent) error {
	if r.fail {
		return errors.New("queue full")
	}
	r.events = append(r.events, event)
	return r.storage.RecordAccess(context.Background(), event.MappingID, &domain.AccessEntry{
		MappingID: event.MappingID,
		Timestamp: event.Timestamp,
		UserAgent: event.UserAgent,
		IPAddress: event.IPAddress,
		Referer:   event.Referer,
	})
}

func seedMapping(t *testing.T, storage *memory.MemStorage, m *domain.Mapping) *domain.Mapping {
	t.Helper()
	require.NoError(t, storage.SaveMapping(context.Background(), m))
	return m
}

func TestResolve_RedirectsAndRecords(t *testing.T) {
	storage := memory.New()
	recorder := &syncRecorder{storage: storage}
	resolver := NewResolver(storage, nil, recorder, zap.NewNop())
	ctx := context.Background()

	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "abc123", OriginalURL: "https://example.com/page", IsActive: true,
	})

	mapping, err := resolver.Resolve(ctx, "abc123", AccessData{
		UserAgent: "Mozilla/5.0", IPAddress: "203.0.113.9", Referer: "https://news.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page", mapping.OriginalURL)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, "Mozilla/5.0", recorder.events[0].UserAgent)
	assert.Equal(t, "203.0.113.9", recorder.events[0].IPAddress)
	assert.Equal(t, "https://news.example", recorder.events[0].Referer)
}

func TestResolve_UnknownDefaults(t *testing.T) {
	storage := memory.New()
	recorder := &syncRecorder{storage: storage}
	resolver := NewResolver(storage, nil, recorder, zap.NewNop())

	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "abc123", OriginalURL: "https://example.com", IsActive: true,
	})

	_, err := resolver.Resolve(context.Background(), "abc123", AccessData{})
	require.NoError(t, err)

	require.Len(t, recorder.events, 1)
	assert.Equal(t, domain.UnknownValue, recorder.events[0].UserAgent)
	assert.Equal(t, domain.UnknownValue, recorder.events[0].IPAddress)
	assert.Equal(t, domain.UnknownValue, recorder.events[0].Referer)
}

func TestResolve_ReturnsPreIncrementCount(t *testing.T) {
	storage := memory.New()
	recorder := &syncRecorder{storage: storage}
	resolver := NewResolver(storage, nil, recorder, zap.NewNop())
	ctx := context.Background()

	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "abc123", OriginalURL: "https://example.com", IsActive: true,
	})

	for want := int64(0); want < 5; want++ {
		mapping, err := resolver.Resolve(ctx, "abc123", AccessData{})
		require.NoError(t, err)
		assert.Equal(t, want, mapping.ClickCount)
	}

	stored, err := storage.FindActiveByCode(ctx, "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.ClickCount)

	entries, err := storage.ListRecentAccesses(ctx, stored.ID, 100)
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

func TestResolve_NotFoundCases(t *testing.T) {
	storage := memory.New()
	recorder := &syncRecorder{storage: storage}
	resolver := NewResolver(storage, nil, recorder, zap.NewNop())
	ctx := context.Background()

	expired := time.Now().Add(-time.Minute)
	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "gone99", OriginalURL: "https://example.com/expired",
		IsActive: true, ExpiresAt: &expired,
	})
	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "dead99", OriginalURL: "https://example.com/deleted", IsActive: true,
	})
	require.NoError(t, storage.DeactivateMapping(ctx, "dead99"))

	for _, code := range []string{"missing", "gone99", "dead99"} {
		_, err := resolver.Resolve(ctx, code, AccessData{})
		assert.ErrorIs(t, err, repository.ErrMappingNotFound, "code %q", code)
	}

	assert.Empty(t, recorder.events, "failed resolutions must not record accesses")
}

func TestResolve_RecorderFailureDoesNotBlockRedirect(t *testing.T) {
	storage := memory.New()
	recorder := &syncRecorder{storage: storage, fail: true}
	resolver := NewResolver(storage, nil, recorder, zap.NewNop())

	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "abc123", OriginalURL: "https://example.com", IsActive: true,
	})

	mapping, err := resolver.Resolve(context.Background(), "abc123", AccessData{})
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", mapping.OriginalURL)
}

func TestDeactivate_OwnershipMaskedAsNotFound(t *testing.T) {
	storage := memory.New()
	deactivator := NewDeactivator(storage, nil, zap.NewNop())
	ctx := context.Background()

	ownerID := int64(1)
	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "owned1", OriginalURL: "https://example.com",
		OwnerID: &ownerID, IsActive: true,
	})

	otherID := int64(2)
	err := deactivator.Deactivate(ctx, "owned1", &otherID)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	err = deactivator.Deactivate(ctx, "owned1", nil)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)

	require.NoError(t, deactivator.Deactivate(ctx, "owned1", &ownerID))

	_, err = storage.FindActiveByCode(ctx, "owned1")
	assert.ErrorIs(t, err, repository.ErrMappingNotFound)
}

func TestDeactivate_AnonymousMappingDeletableByAnyone(t *testing.T) {
	storage := memory.New()
	deactivator := NewDeactivator(storage, nil, zap.NewNop())
	ctx := context.Background()

	seedMapping(t, storage, &domain.Mapping{
		ShortCode: "anon01", OriginalURL: "https://example.com", IsActive: true,
	})

	require.NoError(t, deactivator.Deactivate(ctx, "anon01", nil))

	err := deactivator.Deactivate(ctx, "anon01", nil)
	assert.ErrorIs(t, err, repository.ErrMappingNotFound, "double delete reports not found")
}
