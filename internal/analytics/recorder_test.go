package analytics

import (
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository/memory"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRecorderConfig() RecorderConfig {
	return RecorderConfig{
		WorkerCount:     2,
		BufferSize:      16,
		RetryAttempts:   2,
		RetryDelay:      10 * time.Millisecond,
		ShutdownTimeout: 2 * time.Second,
	}
}

func seedMapping(t *testing.T, storage *memory.MemStorage, code string) *domain.Mapping {
	t.Helper()
	m := &domain.Mapping{ShortCode: code, OriginalURL: "https://example.com/" + code, IsActive: true}
	require.NoError(t, storage.SaveMapping(context.Background(), m))
	return m
}

func TestRecorder_WritesEventually(t *testing.T) {
	storage := memory.New()
	recorder := NewRecorder(storage, nil, zap.NewNop(), testRecorderConfig())
	require.NoError(t, recorder.Start())
	defer func() { _ = recorder.Stop() }()

	mapping := seedMapping(t, storage, "abc123")

	err := recorder.Submit(&AccessEvent{
		MappingID: mapping.ID,
		ShortCode: mapping.ShortCode,
		UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)",
		IPAddress: "203.0.113.9",
		Referer:   "https://news.example",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		m, err := storage.FindActiveByCode(context.Background(), "abc123")
		return err == nil && m.ClickCount == 1
	}, 2*time.Second, 10*time.Millisecond, "click count should reach 1")

	entries, err := storage.ListRecentAccesses(context.Background(), mapping.ID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "203.0.113.9", entries[0].IPAddress)
	require.NotNil(t, entries[0].DeviceType)
	assert.Equal(t, "mobile", *entries[0].DeviceType)
}

func TestRecorder_CountsAllSubmissions(t *testing.T) {
	storage := memory.New()
	recorder := NewRecorder(storage, nil, zap.NewNop(), testRecorderConfig())
	require.NoError(t, recorder.Start())

	mapping := seedMapping(t, storage, "abc123")

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, recorder.Submit(&AccessEvent{
			MappingID: mapping.ID,
			ShortCode: mapping.ShortCode,
			UserAgent: domain.UnknownValue,
			IPAddress: fmt.Sprintf("203.0.113.%d", i),
			Referer:   domain.UnknownValue,
			Timestamp: time.Now(),
		}))
	}

	// Stop drains the queue before returning.
	require.NoError(t, recorder.Stop())

	m, err := storage.FindActiveByCode(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int64(n), m.ClickCount)
}

func TestRecorder_DropsVanishedMapping(t *testing.T) {
	storage := memory.New()
	recorder := NewRecorder(storage, nil, zap.NewNop(), testRecorderConfig())
	require.NoError(t, recorder.Start())

	event := &AccessEvent{
		MappingID: 9999,
		ShortCode: "gone99",
		UserAgent: domain.UnknownValue,
		IPAddress: domain.UnknownValue,
		Referer:   domain.UnknownValue,
		Timestamp: time.Now(),
	}
	require.NoError(t, recorder.Submit(event))

	// The write targets a missing mapping; Stop must still return
	// promptly because the event is dropped, not retried.
	require.NoError(t, recorder.Stop())
}

func TestRecorder_SubmitBeforeStart(t *testing.T) {
	recorder := NewRecorder(memory.New(), nil, zap.NewNop(), testRecorderConfig())

	err := recorder.Submit(&AccessEvent{MappingID: 1, ShortCode: "abc123"})
	assert.Error(t, err)
}

func TestRecorder_FullQueueRejects(t *testing.T) {
	cfg := testRecorderConfig()
	cfg.WorkerCount = 1
	cfg.BufferSize = 1

	storage := memory.New()
	recorder := NewRecorder(storage, nil, zap.NewNop(), cfg)
	// Never started: no worker drains the queue, so the second submit
	// must fail fast instead of blocking the caller.
	recorder.mu.Lock()
	recorder.started = true
	recorder.mu.Unlock()

	first := recorder.Submit(&AccessEvent{MappingID: 1, ShortCode: "abc123"})
	require.NoError(t, first)

	second := recorder.Submit(&AccessEvent{MappingID: 1, ShortCode: "abc123"})
	assert.Error(t, second)
}
