// Package analytics contains the asynchronous access recorder and the
// read-only aggregation queries.
package analytics

import (
	"Shortly-Backend/internal/config"
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/metrics"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/pkg/useragent"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// AccessEvent is one redirect access waiting to be recorded.
type AccessEvent struct {
	MappingID int64
	ShortCode string
	UserAgent string
	IPAddress string
	Referer   string
	Timestamp time.Time
}

// RecorderConfig holds configuration for the access recorder.
type RecorderConfig struct {
	WorkerCount     int           // Number of worker goroutines
	BufferSize      int           // Size of the job queue buffer
	RetryAttempts   int           // Number of retry attempts for failed writes
	RetryDelay      time.Duration // Base delay between retries
	ShutdownTimeout time.Duration // Time to wait for graceful shutdown
}

// DefaultRecorderConfig returns sensible default configuration.
func DefaultRecorderConfig() RecorderConfig {
	return RecorderConfig{
		WorkerCount:     3,
		BufferSize:      1000,
		RetryAttempts:   3,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// RecorderConfigFrom maps the application config onto a RecorderConfig.
func RecorderConfigFrom(cfg *config.Analytics) RecorderConfig {
	rc := DefaultRecorderConfig()
	if cfg.WorkerCount > 0 {
		rc.WorkerCount = cfg.WorkerCount
	}
	if cfg.BufferSize > 0 {
		rc.BufferSize = cfg.BufferSize
	}
	if cfg.RetryAttempts > 0 {
		rc.RetryAttempts = cfg.RetryAttempts
	}
	if cfg.RetryDelay > 0 {
		rc.RetryDelay = cfg.RetryDelay
	}
	return rc
}

// Recorder writes access events to storage without blocking the
// redirect path. Events survive bounded retries; after that they are
// dropped and logged, never re-queued.
type Recorder struct {
	config   RecorderConfig
	storage  repository.Storage
	parser   *useragent.Parser
	log      *zap.Logger
	jobQueue chan *AccessEvent
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
}

// NewRecorder creates a new access recorder. The parser may be nil, in
// which case device classification falls back to keyword heuristics.
func NewRecorder(storage repository.Storage, parser *useragent.Parser, log *zap.Logger, config RecorderConfig) *Recorder {
	ctx, cancel := context.WithCancel(context.Background())

	return &Recorder{
		config:   config,
		storage:  storage,
		parser:   parser,
		log:      log,
		jobQueue: make(chan *AccessEvent, config.BufferSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins processing access events.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("recorder already started")
	}

	r.log.Info("starting access recorder",
		zap.Int("workers", r.config.WorkerCount),
		zap.Int("buffer_size", r.config.BufferSize),
		zap.Int("retry_attempts", r.config.RetryAttempts),
	)

	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.started = true
	return nil
}

// Stop gracefully shuts down the recorder, draining queued events.
func (r *Recorder) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	r.log.Info("stopping access recorder")

	close(r.jobQueue)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.log.Info("access recorder stopped gracefully")
	case <-time.After(r.config.ShutdownTimeout):
		r.cancel()
		r.log.Warn("access recorder shutdown timeout reached")
		return fmt.Errorf("shutdown timeout reached")
	}

	r.cancel()
	r.started = false
	return nil
}

// Submit enqueues an access event. It never blocks: a full queue drops
// the event and returns an error for the caller to log.
func (r *Recorder) Submit(event *AccessEvent) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.started {
		return fmt.Errorf("recorder not started")
	}

	select {
	case r.jobQueue <- event:
		metrics.AccessQueueDepth.Set(float64(len(r.jobQueue)))
		r.log.Debug("access event queued", zap.String("short_code", event.ShortCode))
		return nil
	default:
		metrics.AccessWritesFailed.Inc()
		r.log.Error("access queue is full, dropping event",
			zap.String("short_code", event.ShortCode),
			zap.Int("queue_size", len(r.jobQueue)),
		)
		return fmt.Errorf("access queue is full")
	}
}

// QueueStats returns recorder queue statistics.
func (r *Recorder) QueueStats() (length, capacity int) {
	return len(r.jobQueue), cap(r.jobQueue)
}

func (r *Recorder) worker(workerID int) {
	defer r.wg.Done()

	log := r.log.With(zap.Int("worker_id", workerID))
	log.Info("access recorder worker started")

	for event := range r.jobQueue {
		metrics.AccessQueueDepth.Set(float64(len(r.jobQueue)))
		r.recordWithRetry(log, event)
	}

	log.Info("access recorder worker stopped")
}

// recordWithRetry writes one event with bounded retries and exponential
// backoff. A mapping deactivated between redirect and write is not an
// error worth retrying.
func (r *Recorder) recordWithRetry(log *zap.Logger, event *AccessEvent) {
	var lastErr error

	for attempt := 1; attempt <= r.config.RetryAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(r.ctx, 30*time.Second)
		err := r.record(ctx, event)
		cancel()

		if err == nil {
			if attempt > 1 {
				log.Info("access write succeeded after retry",
					zap.String("short_code", event.ShortCode),
					zap.Int("attempt", attempt),
				)
			}
			return
		}

		if err == repository.ErrMappingNotFound {
			log.Warn("mapping vanished before access write, dropping event",
				zap.String("short_code", event.ShortCode))
			return
		}

		lastErr = err
		log.Warn("access write failed",
			zap.String("short_code", event.ShortCode),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", r.config.RetryAttempts),
			zap.Error(err),
		)

		if attempt == r.config.RetryAttempts {
			break
		}

		delay := r.config.RetryDelay * time.Duration(1<<(attempt-1))
		select {
		case <-time.After(delay):
		case <-r.ctx.Done():
			log.Info("recorder shutdown during retry delay")
			return
		}
	}

	metrics.AccessWritesFailed.Inc()
	log.Error("access write dropped after all retries",
		zap.String("short_code", event.ShortCode),
		zap.Int("attempts", r.config.RetryAttempts),
		zap.Error(lastErr),
	)
}

func (r *Recorder) record(ctx context.Context, event *AccessEvent) error {
	info := r.parser.Classify(event.UserAgent)

	entry := &domain.AccessEntry{
		MappingID: event.MappingID,
		Timestamp: event.Timestamp,
		UserAgent: event.UserAgent,
		IPAddress: event.IPAddress,
		Referer:   event.Referer,
	}
	if info.DeviceType != "" {
		entry.DeviceType = &info.DeviceType
	}
	if info.Browser != "" {
		entry.Browser = &info.Browser
	}
	if info.OS != "" {
		entry.OS = &info.OS
	}

	if err := r.storage.RecordAccess(ctx, event.MappingID, entry); err != nil {
		if err == repository.ErrMappingNotFound {
			return err
		}
		return fmt.Errorf("failed to record access: %w", err)
	}

	r.log.Debug("access recorded",
		zap.String("short_code", event.ShortCode),
		zap.String("device_type", info.DeviceType),
	)

	return nil
}
