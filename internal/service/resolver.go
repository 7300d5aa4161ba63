package service

import (
	"Shortly-Backend/internal/analytics"
	"Shortly-Backend/internal/cache"
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"context"
	"time"

	"go.uber.org/zap"
)

// AccessRecorder accepts access events for asynchronous recording.
type AccessRecorder interface {
	Submit(event *analytics.AccessEvent) error
}

// AccessData carries redirect request metadata into the access log.
type AccessData struct {
	UserAgent string
	IPAddress string
	Referer   string
}

// Resolver serves the redirect hot path: code to mapping lookup plus a
// fire-and-forget access record. The caller gets the pre-increment
// mapping; the click counter catches up eventually.
type Resolver struct {
	storage  repository.Storage
	cache    cache.Cache // optional, may be nil
	recorder AccessRecorder
	log      *zap.Logger
}

func NewResolver(storage repository.Storage, cache cache.Cache, recorder AccessRecorder, log *zap.Logger) *Resolver {
	return &Resolver{
		storage:  storage,
		cache:    cache,
		recorder: recorder,
		log:      log,
	}
}

// Resolve returns the active mapping for code, or
// repository.ErrMappingNotFound. Missing, deactivated and expired codes
// are deliberately indistinguishable. On success an access record is
// queued; its failure is logged and never affects the redirect.
func (r *Resolver) Resolve(ctx context.Context, code string, access AccessData) (*domain.Mapping, error) {
	mapping, err := r.lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	event := &analytics.AccessEvent{
		MappingID: mapping.ID,
		ShortCode: mapping.ShortCode,
		UserAgent: valueOrUnknown(access.UserAgent),
		IPAddress: valueOrUnknown(access.IPAddress),
		Referer:   valueOrUnknown(access.Referer),
		Timestamp: time.Now(),
	}

	if err := r.recorder.Submit(event); err != nil {
		// Availability over completeness: the redirect proceeds.
		r.log.Error("failed to queue access record",
			zap.String("short_code", code),
			zap.Error(err))
	}

	return mapping, nil
}

// lookup resolves code through the cache when one is configured. Cached
// mappings re-run the active and expiry checks on every read, so a
// cached-but-expired entry still resolves to not found.
func (r *Resolver) lookup(ctx context.Context, code string) (*domain.Mapping, error) {
	if r.cache != nil {
		if cached, ok := r.cache.GetMapping(ctx, code); ok {
			if cached.Redirectable() {
				return cached, nil
			}
			// Entry went stale; drop it and fall through to storage.
			if err := r.cache.Invalidate(ctx, code); err != nil {
				r.log.Warn("failed to invalidate stale cache entry",
					zap.String("short_code", code), zap.Error(err))
			}
		}
	}

	mapping, err := r.storage.FindActiveByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.SetMapping(ctx, mapping); err != nil {
			r.log.Warn("failed to cache mapping",
				zap.String("short_code", code), zap.Error(err))
		}
	}

	return mapping, nil
}

func valueOrUnknown(s string) string {
	if s == "" {
		return domain.UnknownValue
	}
	return s
}
