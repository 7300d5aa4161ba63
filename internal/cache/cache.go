// Package cache provides an optional read-through cache for the
// redirect hot path. Cached entries are advisory: active-flag and
// expiry checks are re-evaluated on every read.
package cache

import (
	"Shortly-Backend/internal/domain"
	"context"
)

type Cache interface {
	// GetMapping returns a cached mapping, or false on a miss.
	GetMapping(ctx context.Context, code string) (*domain.Mapping, bool)
	// SetMapping stores a mapping under its short code.
	SetMapping(ctx context.Context, m *domain.Mapping) error
	// Invalidate drops a cached mapping after a write.
	Invalidate(ctx context.Context, code string) error
}
