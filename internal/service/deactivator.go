package service

import (
	"Shortly-Backend/internal/cache"
	"Shortly-Backend/internal/repository"
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Deactivator soft-deletes mappings. Rows are never physically removed
// so click history and analytics survive deletion.
type Deactivator struct {
	storage repository.Storage
	cache   cache.Cache // optional, may be nil
	log     *zap.Logger
}

func NewDeactivator(storage repository.Storage, cache cache.Cache, log *zap.Logger) *Deactivator {
	return &Deactivator{
		storage: storage,
		cache:   cache,
		log:     log,
	}
}

// Deactivate flips the mapping inactive. When the mapping has an owner,
// the requester must match; ownership failures are reported as
// repository.ErrMappingNotFound so deletion probes cannot reveal
// whether a code exists.
func (d *Deactivator) Deactivate(ctx context.Context, code string, requesterID *int64) error {
	mapping, err := d.storage.FindActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return repository.ErrMappingNotFound
		}
		return fmt.Errorf("failed to look up mapping: %w", err)
	}

	if mapping.OwnerID != nil {
		if requesterID == nil || *requesterID != *mapping.OwnerID {
			d.log.Warn("unauthorized delete attempt masked as not found",
				zap.String("short_code", code))
			return repository.ErrMappingNotFound
		}
	}

	if err := d.storage.DeactivateMapping(ctx, code); err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return repository.ErrMappingNotFound
		}
		return fmt.Errorf("failed to deactivate mapping: %w", err)
	}

	if d.cache != nil {
		if err := d.cache.Invalidate(ctx, code); err != nil {
			d.log.Warn("failed to invalidate cache after deactivation",
				zap.String("short_code", code), zap.Error(err))
		}
	}

	d.log.Info("deactivated mapping", zap.String("short_code", code))
	return nil
}
