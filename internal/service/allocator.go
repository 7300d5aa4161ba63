// Package service implements the short URL allocation and redirect
// resolution logic.
package service

import (
	"Shortly-Backend/internal/config"
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/metrics"
	"Shortly-Backend/internal/repository"
	"Shortly-Backend/internal/shortcode"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrInvalidCustomCode means the caller-supplied code fails format checks.
	ErrInvalidCustomCode = errors.New("invalid custom code format")
	// ErrCustomCodeTaken means the requested custom code is already in use.
	ErrCustomCodeTaken = errors.New("custom code already in use")
	// ErrGenerationExhausted means every random candidate collided.
	ErrGenerationExhausted = errors.New("failed to generate unique short code")
	// ErrExpiryInPast means the requested expiry is not strictly in the future.
	ErrExpiryInPast = errors.New("expiration date must be in the future")
	// ErrAllocationConflict means a concurrent allocation won the insert
	// race. The whole allocation may be retried from scratch.
	ErrAllocationConflict = errors.New("short code conflict, allocation may be retried")
)

// AllocateOptions carries the optional parts of a shorten request.
type AllocateOptions struct {
	CustomCode  string
	Description *string
	ExpiresAt   *time.Time
	OwnerID     *int64
}

// Allocator assigns short codes to URLs. De-duplication is best effort:
// the only hard uniqueness guarantee is the storage constraint on the
// short code itself.
type Allocator struct {
	storage     repository.Storage
	gen         *shortcode.Generator
	maxAttempts int
	log         *zap.Logger
}

func NewAllocator(storage repository.Storage, gen *shortcode.Generator, cfg *config.Shortener, log *zap.Logger) *Allocator {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	return &Allocator{
		storage:     storage,
		gen:         gen,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// NormalizeURL lower-cases and trims a URL before storage and dedup
// comparison.
func NormalizeURL(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Allocate returns a mapping for originalURL, reusing an existing active
// mapping for the same normalized URL when one exists. The caller is
// expected to have validated URL syntax already.
func (a *Allocator) Allocate(ctx context.Context, originalURL string, opts AllocateOptions) (*domain.Mapping, error) {
	normalized := NormalizeURL(originalURL)

	// Idempotent dedup: an already-shortened URL returns its existing
	// mapping untouched, whatever else the request asked for.
	existing, err := a.storage.FindActiveByURL(ctx, normalized)
	if err == nil {
		a.log.Info("duplicate URL, returning existing mapping",
			zap.String("short_code", existing.ShortCode))
		return existing, nil
	}
	if !errors.Is(err, repository.ErrMappingNotFound) {
		return nil, fmt.Errorf("failed to check for existing mapping: %w", err)
	}

	if opts.ExpiresAt != nil && !opts.ExpiresAt.After(time.Now()) {
		return nil, ErrExpiryInPast
	}

	isCustom := opts.CustomCode != ""
	var code string
	if isCustom {
		code = opts.CustomCode
		if !shortcode.ValidCustomCode(code) {
			return nil, ErrInvalidCustomCode
		}
		if _, err := a.storage.FindActiveByCode(ctx, code); err == nil {
			a.log.Warn("custom code already in use", zap.String("short_code", code))
			return nil, ErrCustomCodeTaken
		} else if !errors.Is(err, repository.ErrMappingNotFound) {
			return nil, fmt.Errorf("failed to check custom code: %w", err)
		}
	} else {
		code, err = a.generateUnique(ctx)
		if err != nil {
			return nil, err
		}
	}

	mapping := &domain.Mapping{
		ShortCode:   code,
		OriginalURL: normalized,
		OwnerID:     opts.OwnerID,
		Description: opts.Description,
		ExpiresAt:   opts.ExpiresAt,
		IsActive:    true,
		ClickCount:  0,
	}

	if err := a.storage.SaveMapping(ctx, mapping); err != nil {
		if errors.Is(err, repository.ErrCodeExists) {
			// Lost the race between the uniqueness check and the insert.
			if isCustom {
				return nil, ErrCustomCodeTaken
			}
			a.log.Warn("insert race lost on generated code", zap.String("short_code", code))
			return nil, ErrAllocationConflict
		}
		return nil, fmt.Errorf("failed to save mapping: %w", err)
	}

	metrics.MappingsCreated.Inc()
	a.log.Info("allocated short code",
		zap.String("short_code", code),
		zap.Bool("custom", isCustom))

	return mapping, nil
}

// generateUnique draws random candidates until one is free, bounded by
// maxAttempts. The check spans inactive mappings too: short codes are
// never reused.
func (a *Allocator) generateUnique(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.gen.Generate()
		if err != nil {
			return "", fmt.Errorf("failed to generate candidate: %w", err)
		}

		_, err = a.storage.FindByCode(ctx, code)
		if errors.Is(err, repository.ErrMappingNotFound) {
			return code, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to check candidate: %w", err)
		}

		a.log.Debug("short code collision, retrying", zap.Int("attempt", attempt))
	}

	a.log.Error("short code generation exhausted", zap.Int("attempts", a.maxAttempts))
	return "", ErrGenerationExhausted
}
