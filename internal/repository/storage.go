package repository

import (
	"Shortly-Backend/internal/domain"
	"context"
	"errors"
	"time"
)

var (
	ErrMappingNotFound = errors.New("mapping not found")
	ErrCodeExists      = errors.New("short code already exists")
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailExists     = errors.New("email already registered")
)

// ListFilter narrows mapping listings.
type ListFilter struct {
	OwnerID    *int64
	ActiveOnly bool
}

// TrendBucket is one day of creation/click activity.
type TrendBucket struct {
	Day     time.Time `json:"day"`
	Created int64     `json:"created"`
	Clicks  int64     `json:"clicks"`
}

// AccessStats holds distinct-cardinality stats over a mapping's access log.
type AccessStats struct {
	UniqueUserAgents  int64 `json:"unique_user_agents"`
	UniqueIPAddresses int64 `json:"unique_ip_addresses"`
}

type Storage interface {
	// Mapping methods
	SaveMapping(ctx context.Context, m *domain.Mapping) error
	FindActiveByURL(ctx context.Context, normalizedURL string) (*domain.Mapping, error)
	// FindByCode looks a mapping up regardless of active flag or expiry,
	// for global code-uniqueness checks.
	FindByCode(ctx context.Context, code string) (*domain.Mapping, error)
	// FindActiveByCode excludes inactive and expired mappings.
	FindActiveByCode(ctx context.Context, code string) (*domain.Mapping, error)
	DeactivateMapping(ctx context.Context, code string) error
	ListMappings(ctx context.Context, filter ListFilter, page, limit int) ([]*domain.Mapping, int64, error)

	// Access recording and read-back. RecordAccess must atomically
	// increment the click counter, stamp last_accessed_at and append
	// the access entry.
	RecordAccess(ctx context.Context, mappingID int64, entry *domain.AccessEntry) error
	ListRecentAccesses(ctx context.Context, mappingID int64, limit int) ([]*domain.AccessEntry, error)
	AccessStats(ctx context.Context, mappingID int64) (*AccessStats, error)

	// Aggregate methods for analytics
	CountActiveMappings(ctx context.Context, ownerID *int64) (int64, error)
	SumClicks(ctx context.Context, ownerID *int64) (int64, error)
	TopMappingsByClicks(ctx context.Context, ownerID *int64, limit int) ([]*domain.Mapping, error)
	RecentMappings(ctx context.Context, ownerID *int64, limit int) ([]*domain.Mapping, error)
	DailyTrends(ctx context.Context, since time.Time) ([]TrendBucket, error)

	// User methods
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
}
