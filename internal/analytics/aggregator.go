package analytics

import (
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	topLimit          = 10
	recentLimit       = 10
	recentAccessLimit = 100

	minTrendDays = 1
	maxTrendDays = 365
)

// SystemSummary is the system-wide analytics snapshot.
type SystemSummary struct {
	TotalActiveURLs int64             `json:"total_active_urls"`
	TotalClicks     int64             `json:"total_clicks"`
	AvgClicksPerURL float64           `json:"avg_clicks_per_url"`
	TopURLs         []*domain.Mapping `json:"top_urls"`
	RecentURLs      []*domain.Mapping `json:"recent_urls"`
	Timestamp       time.Time         `json:"timestamp"`
}

// TrendReport is a bucketed creation/click series.
type TrendReport struct {
	PeriodDays int                      `json:"period_days"`
	StartDate  time.Time                `json:"start_date"`
	Trends     []repository.TrendBucket `json:"trends"`
}

// MappingDetail is the per-mapping analytics view.
type MappingDetail struct {
	ShortCode       string                  `json:"short_code"`
	OriginalURL     string                  `json:"original_url"`
	TotalClicks     int64                   `json:"total_clicks"`
	LastAccessedAt  *time.Time              `json:"last_accessed_at,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	ExpiresAt       *time.Time              `json:"expires_at,omitempty"`
	IsExpired       bool                    `json:"is_expired"`
	DaysOld         int                     `json:"days_old"`
	AvgClicksPerDay float64                 `json:"avg_clicks_per_day"`
	RecentAccesses  []*domain.AccessEntry   `json:"recent_accesses"`
	AccessStats     *repository.AccessStats `json:"access_stats"`
}

// Aggregator computes read-only analytics over the mapping store.
type Aggregator struct {
	storage repository.Storage
	log     *zap.Logger
}

func NewAggregator(storage repository.Storage, log *zap.Logger) *Aggregator {
	return &Aggregator{
		storage: storage,
		log:     log,
	}
}

// Summary computes system-wide totals, optionally scoped to one owner.
func (a *Aggregator) Summary(ctx context.Context, ownerID *int64) (*SystemSummary, error) {
	total, err := a.storage.CountActiveMappings(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to count mappings: %w", err)
	}

	clicks, err := a.storage.SumClicks(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum clicks: %w", err)
	}

	top, err := a.storage.TopMappingsByClicks(ctx, ownerID, topLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top mappings: %w", err)
	}

	recent, err := a.storage.RecentMappings(ctx, ownerID, recentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent mappings: %w", err)
	}

	var avg float64
	if total > 0 {
		avg = float64(clicks) / float64(total)
	}

	return &SystemSummary{
		TotalActiveURLs: total,
		TotalClicks:     clicks,
		AvgClicksPerURL: avg,
		TopURLs:         top,
		RecentURLs:      recent,
		Timestamp:       time.Now(),
	}, nil
}

// Trends returns daily creation and click counts over the last days
// days, clamped to [1, 365].
func (a *Aggregator) Trends(ctx context.Context, days int) (*TrendReport, error) {
	if days < minTrendDays {
		days = minTrendDays
	}
	if days > maxTrendDays {
		days = maxTrendDays
	}

	start := time.Now().AddDate(0, 0, -days)
	buckets, err := a.storage.DailyTrends(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("failed to compute trends: %w", err)
	}

	return &TrendReport{
		PeriodDays: days,
		StartDate:  start,
		Trends:     buckets,
	}, nil
}

// Detail returns per-mapping statistics including a bounded window of
// recent accesses. Ownership failures are masked as not found.
func (a *Aggregator) Detail(ctx context.Context, code string, requesterID *int64) (*MappingDetail, error) {
	mapping, err := a.storage.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return nil, repository.ErrMappingNotFound
		}
		return nil, fmt.Errorf("failed to find mapping: %w", err)
	}
	if !mapping.IsActive {
		return nil, repository.ErrMappingNotFound
	}

	if mapping.OwnerID != nil {
		if requesterID == nil || *requesterID != *mapping.OwnerID {
			a.log.Warn("unauthorized analytics access masked as not found",
				zap.String("short_code", code))
			return nil, repository.ErrMappingNotFound
		}
	}

	recent, err := a.storage.ListRecentAccesses(ctx, mapping.ID, recentAccessLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent accesses: %w", err)
	}

	stats, err := a.storage.AccessStats(ctx, mapping.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute access stats: %w", err)
	}

	daysOld := int(time.Since(mapping.CreatedAt).Hours() / 24)
	avgDays := daysOld
	if avgDays < 1 {
		avgDays = 1
	}

	return &MappingDetail{
		ShortCode:       mapping.ShortCode,
		OriginalURL:     mapping.OriginalURL,
		TotalClicks:     mapping.ClickCount,
		LastAccessedAt:  mapping.LastAccessedAt,
		CreatedAt:       mapping.CreatedAt,
		ExpiresAt:       mapping.ExpiresAt,
		IsExpired:       mapping.IsExpired(),
		DaysOld:         daysOld,
		AvgClicksPerDay: float64(mapping.ClickCount) / float64(avgDays),
		RecentAccesses:  recent,
		AccessStats:     stats,
	}, nil
}
