package postgres

import (
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PostgresStorage implements the Storage interface for PostgreSQL.
type PostgresStorage struct {
	db  *gorm.DB
	log *zap.Logger
}

// New creates a new PostgreSQL storage instance.
func New(db *gorm.DB, log *zap.Logger) *PostgresStorage {
	return &PostgresStorage{
		db:  db,
		log: log,
	}
}

// --- Mapping Methods ---

// SaveMapping persists a new mapping. The unique index on short_code is
// the authority on uniqueness; a violation (including one from a lost
// race after a pre-insert check) surfaces as ErrCodeExists.
func (s *PostgresStorage) SaveMapping(ctx context.Context, m *domain.Mapping) error {
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrCodeExists
		}
		s.log.Error("failed to save mapping", zap.String("short_code", m.ShortCode), zap.Error(err))
		return fmt.Errorf("failed to save mapping: %w", err)
	}

	s.log.Info("saved new mapping", zap.String("short_code", m.ShortCode))
	return nil
}

func (s *PostgresStorage) FindActiveByURL(ctx context.Context, normalizedURL string) (*domain.Mapping, error) {
	var m domain.Mapping

	err := s.db.WithContext(ctx).
		Where("original_url = ? AND is_active = ?", normalizedURL, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrMappingNotFound
	}
	if err != nil {
		s.log.Error("failed to find mapping by url", zap.Error(err))
		return nil, fmt.Errorf("failed to find mapping by url: %w", err)
	}

	return &m, nil
}

func (s *PostgresStorage) FindByCode(ctx context.Context, code string) (*domain.Mapping, error) {
	var m domain.Mapping

	err := s.db.WithContext(ctx).Where("short_code = ?", code).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrMappingNotFound
	}
	if err != nil {
		s.log.Error("failed to find mapping by code", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to find mapping by code: %w", err)
	}

	return &m, nil
}

func (s *PostgresStorage) FindActiveByCode(ctx context.Context, code string) (*domain.Mapping, error) {
	var m domain.Mapping

	err := s.db.WithContext(ctx).
		Where("short_code = ? AND is_active = ?", code, true).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrMappingNotFound
	}
	if err != nil {
		s.log.Error("failed to find active mapping", zap.String("short_code", code), zap.Error(err))
		return nil, fmt.Errorf("failed to find active mapping: %w", err)
	}

	// Expired mappings are reported as not found.
	if m.IsExpired() {
		return nil, repository.ErrMappingNotFound
	}

	return &m, nil
}

// DeactivateMapping soft-deletes a mapping. Rows are kept so click
// history and analytics survive deletion.
func (s *PostgresStorage) DeactivateMapping(ctx context.Context, code string) error {
	result := s.db.WithContext(ctx).Model(&domain.Mapping{}).
		Where("short_code = ? AND is_active = ?", code, true).
		Update("is_active", false)
	if result.Error != nil {
		s.log.Error("failed to deactivate mapping", zap.String("short_code", code), zap.Error(result.Error))
		return fmt.Errorf("failed to deactivate mapping: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return repository.ErrMappingNotFound
	}

	s.log.Info("deactivated mapping", zap.String("short_code", code))
	return nil
}

func (s *PostgresStorage) ListMappings(ctx context.Context, filter repository.ListFilter, page, limit int) ([]*domain.Mapping, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.Mapping{})
	if filter.ActiveOnly {
		query = query.Where("is_active = ?", true)
	}
	if filter.OwnerID != nil {
		query = query.Where("owner_id = ?", *filter.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		s.log.Error("failed to count mappings", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to count mappings: %w", err)
	}

	var mappings []*domain.Mapping
	err := query.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&mappings).Error
	if err != nil {
		s.log.Error("failed to list mappings", zap.Error(err))
		return nil, 0, fmt.Errorf("failed to list mappings: %w", err)
	}

	return mappings, total, nil
}

// --- Access Methods ---

// RecordAccess increments the click counter, stamps last_accessed_at and
// appends the access entry in a single transaction.
func (s *PostgresStorage) RecordAccess(ctx context.Context, mappingID int64, entry *domain.AccessEntry) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now()
		}

		result := tx.Model(&domain.Mapping{}).
			Where("id = ?", mappingID).
			Updates(map[string]interface{}{
				"click_count":      gorm.Expr("click_count + 1"),
				"last_accessed_at": entry.Timestamp,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrMappingNotFound
		}

		entry.MappingID = mappingID
		return tx.Create(entry).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrMappingNotFound) {
			return err
		}
		s.log.Error("failed to record access", zap.Int64("mapping_id", mappingID), zap.Error(err))
		return fmt.Errorf("failed to record access: %w", err)
	}

	s.log.Debug("recorded access", zap.Int64("mapping_id", mappingID))
	return nil
}

func (s *PostgresStorage) ListRecentAccesses(ctx context.Context, mappingID int64, limit int) ([]*domain.AccessEntry, error) {
	var entries []*domain.AccessEntry

	err := s.db.WithContext(ctx).
		Where("mapping_id = ?", mappingID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		s.log.Error("failed to list accesses", zap.Int64("mapping_id", mappingID), zap.Error(err))
		return nil, fmt.Errorf("failed to list accesses: %w", err)
	}

	// Oldest first for display.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *PostgresStorage) AccessStats(ctx context.Context, mappingID int64) (*repository.AccessStats, error) {
	var stats repository.AccessStats

	err := s.db.WithContext(ctx).
		Model(&domain.AccessEntry{}).
		Select("COUNT(DISTINCT user_agent) AS unique_user_agents, COUNT(DISTINCT ip_address) AS unique_ip_addresses").
		Where("mapping_id = ?", mappingID).
		Scan(&stats).Error
	if err != nil {
		s.log.Error("failed to compute access stats", zap.Int64("mapping_id", mappingID), zap.Error(err))
		return nil, fmt.Errorf("failed to compute access stats: %w", err)
	}

	return &stats, nil
}

// --- Aggregate Methods ---

func (s *PostgresStorage) CountActiveMappings(ctx context.Context, ownerID *int64) (int64, error) {
	var count int64
	err := s.activeScope(ctx, ownerID).Count(&count).Error
	if err != nil {
		s.log.Error("failed to count active mappings", zap.Error(err))
		return 0, fmt.Errorf("failed to count active mappings: %w", err)
	}
	return count, nil
}

func (s *PostgresStorage) SumClicks(ctx context.Context, ownerID *int64) (int64, error) {
	var sum *int64
	err := s.activeScope(ctx, ownerID).
		Select("SUM(click_count)").
		Scan(&sum).Error
	if err != nil {
		s.log.Error("failed to sum clicks", zap.Error(err))
		return 0, fmt.Errorf("failed to sum clicks: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (s *PostgresStorage) TopMappingsByClicks(ctx context.Context, ownerID *int64, limit int) ([]*domain.Mapping, error) {
	var mappings []*domain.Mapping
	err := s.activeScope(ctx, ownerID).
		Order("click_count DESC").
		Limit(limit).
		Find(&mappings).Error
	if err != nil {
		s.log.Error("failed to get top mappings", zap.Error(err))
		return nil, fmt.Errorf("failed to get top mappings: %w", err)
	}
	return mappings, nil
}

func (s *PostgresStorage) RecentMappings(ctx context.Context, ownerID *int64, limit int) ([]*domain.Mapping, error) {
	var mappings []*domain.Mapping
	err := s.activeScope(ctx, ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&mappings).Error
	if err != nil {
		s.log.Error("failed to get recent mappings", zap.Error(err))
		return nil, fmt.Errorf("failed to get recent mappings: %w", err)
	}
	return mappings, nil
}

// DailyTrends merges per-day creation counts (from mappings) and click
// counts (from access entries) into one ordered series.
func (s *PostgresStorage) DailyTrends(ctx context.Context, since time.Time) ([]repository.TrendBucket, error) {
	type dayCount struct {
		Day   time.Time `gorm:"column:day"`
		Count int64     `gorm:"column:count"`
	}

	var created []dayCount
	err := s.db.WithContext(ctx).
		Model(&domain.Mapping{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ? AND is_active = ?", since, true).
		Group("DATE(created_at)").
		Find(&created).Error
	if err != nil {
		s.log.Error("failed to aggregate creations", zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate creations: %w", err)
	}

	var clicks []dayCount
	err = s.db.WithContext(ctx).
		Model(&domain.AccessEntry{}).
		Select("DATE(timestamp) AS day, COUNT(*) AS count").
		Where("timestamp >= ?", since).
		Group("DATE(timestamp)").
		Find(&clicks).Error
	if err != nil {
		s.log.Error("failed to aggregate clicks", zap.Error(err))
		return nil, fmt.Errorf("failed to aggregate clicks: %w", err)
	}

	buckets := make(map[time.Time]*repository.TrendBucket)
	for _, c := range created {
		day := c.Day.UTC().Truncate(24 * time.Hour)
		buckets[day] = &repository.TrendBucket{Day: day, Created: c.Count}
	}
	for _, c := range clicks {
		day := c.Day.UTC().Truncate(24 * time.Hour)
		b, ok := buckets[day]
		if !ok {
			b = &repository.TrendBucket{Day: day}
			buckets[day] = b
		}
		b.Clicks = c.Count
	}

	out := make([]repository.TrendBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// --- User Methods ---

func (s *PostgresStorage) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repository.ErrEmailExists
		}
		s.log.Error("failed to create user", zap.String("email", user.Email), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("created new user", zap.Int64("user_id", user.ID))
	return nil
}

func (s *PostgresStorage) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (s *PostgresStorage) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User

	err := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrUserNotFound
	}
	if err != nil {
		s.log.Error("failed to get user by id", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// --- Helpers ---

func (s *PostgresStorage) activeScope(ctx context.Context, ownerID *int64) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&domain.Mapping{}).Where("is_active = ?", true)
	if ownerID != nil {
		query = query.Where("owner_id = ?", *ownerID)
	}
	return query
}
