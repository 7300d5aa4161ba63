// Package memory provides an in-memory Storage implementation used in
// tests and local development.
package memory

import (
	"Shortly-Backend/internal/domain"
	"Shortly-Backend/internal/repository"
	"context"
	"sort"
	"sync"
	"time"
)

type MemStorage struct {
	mu           sync.RWMutex
	mappings     map[string]*domain.Mapping // keyed by short code
	accesses     map[int64][]*domain.AccessEntry
	usersByEmail map[string]*domain.User
	mappingSeq   int64
	accessSeq    int64
	userSeq      int64
}

func New() *MemStorage {
	return &MemStorage{
		mappings:     make(map[string]*domain.Mapping),
		accesses:     make(map[int64][]*domain.AccessEntry),
		usersByEmail: make(map[string]*domain.User),
	}
}

// --- Mapping Methods ---

func (s *MemStorage) SaveMapping(_ context.Context, m *domain.Mapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Short codes are globally unique, active or not.
	if _, exists := s.mappings[m.ShortCode]; exists {
		return repository.ErrCodeExists
	}

	s.mappingSeq++
	m.ID = s.mappingSeq
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	stored := *m
	s.mappings[m.ShortCode] = &stored
	return nil
}

func (s *MemStorage) FindActiveByURL(_ context.Context, normalizedURL string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.mappings {
		if m.IsActive && m.OriginalURL == normalizedURL {
			return snapshot(m), nil
		}
	}
	return nil, repository.ErrMappingNotFound
}

func (s *MemStorage) FindByCode(_ context.Context, code string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[code]
	if !ok {
		return nil, repository.ErrMappingNotFound
	}
	return snapshot(m), nil
}

func (s *MemStorage) FindActiveByCode(_ context.Context, code string) (*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.mappings[code]
	if !ok || !m.IsActive {
		return nil, repository.ErrMappingNotFound
	}
	// Expired mappings are indistinguishable from absent ones.
	if m.IsExpired() {
		return nil, repository.ErrMappingNotFound
	}
	return snapshot(m), nil
}

func (s *MemStorage) DeactivateMapping(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.mappings[code]
	if !ok || !m.IsActive {
		return repository.ErrMappingNotFound
	}
	m.IsActive = false
	m.UpdatedAt = time.Now()
	return nil
}

func (s *MemStorage) ListMappings(_ context.Context, filter repository.ListFilter, page, limit int) ([]*domain.Mapping, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Mapping
	for _, m := range s.mappings {
		if filter.ActiveOnly && !m.IsActive {
			continue
		}
		if filter.OwnerID != nil && (m.OwnerID == nil || *m.OwnerID != *filter.OwnerID) {
			continue
		}
		matched = append(matched, snapshot(m))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := (page - 1) * limit
	if start >= len(matched) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

// --- Access Methods ---

func (s *MemStorage) RecordAccess(_ context.Context, mappingID int64, entry *domain.AccessEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *domain.Mapping
	for _, m := range s.mappings {
		if m.ID == mappingID {
			target = m
			break
		}
	}
	if target == nil {
		return repository.ErrMappingNotFound
	}

	s.accessSeq++
	entry.ID = s.accessSeq
	entry.MappingID = mappingID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	target.ClickCount++
	ts := entry.Timestamp
	target.LastAccessedAt = &ts
	target.UpdatedAt = ts

	stored := *entry
	s.accesses[mappingID] = append(s.accesses[mappingID], &stored)
	return nil
}

func (s *MemStorage) ListRecentAccesses(_ context.Context, mappingID int64, limit int) ([]*domain.AccessEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.accesses[mappingID]
	start := 0
	if len(entries) > limit {
		start = len(entries) - limit
	}

	out := make([]*domain.AccessEntry, 0, len(entries)-start)
	for _, e := range entries[start:] {
		copied := *e
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemStorage) AccessStats(_ context.Context, mappingID int64) (*repository.AccessStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make(map[string]struct{})
	addrs := make(map[string]struct{})
	for _, e := range s.accesses[mappingID] {
		agents[e.UserAgent] = struct{}{}
		addrs[e.IPAddress] = struct{}{}
	}

	return &repository.AccessStats{
		UniqueUserAgents:  int64(len(agents)),
		UniqueIPAddresses: int64(len(addrs)),
	}, nil
}

// --- Aggregate Methods ---

func (s *MemStorage) CountActiveMappings(_ context.Context, ownerID *int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, m := range s.mappings {
		if m.IsActive && ownedBy(m, ownerID) {
			count++
		}
	}
	return count, nil
}

func (s *MemStorage) SumClicks(_ context.Context, ownerID *int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sum int64
	for _, m := range s.mappings {
		if m.IsActive && ownedBy(m, ownerID) {
			sum += m.ClickCount
		}
	}
	return sum, nil
}

func (s *MemStorage) TopMappingsByClicks(_ context.Context, ownerID *int64, limit int) ([]*domain.Mapping, error) {
	return s.sortedActive(ownerID, limit, func(a, b *domain.Mapping) bool {
		return a.ClickCount > b.ClickCount
	})
}

func (s *MemStorage) RecentMappings(_ context.Context, ownerID *int64, limit int) ([]*domain.Mapping, error) {
	return s.sortedActive(ownerID, limit, func(a, b *domain.Mapping) bool {
		return a.CreatedAt.After(b.CreatedAt)
	})
}

func (s *MemStorage) DailyTrends(_ context.Context, since time.Time) ([]repository.TrendBucket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	buckets := make(map[time.Time]*repository.TrendBucket)
	bucket := func(t time.Time) *repository.TrendBucket {
		day := t.UTC().Truncate(24 * time.Hour)
		b, ok := buckets[day]
		if !ok {
			b = &repository.TrendBucket{Day: day}
			buckets[day] = b
		}
		return b
	}

	for _, m := range s.mappings {
		if m.IsActive && !m.CreatedAt.Before(since) {
			bucket(m.CreatedAt).Created++
		}
	}
	for _, entries := range s.accesses {
		for _, e := range entries {
			if !e.Timestamp.Before(since) {
				bucket(e.Timestamp).Clicks++
			}
		}
	}

	out := make([]repository.TrendBucket, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// --- User Methods ---

func (s *MemStorage) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[user.Email]; exists {
		return repository.ErrEmailExists
	}

	s.userSeq++
	user.ID = s.userSeq
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	stored := *user
	s.usersByEmail[user.Email] = &stored
	return nil
}

func (s *MemStorage) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.usersByEmail[email]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *MemStorage) GetUserByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.usersByEmail {
		if user.ID == id {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

// --- Helpers ---

// snapshot copies a mapping so callers never observe later mutations.
// Resolve hands the pre-increment state to the redirect path while the
// recorder keeps mutating the stored row.
func snapshot(m *domain.Mapping) *domain.Mapping {
	copied := *m
	copied.AccessLog = nil
	return &copied
}

func ownedBy(m *domain.Mapping, ownerID *int64) bool {
	if ownerID == nil {
		return true
	}
	return m.OwnerID != nil && *m.OwnerID == *ownerID
}

func (s *MemStorage) sortedActive(ownerID *int64, limit int, less func(a, b *domain.Mapping) bool) ([]*domain.Mapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*domain.Mapping
	for _, m := range s.mappings {
		if m.IsActive && ownedBy(m, ownerID) {
			matched = append(matched, snapshot(m))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}
