package domain

import "time"

// Mapping binds a short code to an original URL plus its click metadata.
type Mapping struct {
	ID             int64      `gorm:"primaryKey;column:id" json:"id"`
	ShortCode      string     `gorm:"column:short_code;size:30;not null;uniqueIndex" json:"short_code"`
	OriginalURL    string     `gorm:"column:original_url;size:2048;not null;index:idx_mappings_url_active" json:"original_url"`
	OwnerID        *int64     `gorm:"column:owner_id;index" json:"owner_id,omitempty"`
	Description    *string    `gorm:"column:description;size:500" json:"description,omitempty"`
	ClickCount     int64      `gorm:"column:click_count;not null;default:0" json:"click_count"`
	LastAccessedAt *time.Time `gorm:"column:last_accessed_at;index" json:"last_accessed_at,omitempty"`
	ExpiresAt      *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`
	IsActive       bool       `gorm:"column:is_active;not null;default:true;index:idx_mappings_url_active" json:"is_active"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	AccessLog []AccessEntry `gorm:"foreignKey:MappingID" json:"access_log,omitempty"`
}

// TableName returns the table name for GORM.
func (Mapping) TableName() string {
	return "mappings"
}

// IsExpired reports whether the mapping's expiry has passed.
// A nil ExpiresAt never expires.
func (m *Mapping) IsExpired() bool {
	return m.ExpiresAt != nil && time.Now().After(*m.ExpiresAt)
}

// Redirectable reports whether a redirect may be served for this mapping.
func (m *Mapping) Redirectable() bool {
	return m.IsActive && !m.IsExpired()
}
