package domain

import "time"

// User is an optional owner account. Mappings created without
// authentication simply have no owner.
type User struct {
	ID           int64     `gorm:"primaryKey;column:id" json:"id"`
	Email        string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	IsActive     bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	// Relationships
	Mappings []Mapping `gorm:"foreignKey:OwnerID" json:"mappings,omitempty"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}
