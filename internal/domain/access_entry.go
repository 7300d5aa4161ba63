package domain

import "time"

// UnknownValue is recorded when access metadata is missing from a request.
const UnknownValue = "Unknown"

// AccessEntry is one recorded access to a shortened URL.
type AccessEntry struct {
	ID         int64     `gorm:"primaryKey;column:id" json:"id"`
	MappingID  int64     `gorm:"column:mapping_id;not null;index" json:"mapping_id"`
	Timestamp  time.Time `gorm:"column:timestamp;autoCreateTime;index" json:"timestamp"`
	UserAgent  string    `gorm:"column:user_agent;type:text" json:"user_agent"`
	IPAddress  string    `gorm:"column:ip_address;size:45" json:"ip_address"`
	Referer    string    `gorm:"column:referer;size:500" json:"referer"`
	DeviceType *string   `gorm:"column:device_type;size:10" json:"device_type,omitempty"` // 'desktop', 'mobile', 'tablet', 'bot'
	Browser    *string   `gorm:"column:browser;size:50" json:"browser,omitempty"`
	OS         *string   `gorm:"column:os;size:50" json:"os,omitempty"`

	// Relationships
	Mapping *Mapping `gorm:"foreignKey:MappingID" json:"mapping,omitempty"`
}

// TableName returns the table name for GORM.
func (AccessEntry) TableName() string {
	return "access_entries"
}

// GetDeviceType returns the device type with a fallback for old rows.
func (e *AccessEntry) GetDeviceType() string {
	if e.DeviceType != nil {
		return *e.DeviceType
	}
	return "unknown"
}
