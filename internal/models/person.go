package models

import "time"

// Member is a registered member of one tenant. A single phone identity may
// appear as a member under several tenants.
type Member struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TenantID  string `gorm:"size:64;not null;index"`
	Name      string `gorm:"size:128;not null"`
	Phone     string `gorm:"size:32"`
	BirthDate string `gorm:"size:10"` // legacy DD/MM/YYYY, may be empty
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Visitor is a first-time attendee recorded by a tenant. Contacted flags
// whether the follow-up campaign has already reached them.
type Visitor struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	TenantID  string `gorm:"size:64;not null;index"`
	Name      string `gorm:"size:128;not null"`
	Phone     string `gorm:"size:32"`
	BirthDate string `gorm:"size:10"` // legacy DD/MM/YYYY, may be empty
	VisitDate *time.Time
	Contacted bool `gorm:"default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
