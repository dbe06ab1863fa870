package models

import "time"

// Event is a tenant-scoped announcement: conference, retreat, special service.
type Event struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	TenantID    string `gorm:"size:64;not null;index"`
	Title       string `gorm:"size:256;not null"`
	Description string `gorm:"type:text"`
	StartDate   time.Time
	EndDate     *time.Time
	Price       string `gorm:"size:64"`
	Contact     string `gorm:"size:128"`
	CreatedAt   time.Time
}
