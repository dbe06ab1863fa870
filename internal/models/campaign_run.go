package models

import "time"

// CampaignRun records the outcome of one campaign dispatch for the admin
// status surface. Written best-effort after each run; never read on the
// hot path.
type CampaignRun struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Campaign  string `gorm:"size:32;not null;index"` // birthday, visitor, event, broadcast
	RunDate   string `gorm:"size:10;not null;index"` // local calendar day, YYYY-MM-DD
	Total     int
	Sent      int
	Failed    int
	Skipped   int
	Error     string `gorm:"type:text"`
	CreatedAt time.Time
}
