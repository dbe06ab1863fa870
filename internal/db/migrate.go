package db

import (
	"fmt"

	"github.com/zulandar/shepherd/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Tenant{},
		&models.TenantAlias{},
		&models.Member{},
		&models.Visitor{},
		&models.Event{},
		&models.CampaignRun{},
	}
}

// AutoMigrate creates or updates all directory tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
