package db

import (
	"fmt"

	"github.com/klartext/klartext/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AllModels returns the list of all GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Fragment{},
		&models.Simplification{},
		&models.ObjectLink{},
		&models.ContentObject{},
		&models.ObjectCopy{},
		&models.Run{},
		&models.RunItem{},
		&models.APILog{},
		&models.APIUsage{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// SeedUsage ensures an APIUsage row exists for each configured provider
// so quota reads never miss.
func SeedUsage(db *gorm.DB, apiNames []string) error {
	for _, name := range apiNames {
		usage := models.APIUsage{APIName: name}
		result := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "api_name"}},
			DoNothing: true,
		}).Create(&usage)
		if result.Error != nil {
			return fmt.Errorf("db: seed usage for %q: %w", name, result.Error)
		}
	}
	return nil
}
