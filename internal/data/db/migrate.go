package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/hedaiyu-site/Graduation-project/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.AutoMigrateModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
