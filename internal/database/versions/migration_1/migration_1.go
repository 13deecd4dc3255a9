package migration_1

import (
	"fmt"

	"gorm.io/gorm"
)

type ForecastJob struct {
	SkippedSeries int `gorm:"default:0"`
}

func Migration(db *gorm.DB) error {
	if err := db.Migrator().AddColumn(&ForecastJob{}, "skipped_series"); err != nil {
		return fmt.Errorf("error adding SkippedSeries column: %w", err)
	}

	if err := db.Model(&ForecastJob{}).
		Where("skipped_series IS NULL").
		Update("skipped_series", 0).Error; err != nil {
		return fmt.Errorf("error setting default value for SkippedSeries: %w", err)
	}

	return nil
}

func Rollback(db *gorm.DB) error {
	if err := db.Migrator().DropColumn(&ForecastJob{}, "SkippedSeries"); err != nil {
		return fmt.Errorf("error dropping SkippedSeries column: %w", err)
	}

	return nil
}
