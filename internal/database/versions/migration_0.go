package versions

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Workbook struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	Filename   string `gorm:"not null"`
	StorageKey string `gorm:"not null"`
	SizeBytes  int64

	Status string `gorm:"size:20;not null"`

	RowCount      int  `gorm:"default:0"`
	SkippedRows   int  `gorm:"default:0"`
	HasSalesNames bool `gorm:"default:false"`

	Summary datatypes.JSON `gorm:"type:jsonb"`

	CreationTime   time.Time
	CompletionTime sql.NullTime

	ForecastJobs []ForecastJob   `gorm:"foreignKey:WorkbookId;constraint:OnDelete:CASCADE"`
	Errors       []WorkbookError `gorm:"foreignKey:WorkbookId;constraint:OnDelete:CASCADE"`
}

type ForecastJob struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey"`

	WorkbookId uuid.UUID `gorm:"type:uuid;index"`
	Workbook   *Workbook `gorm:"foreignKey:WorkbookId"`

	Status string `gorm:"size:20;not null"`

	TotalSeries     int `gorm:"default:0"`
	CompletedSeries int `gorm:"default:0"`

	CreationTime   time.Time
	CompletionTime sql.NullTime
}

type ForecastPoint struct {
	WorkbookId   uuid.UUID `gorm:"type:uuid;primaryKey"`
	SalesName    string    `gorm:"primaryKey;size:255"`
	CustomerName string    `gorm:"primaryKey;size:255"`
	ItemName     string    `gorm:"primaryKey;size:255"`
	Month        time.Time `gorm:"primaryKey"`
	Kind         string    `gorm:"primaryKey;size:10"`

	Quantity float64
	Lower    sql.NullFloat64
	Upper    sql.NullFloat64
}

type WorkbookError struct {
	WorkbookId uuid.UUID `gorm:"type:uuid;primaryKey"`
	ErrorId    uuid.UUID `gorm:"type:uuid;primaryKey"`
	Error      string
	Timestamp  time.Time
}

func Migration0(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Workbook{}, &ForecastJob{}, &ForecastPoint{}, &WorkbookError{},
	)
	if err != nil {
		return fmt.Errorf("initial migration failed: %w", err)
	}
	return nil
}
