package cmd

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"dashboard-backend/internal/database"
	"dashboard-backend/internal/messaging"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// RequeuePendingTasks republishes tasks that were queued before a restart.
// Only used with the in-memory queue, where pending messages do not survive
// the process.
func RequeuePendingTasks(db *gorm.DB, queue messaging.Publisher) {
	var workbooks []database.Workbook
	if err := db.Where("status = ?", database.JobQueued).Find(&workbooks).Error; err != nil {
		log.Fatalf("Failed to fetch queued workbooks from database: %v", err)
	}

	for _, workbook := range workbooks {
		if err := queue.PublishAnalysisTask(context.Background(), messaging.AnalysisTaskPayload{
			WorkbookId: workbook.Id,
		}); err != nil {
			log.Fatalf("Failed to publish analysis task: %v", err)
		}
	}

	var jobs []database.ForecastJob
	if err := db.Where("status = ?", database.JobQueued).Find(&jobs).Error; err != nil {
		log.Fatalf("Failed to fetch queued forecast jobs from database: %v", err)
	}

	for _, job := range jobs {
		if err := queue.PublishForecastTask(context.Background(), messaging.ForecastTaskPayload{
			WorkbookId: job.WorkbookId,
			JobId:      job.Id,
		}); err != nil {
			log.Fatalf("Failed to publish forecast task: %v", err)
		}
	}
}
