package core

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"dashboard-backend/internal/database"
	"dashboard-backend/internal/messaging"
	"dashboard-backend/internal/metrics"
	"dashboard-backend/internal/storage"
)

const forecastBatchSize = 100

type TaskProcessor struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher
	reciever  messaging.Reciever

	summarizer *Summarizer

	uploadBucket string
	metrics      *metrics.WorkerMetrics
}

func NewTaskProcessor(db *gorm.DB, store storage.ObjectStore, publisher messaging.Publisher, reciever messaging.Reciever, summarizer *Summarizer, uploadBucket string, workerMetrics *metrics.WorkerMetrics) *TaskProcessor {
	return &TaskProcessor{
		db:           db,
		storage:      store,
		publisher:    publisher,
		reciever:     reciever,
		summarizer:   summarizer,
		uploadBucket: uploadBucket,
		metrics:      workerMetrics,
	}
}

func (proc *TaskProcessor) Start() {
	slog.Info("starting task processor")

	for task := range proc.reciever.Tasks() {
		proc.ProcessTask(task)
	}
}

func (proc *TaskProcessor) Stop() {
	slog.Info("stopping task processor")

	proc.publisher.Close()
	proc.reciever.Close()
}

func (proc *TaskProcessor) ProcessTask(task messaging.Task) {
	ctx := context.Background()
	start := time.Now()

	if proc.metrics != nil {
		proc.metrics.TaskStarted()
		defer proc.metrics.TaskFinished()
	}

	var err error
	switch task.Type() {

	case messaging.AnalysisQueue:
		var payload messaging.AnalysisTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling analysis task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processAnalysisTask(ctx, payload)

	case messaging.ForecastQueue:
		var payload messaging.ForecastTaskPayload
		if err = json.Unmarshal(task.Payload(), &payload); err != nil {
			slog.Error("error unmarshalling forecast task", "error", err)
			if err := task.Reject(); err != nil { // Discard malformed message
				slog.Error("error rejecting message from queue", "error", err)
			}
			return
		}
		err = proc.processForecastTask(ctx, payload)

	default:
		slog.Error("received unknown task type", "queue", task.Type())
		if err := task.Reject(); err != nil {
			slog.Error("error rejecting message from queue", "error", err)
		}
		return
	}

	if proc.metrics != nil {
		proc.metrics.ObserveTask(task.Type(), err == nil, time.Since(start))
	}

	if err != nil {
		slog.Error("error processing task", "queue", task.Type(), "error", err)
		if err := task.Nack(); err != nil {
			slog.Error("error reporting processing failure on message from queue", "error", err)
		}
	} else {
		slog.Info("successfully processed task", "queue", task.Type())
		if err := task.Ack(); err != nil {
			slog.Error("error acknowledging message from queue", "error", err)
		}
	}
}

// loadTable fetches the workbook's object from storage and parses it.
func (proc *TaskProcessor) loadTable(ctx context.Context, workbook database.Workbook) (*SalesTable, error) {
	object, err := proc.storage.GetObject(ctx, proc.uploadBucket, workbook.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("error fetching workbook object: %w", err)
	}
	defer object.Close()

	table, err := ParseWorkbook(object)
	if err != nil {
		return nil, fmt.Errorf("error parsing workbook: %w", err)
	}
	return table, nil
}

func (proc *TaskProcessor) processAnalysisTask(ctx context.Context, payload messaging.AnalysisTaskPayload) error {
	workbookId := payload.WorkbookId

	slog.Info("processing analysis task", "workbook_id", workbookId)

	var workbook database.Workbook
	if err := proc.db.WithContext(ctx).First(&workbook, "id = ?", workbookId).Error; err != nil {
		slog.Error("error fetching workbook", "workbook_id", workbookId, "error", err)
		return fmt.Errorf("error getting workbook: %w", err)
	}

	database.UpdateWorkbookStatus(ctx, proc.db, workbookId, database.JobRunning) //nolint:errcheck

	table, err := proc.loadTable(ctx, workbook)
	if err != nil {
		slog.Error("error loading workbook", "workbook_id", workbookId, "error", err)
		database.UpdateWorkbookStatus(ctx, proc.db, workbookId, database.JobFailed) //nolint:errcheck
		database.SaveWorkbookError(ctx, proc.db, workbookId, err.Error())
		return err
	}

	summary := proc.summarizer.Summarize(ctx, table)
	serialized, err := json.Marshal(summary)
	if err != nil {
		database.UpdateWorkbookStatus(ctx, proc.db, workbookId, database.JobFailed) //nolint:errcheck
		database.SaveWorkbookError(ctx, proc.db, workbookId, err.Error())
		return fmt.Errorf("error serializing summary: %w", err)
	}

	if err := database.SaveWorkbookSummary(ctx, proc.db, workbookId, serialized, len(table.Rows), table.SkippedRows, table.HasSalesNames); err != nil {
		return fmt.Errorf("error saving workbook summary: %w", err)
	}

	if err := database.UpdateWorkbookStatus(ctx, proc.db, workbookId, database.JobCompleted); err != nil {
		return fmt.Errorf("error updating workbook status to complete: %w", err)
	}

	if proc.metrics != nil {
		proc.metrics.AddRows(len(table.Rows), table.SkippedRows)
	}

	slog.Info("analysis task completed successfully", "workbook_id", workbookId, "rows", len(table.Rows), "skipped", table.SkippedRows)

	return nil
}

func (proc *TaskProcessor) processForecastTask(ctx context.Context, payload messaging.ForecastTaskPayload) error {
	workbookId, jobId := payload.WorkbookId, payload.JobId

	slog.Info("processing forecast task", "workbook_id", workbookId, "job_id", jobId)

	var job database.ForecastJob
	if err := proc.db.WithContext(ctx).Preload("Workbook").First(&job, "id = ?", jobId).Error; err != nil {
		slog.Error("error fetching forecast job", "job_id", jobId, "error", err)
		return fmt.Errorf("error getting forecast job: %w", err)
	}

	if job.Workbook == nil {
		database.UpdateForecastJobStatus(ctx, proc.db, jobId, database.JobFailed) //nolint:errcheck
		return fmt.Errorf("forecast job %s has no workbook", jobId)
	}

	database.UpdateForecastJobStatus(ctx, proc.db, jobId, database.JobRunning) //nolint:errcheck

	table, err := proc.loadTable(ctx, *job.Workbook)
	if err != nil {
		slog.Error("error loading workbook for forecast", "workbook_id", workbookId, "error", err)
		database.UpdateForecastJobStatus(ctx, proc.db, jobId, database.JobFailed) //nolint:errcheck
		database.SaveWorkbookError(ctx, proc.db, workbookId, err.Error())
		return err
	}

	series := GroupSeries(table)

	if err := proc.db.WithContext(ctx).
		Model(&database.ForecastJob{}).
		Where("id = ?", jobId).
		UpdateColumn("total_series", len(series)).
		Error; err != nil {
		slog.Error("could not update total series count", "job_id", jobId, "error", err)
	}

	// Re-running a forecast replaces any points from a previous run.
	if err := proc.db.WithContext(ctx).
		Where("workbook_id = ?", workbookId).
		Delete(&database.ForecastPoint{}).Error; err != nil {
		database.UpdateForecastJobStatus(ctx, proc.db, jobId, database.JobFailed) //nolint:errcheck
		return fmt.Errorf("error clearing previous forecast points: %w", err)
	}

	results := ForecastAll(series, func(key SeriesKey, skipped bool) {
		if err := database.IncrementForecastProgress(ctx, proc.db, jobId, skipped); err != nil {
			slog.Error("could not update forecast progress", "job_id", jobId, "error", err)
		}
	})

	var points []database.ForecastPoint
	for _, result := range results {
		points = append(points, forecastPoints(workbookId, result)...)
	}

	if len(points) > 0 {
		if err := proc.db.WithContext(ctx).CreateInBatches(&points, forecastBatchSize).Error; err != nil {
			database.UpdateForecastJobStatus(ctx, proc.db, jobId, database.JobFailed) //nolint:errcheck
			database.SaveWorkbookError(ctx, proc.db, workbookId, err.Error())
			return fmt.Errorf("error saving forecast points: %w", err)
		}
	}

	if err := database.UpdateForecastJobStatus(ctx, proc.db, jobId, database.JobCompleted); err != nil {
		return fmt.Errorf("error updating forecast job status to complete: %w", err)
	}

	if proc.metrics != nil {
		proc.metrics.AddForecastSeries(len(results), len(series)-len(results))
	}

	slog.Info("forecast task completed successfully", "workbook_id", workbookId, "job_id", jobId, "series", len(results))

	return nil
}

func forecastPoints(workbookId uuid.UUID, result SeriesForecast) []database.ForecastPoint {
	points := make([]database.ForecastPoint, 0, len(result.Actuals)+len(result.Forecast))
	for _, actual := range result.Actuals {
		points = append(points, database.ForecastPoint{
			WorkbookId:   workbookId,
			SalesName:    result.Key.SalesName,
			CustomerName: result.Key.CustomerName,
			ItemName:     result.Key.ItemName,
			Month:        actual.Month,
			Kind:         database.PointActual,
			Quantity:     actual.Quantity,
		})
	}
	for _, forecast := range result.Forecast {
		points = append(points, database.ForecastPoint{
			WorkbookId:   workbookId,
			SalesName:    result.Key.SalesName,
			CustomerName: result.Key.CustomerName,
			ItemName:     result.Key.ItemName,
			Month:        forecast.Month,
			Kind:         database.PointForecast,
			Quantity:     forecast.Quantity,
			Lower:        sql.NullFloat64{Float64: forecast.Lower, Valid: true},
			Upper:        sql.NullFloat64{Float64: forecast.Upper, Valid: true},
		})
	}
	return points
}
