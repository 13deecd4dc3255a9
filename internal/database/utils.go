package database

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func UpdateWorkbookStatus(ctx context.Context, txn *gorm.DB, workbookId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&Workbook{Id: workbookId}).Updates(updates).Error; err != nil {
		slog.Error("error updating workbook status", "workbook_id", workbookId, "status", status, "error", err)
		return err
	}
	return nil
}

func SaveWorkbookSummary(ctx context.Context, txn *gorm.DB, workbookId uuid.UUID, summary []byte, rowCount, skippedRows int, hasSalesNames bool) error {
	updates := map[string]any{
		"summary":         datatypes.JSON(summary),
		"row_count":       rowCount,
		"skipped_rows":    skippedRows,
		"has_sales_names": hasSalesNames,
	}

	if err := txn.WithContext(ctx).Model(&Workbook{Id: workbookId}).Updates(updates).Error; err != nil {
		slog.Error("error saving workbook summary", "workbook_id", workbookId, "error", err)
		return err
	}
	return nil
}

func UpdateForecastJobStatus(ctx context.Context, txn *gorm.DB, jobId uuid.UUID, status string) error {
	updates := map[string]any{"status": status}
	if status == JobCompleted || status == JobFailed {
		updates["completion_time"] = time.Now().UTC()
	}

	if err := txn.WithContext(ctx).Model(&ForecastJob{Id: jobId}).Updates(updates).Error; err != nil {
		slog.Error("error updating forecast job status", "job_id", jobId, "status", status, "error", err)
		return err
	}
	return nil
}

func IncrementForecastProgress(ctx context.Context, txn *gorm.DB, jobId uuid.UUID, skipped bool) error {
	column := "completed_series"
	if skipped {
		column = "skipped_series"
	}

	if err := txn.WithContext(ctx).
		Model(&ForecastJob{}).
		Where("id = ?", jobId).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).
		Error; err != nil {
		slog.Error("error incrementing forecast progress", "job_id", jobId, "column", column, "error", err)
		return err
	}
	return nil
}

func SaveWorkbookError(ctx context.Context, txn *gorm.DB, workbookId uuid.UUID, message string) {
	record := WorkbookError{
		WorkbookId: workbookId,
		ErrorId:    uuid.New(),
		Error:      message,
		Timestamp:  time.Now().UTC(),
	}

	if err := txn.WithContext(ctx).Create(&record).Error; err != nil {
		slog.Error("error saving workbook error", "workbook_id", workbookId, "error", err)
	}
}
