package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"dashboard-backend/internal/core"
	"dashboard-backend/internal/database"
	"dashboard-backend/internal/messaging"
	"dashboard-backend/internal/storage"
	"dashboard-backend/pkg/api"
)

// MaxUploadSize caps workbook uploads at 16 MiB.
const MaxUploadSize = 16 << 20

const defaultListLimit = 100

type BackendService struct {
	db        *gorm.DB
	storage   storage.ObjectStore
	publisher messaging.Publisher

	uploadBucket string
}

func NewBackendService(db *gorm.DB, store storage.ObjectStore, publisher messaging.Publisher, uploadBucket string) *BackendService {
	return &BackendService{db: db, storage: store, publisher: publisher, uploadBucket: uploadBucket}
}

func (s *BackendService) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return api.HealthResponse{Status: "ok"}, nil }))
	r.Route("/workbooks", func(r chi.Router) {
		r.Post("/", RestHandlerStatus(http.StatusAccepted, s.UploadWorkbook))
		r.Get("/", RestHandler(s.ListWorkbooks))
		r.Route("/{workbook_id}", func(r chi.Router) {
			r.Get("/", RestHandler(s.GetWorkbook))
			r.Get("/dashboard", RestHandler(s.GetDashboard))
			r.Route("/forecast", func(r chi.Router) {
				r.Post("/", RestHandler(s.SubmitForecastJob))
				r.Get("/", RestHandler(s.GetForecastStatus))
				r.Get("/download", DownloadHandler(s.DownloadForecastCSV))
			})
			r.Get("/activity/download", DownloadHandler(s.DownloadActivityWorkbook))
		})
	})
}

func (s *BackendService) UploadWorkbook(r *http.Request) (any, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, MaxUploadSize)

	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, CodedErrorf(http.StatusRequestEntityTooLarge, "uploaded file exceeds the %d byte limit", MaxUploadSize)
		}
		return nil, CodedErrorf(http.StatusBadRequest, "unable to parse multipart form: %v", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, CodedErrorf(http.StatusBadRequest, "missing 'file' form field")
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		return nil, CodedErrorf(http.StatusBadRequest, "only .xlsx files are supported")
	}

	ctx := r.Context()

	workbook := database.Workbook{
		Id:           uuid.New(),
		Filename:     filepath.Base(header.Filename),
		SizeBytes:    header.Size,
		Status:       database.JobQueued,
		CreationTime: time.Now().UTC(),
	}
	workbook.StorageKey = fmt.Sprintf("%s/%s", workbook.Id, workbook.Filename)

	if err := s.storage.PutObject(ctx, s.uploadBucket, workbook.StorageKey, file); err != nil {
		slog.Error("error storing uploaded workbook", "workbook_id", workbook.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to store uploaded file")
	}

	if err := s.db.WithContext(ctx).Create(&workbook).Error; err != nil {
		slog.Error("error creating workbook record", "workbook_id", workbook.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create workbook entry")
	}

	if err := s.publisher.PublishAnalysisTask(ctx, messaging.AnalysisTaskPayload{WorkbookId: workbook.Id}); err != nil {
		slog.Error("error publishing analysis task", "workbook_id", workbook.Id, "error", err)
		database.UpdateWorkbookStatus(ctx, s.db, workbook.Id, database.JobFailed) //nolint:errcheck
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue workbook analysis")
	}

	slog.Info("accepted workbook upload", "workbook_id", workbook.Id, "filename", workbook.Filename, "size", workbook.SizeBytes)
	return api.UploadResponse{WorkbookId: workbook.Id}, nil
}

func (s *BackendService) ListWorkbooks(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.ListWorkbooksRequest](r)
	if err != nil {
		return nil, err
	}

	if params.Limit <= 0 {
		params.Limit = defaultListLimit
	}

	ctx := r.Context()

	query := s.db.WithContext(ctx).Order("creation_time DESC").Limit(params.Limit)
	if params.Status != "" {
		query = query.Where("status = ?", strings.ToUpper(params.Status))
	}

	var workbooks []database.Workbook
	if err := query.Find(&workbooks).Error; err != nil {
		slog.Error("error listing workbooks", "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving workbooks")
	}

	results := make([]api.Workbook, len(workbooks))
	for i, workbook := range workbooks {
		results[i] = toApiWorkbook(workbook)
	}
	return results, nil
}

func (s *BackendService) getWorkbook(r *http.Request) (database.Workbook, error) {
	workbookId, err := URLParamUUID(r, "workbook_id")
	if err != nil {
		return database.Workbook{}, err
	}

	var workbook database.Workbook
	if err := s.db.WithContext(r.Context()).Preload("Errors").First(&workbook, "id = ?", workbookId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.Workbook{}, CodedErrorf(http.StatusNotFound, "workbook not found")
		}
		slog.Error("error getting workbook", "workbook_id", workbookId, "error", err)
		return database.Workbook{}, CodedErrorf(http.StatusInternalServerError, "error retrieving workbook record")
	}
	return workbook, nil
}

func (s *BackendService) GetWorkbook(r *http.Request) (any, error) {
	workbook, err := s.getWorkbook(r)
	if err != nil {
		return nil, err
	}
	return toApiWorkbook(workbook), nil
}

func (s *BackendService) GetDashboard(r *http.Request) (any, error) {
	workbook, err := s.getWorkbook(r)
	if err != nil {
		return nil, err
	}

	if workbook.Status != database.JobCompleted {
		return nil, CodedErrorf(http.StatusConflict, "workbook analysis has status %s, dashboard is not ready", workbook.Status)
	}

	return api.Dashboard{WorkbookId: workbook.Id, Summary: json.RawMessage(workbook.Summary)}, nil
}

func (s *BackendService) SubmitForecastJob(r *http.Request) (any, error) {
	workbook, err := s.getWorkbook(r)
	if err != nil {
		return nil, err
	}

	if workbook.Status != database.JobCompleted {
		return nil, CodedErrorf(http.StatusConflict, "workbook analysis has status %s, forecasting requires a completed analysis", workbook.Status)
	}

	ctx := r.Context()

	// Resubmitting while a job is in flight returns that job instead of
	// racing a second forecast over the same points.
	var existing database.ForecastJob
	err = s.db.WithContext(ctx).
		Where("workbook_id = ? AND status IN ?", workbook.Id, []string{database.JobQueued, database.JobRunning}).
		Order("creation_time DESC").
		First(&existing).Error
	if err == nil {
		return api.ForecastSubmitResponse{JobId: existing.Id}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		slog.Error("error checking for active forecast job", "workbook_id", workbook.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "error retrieving forecast jobs")
	}

	job := database.ForecastJob{
		Id:           uuid.New(),
		WorkbookId:   workbook.Id,
		Status:       database.JobQueued,
		CreationTime: time.Now().UTC(),
	}

	if err := s.db.WithContext(ctx).Create(&job).Error; err != nil {
		slog.Error("error creating forecast job", "workbook_id", workbook.Id, "error", err)
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to create forecast job entry")
	}

	payload := messaging.ForecastTaskPayload{WorkbookId: workbook.Id, JobId: job.Id}
	if err := s.publisher.PublishForecastTask(ctx, payload); err != nil {
		slog.Error("error publishing forecast task", "job_id", job.Id, "error", err)
		database.UpdateForecastJobStatus(ctx, s.db, job.Id, database.JobFailed) //nolint:errcheck
		return nil, CodedErrorf(http.StatusInternalServerError, "failed to queue forecast task")
	}

	slog.Info("submitted forecast job", "workbook_id", workbook.Id, "job_id", job.Id)
	return api.ForecastSubmitResponse{JobId: job.Id}, nil
}

func (s *BackendService) latestForecastJob(r *http.Request) (database.ForecastJob, error) {
	workbookId, err := URLParamUUID(r, "workbook_id")
	if err != nil {
		return database.ForecastJob{}, err
	}

	var job database.ForecastJob
	if err := s.db.WithContext(r.Context()).
		Where("workbook_id = ?", workbookId).
		Order("creation_time DESC").
		First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return database.ForecastJob{}, CodedErrorf(http.StatusNotFound, "no forecast job found for workbook")
		}
		slog.Error("error getting forecast job", "workbook_id", workbookId, "error", err)
		return database.ForecastJob{}, CodedErrorf(http.StatusInternalServerError, "error retrieving forecast job")
	}
	return job, nil
}

func (s *BackendService) GetForecastStatus(r *http.Request) (any, error) {
	job, err := s.latestForecastJob(r)
	if err != nil {
		return nil, err
	}
	return toApiForecastStatus(job), nil
}

func (s *BackendService) DownloadForecastCSV(w http.ResponseWriter, r *http.Request) error {
	job, err := s.latestForecastJob(r)
	if err != nil {
		return err
	}

	if job.Status != database.JobCompleted {
		return CodedErrorf(http.StatusConflict, "forecast job has status %s, download is not ready", job.Status)
	}

	var points []database.ForecastPoint
	if err := s.db.WithContext(r.Context()).
		Where("workbook_id = ?", job.WorkbookId).
		Order("sales_name, customer_name, item_name, month, kind").
		Find(&points).Error; err != nil {
		slog.Error("error fetching forecast points", "workbook_id", job.WorkbookId, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error retrieving forecast points")
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="forecast_%s.csv"`, job.WorkbookId))

	if err := core.WriteForecastCSV(w, points); err != nil {
		slog.Error("error streaming forecast csv", "workbook_id", job.WorkbookId, "error", err)
	}
	return nil
}

func (s *BackendService) DownloadActivityWorkbook(w http.ResponseWriter, r *http.Request) error {
	workbook, err := s.getWorkbook(r)
	if err != nil {
		return err
	}

	if workbook.Status != database.JobCompleted {
		return CodedErrorf(http.StatusConflict, "workbook analysis has status %s, download is not ready", workbook.Status)
	}

	var summary core.DashboardSummary
	if err := json.Unmarshal(workbook.Summary, &summary); err != nil {
		slog.Error("error parsing stored summary", "workbook_id", workbook.Id, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error reading workbook summary")
	}

	if len(summary.QuarterlyActivity) == 0 {
		return CodedErrorf(http.StatusNotFound, "workbook has no quarterly activity data")
	}

	file, err := core.BuildActivityWorkbook(summary.QuarterlyActivity)
	if err != nil {
		slog.Error("error building activity workbook", "workbook_id", workbook.Id, "error", err)
		return CodedErrorf(http.StatusInternalServerError, "error building activity workbook")
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="customer_activity_%s.xlsx"`, workbook.Id))

	if err := file.Write(w); err != nil {
		slog.Error("error streaming activity workbook", "workbook_id", workbook.Id, "error", err)
	}
	return nil
}

func toApiWorkbook(workbook database.Workbook) api.Workbook {
	result := api.Workbook{
		Id:            workbook.Id,
		Filename:      workbook.Filename,
		Status:        workbook.Status,
		SizeBytes:     workbook.SizeBytes,
		RowCount:      workbook.RowCount,
		SkippedRows:   workbook.SkippedRows,
		HasSalesNames: workbook.HasSalesNames,
		CreationTime:  workbook.CreationTime,
	}
	if workbook.CompletionTime.Valid {
		t := workbook.CompletionTime.Time
		result.CompletionTime = &t
	}
	for _, workbookError := range workbook.Errors {
		result.Errors = append(result.Errors, workbookError.Error)
	}
	return result
}

func toApiForecastStatus(job database.ForecastJob) api.ForecastStatus {
	result := api.ForecastStatus{
		JobId:           job.Id,
		Status:          job.Status,
		TotalSeries:     job.TotalSeries,
		CompletedSeries: job.CompletedSeries,
		SkippedSeries:   job.SkippedSeries,
		CreationTime:    job.CreationTime,
	}
	if job.TotalSeries > 0 {
		result.PercentComplete = float64(job.CompletedSeries+job.SkippedSeries) / float64(job.TotalSeries) * 100
	} else if job.Status == database.JobCompleted {
		result.PercentComplete = 100
	}
	if job.CompletionTime.Valid {
		t := job.CompletionTime.Time
		result.CompletionTime = &t
	}
	return result
}
