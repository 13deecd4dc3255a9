package api

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Workbook struct {
	Id       uuid.UUID
	Filename string
	Status   string

	SizeBytes     int64
	RowCount      int
	SkippedRows   int
	HasSalesNames bool

	CreationTime   time.Time
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`

	Errors []string `json:"Errors,omitempty"`
}

type UploadResponse struct {
	WorkbookId uuid.UUID
}

// Dashboard carries the precomputed summary as stored, the chart layout is
// left to the client.
type Dashboard struct {
	WorkbookId uuid.UUID
	Summary    json.RawMessage
}

type ListWorkbooksRequest struct {
	Status string `schema:"status"`
	Limit  int    `schema:"limit"`
}

type ForecastSubmitResponse struct {
	JobId uuid.UUID
}

type ForecastStatus struct {
	JobId  uuid.UUID
	Status string

	TotalSeries     int
	CompletedSeries int
	SkippedSeries   int
	PercentComplete float64

	CreationTime   time.Time
	CompletionTime *time.Time `json:"CompletionTime,omitempty"`
}

type HealthResponse struct {
	Status string
}
