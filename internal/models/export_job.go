package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ExportType enumerates supported asynchronous recap categories.
type ExportType string

const (
	ExportTypeAnnouncements ExportType = "announcements"
	ExportTypeEvents        ExportType = "events"
)

// ExportFormat enumerates supported export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportStatus captures background job lifecycle states.
type ExportStatus string

const (
	ExportStatusQueued     ExportStatus = "QUEUED"
	ExportStatusProcessing ExportStatus = "PROCESSING"
	ExportStatusFinished   ExportStatus = "FINISHED"
	ExportStatusFailed     ExportStatus = "FAILED"
)

// ExportJob persisted background job metadata.
type ExportJob struct {
	ID           string          `db:"id" json:"id"`
	Type         ExportType      `db:"type" json:"type"`
	Params       ExportJobParams `db:"params" json:"params"`
	Status       ExportStatus    `db:"status" json:"status"`
	Progress     int             `db:"progress" json:"progress"`
	ResultURL    *string         `db:"result_url" json:"result_url,omitempty"`
	CreatedBy    string          `db:"created_by" json:"created_by"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	FinishedAt   *time.Time      `db:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
}

// ExportRequest asks for a new recap export.
type ExportRequest struct {
	Type     ExportType            `json:"type" validate:"required"`
	Format   ExportFormat          `json:"format" validate:"required"`
	FromDate *string               `json:"from_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	ToDate   *string               `json:"to_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Category *AnnouncementCategory `json:"category,omitempty"`
}

// ExportJobResponse acknowledges job creation.
type ExportJobResponse struct {
	ID       string       `json:"id"`
	Status   ExportStatus `json:"status"`
	Progress int          `json:"progress"`
}

// ExportStatusResponse exposes job progress to clients.
type ExportStatusResponse struct {
	ID        string       `json:"id"`
	Status    ExportStatus `json:"status"`
	Progress  int          `json:"progress"`
	ResultURL *string      `json:"result_url,omitempty"`
	Error     *string      `json:"error,omitempty"`
}

// ExportJobParams stores request-scoped options persisted as JSONB.
type ExportJobParams struct {
	FromDate *string               `json:"fromDate,omitempty"`
	ToDate   *string               `json:"toDate,omitempty"`
	Category *AnnouncementCategory `json:"category,omitempty"`
	Format   ExportFormat          `json:"format"`
	Extras   map[string]string     `json:"extras,omitempty"`
}

// Value marshals params to JSON for persistence.
func (p ExportJobParams) Value() (driver.Value, error) {
	if p.Extras == nil {
		p.Extras = map[string]string{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal export job params: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the params struct.
func (p *ExportJobParams) Scan(value interface{}) error {
	if value == nil {
		*p = ExportJobParams{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for ExportJobParams", value)
	}
	if len(data) == 0 {
		*p = ExportJobParams{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal export job params: %w", err)
	}
	return nil
}
