package models

import "time"

// ExportFormat is the file type of a registration export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportRequest asks for a registration export.
type ExportRequest struct {
	Format ExportFormat    `json:"format" validate:"required,oneof=csv pdf"`
	Filter AnalyticsFilter `json:"filter"`
}

// ExportResult points at a generated export file.
type ExportResult struct {
	ID        string       `json:"id"`
	Format    ExportFormat `json:"format"`
	Rows      int          `json:"rows"`
	URL       string       `json:"url"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}
