package models

import "time"

// BadgeJobStatus tracks a bulk badge render.
type BadgeJobStatus string

const (
	BadgeJobQueued     BadgeJobStatus = "queued"
	BadgeJobProcessing BadgeJobStatus = "processing"
	BadgeJobFinished   BadgeJobStatus = "finished"
	BadgeJobFailed     BadgeJobStatus = "failed"
	BadgeJobCancelled  BadgeJobStatus = "cancelled"
)

// BadgeJob is the in-memory record of a badge sheet render.
type BadgeJob struct {
	ID          string          `json:"id"`
	Status      BadgeJobStatus  `json:"status"`
	Total       int             `json:"total"`
	Rendered    int             `json:"rendered"`
	CreatedBy   string          `json:"created_by"`
	Filter      AnalyticsFilter `json:"filter"`
	ResultPath  string          `json:"-"`
	DownloadURL string          `json:"download_url,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// Done reports whether the job has stopped.
func (j BadgeJob) Done() bool {
	return j.Status == BadgeJobFinished || j.Status == BadgeJobFailed || j.Status == BadgeJobCancelled
}

// BadgeJobRequest starts a badge render.
type BadgeJobRequest struct {
	Statuses []RegistrationStatus `json:"statuses,omitempty"`
	Search   string               `json:"search,omitempty"`
}
