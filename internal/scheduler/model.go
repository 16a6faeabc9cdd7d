package scheduler

import (
	"time"
)

type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// JobRun is one recorded execution of a scheduler job. Rows double as an
// operational history and as the audit anchor for background mutations.
type JobRun struct {
	ID         string     `gorm:"primaryKey;type:varchar(26)" json:"id"`
	JobName    string     `gorm:"type:text;not null;index" json:"job_name"`
	Status     JobStatus  `gorm:"type:text;not null" json:"status"`
	StartedAt  time.Time  `gorm:"not null;index" json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Processed  int        `gorm:"not null;default:0" json:"processed"`
	Failed     int        `gorm:"not null;default:0" json:"failed"`
	LastError  string     `gorm:"type:text" json:"last_error,omitempty"`
}

func (JobRun) TableName() string { return "scheduler_job_runs" }

func (r *JobRun) AddProcessed(n int) { r.Processed += n }

func (r *JobRun) AddFailed(n int) { r.Failed += n }
