// Package job tracks brief-generation jobs and runs them on a worker pool.
package job

import (
	"time"

	"github.com/pteargryphon/creative-brief-generator/internal/model"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MaxFailedProgress caps the progress of a failed job; 100 means completed.
const MaxFailedProgress = 99

// InitialMessage is the message of a job nobody has picked up yet.
const InitialMessage = "Initializing..."

// Record is the pollable state of one job.
type Record struct {
	ID         string             `json:"id"`
	Status     Status             `json:"status"`
	Progress   int                `json:"progress"`
	Message    string             `json:"message"`
	Result     *model.BriefResult `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
	StartedAt  time.Time          `json:"started_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
}

// Complete marks the record completed with its result.
func (r *Record) Complete(result *model.BriefResult) {
	r.Status = StatusCompleted
	r.Progress = 100
	r.Message = "Brief generated successfully!"
	r.Result = result
	r.Error = ""
}

// Fail marks the record failed. Progress is left where it stopped, below 100.
func (r *Record) Fail(desc string) {
	r.Status = StatusFailed
	r.Progress = min(r.Progress, MaxFailedProgress)
	r.Message = "Error: " + desc
	r.Error = desc
	r.Result = nil
}
