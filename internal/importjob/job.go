// Package importjob runs lead imports: it launches a scraping phantom, polls
// its container until it settles, and persists the parsed leads while
// keeping a progress record per job.
package importjob

import (
	"errors"
	"time"
)

// Status represents the lifecycle of an import job
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// Terminal reports whether no further transitions are allowed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// ErrJobNotFound is returned for unknown or evicted job ids
var ErrJobNotFound = errors.New("import job not found")

// Result summarises persisted rows
type Result struct {
	Saved     int `json:"saved_count"`
	Skipped   int `json:"skipped_count"`
	Malformed int `json:"malformed_count"`
}

// Job is a snapshot of one import
type Job struct {
	ID          string     `json:"job_id"`
	Source      string     `json:"source"`
	ContainerID string     `json:"container_id,omitempty"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Message     string     `json:"message"`
	Result      *Result    `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Update is a partial change to a job. Zero fields leave the job untouched.
type Update struct {
	Status      Status
	Progress    int
	Message     string
	ContainerID string
	Result      *Result
}

func (j *Job) clone() Job {
	out := *j
	if j.Result != nil {
		r := *j.Result
		out.Result = &r
	}
	if j.FinishedAt != nil {
		f := *j.FinishedAt
		out.FinishedAt = &f
	}
	return out
}
