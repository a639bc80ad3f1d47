package model

import (
	"time"
)

// JobStatus represents the lifecycle stage of an upload job
type JobStatus string

const (
	JobStatusPreparing JobStatus = "preparing"
	JobStatusUploading JobStatus = "uploading"
	JobStatusSyncing   JobStatus = "syncing"
	JobStatusCompleted JobStatus = "completed"
	JobStatusError     JobStatus = "error"
)

// UploadJob represents one asynchronous unit of work that uploads media
// and finalizes a post record
type UploadJob struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	PostID    string    `json:"post_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether the job reached a state it never leaves
// automatically
func (j *UploadJob) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusError
}
