// Package task holds the task record, its store and the state machine that
// is the only writer of task status.
package task

import (
	"strings"
	"time"

	apperrors "github.com/kbukum/scribe/errors"
)

// Status is a task's processing state. The numeric values are the codes
// exposed to clients.
type Status int

const (
	StatusQueued     Status = 80
	StatusProcessing Status = 100
	StatusDone       Status = 200
	StatusError      Status = 501
)

var statusMessages = map[Status]string{
	StatusQueued:     "queued",
	StatusProcessing: "processing",
	StatusDone:       "done",
	StatusError:      "error",
}

// Message returns the human-readable status name.
func (s Status) Message() string {
	if m, ok := statusMessages[s]; ok {
		return m
	}
	return "unknown"
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}

// ParseStatusName maps a listing filter to a status. It accepts the short
// filter names (queue, process, done, error) and the status messages.
func ParseStatusName(name string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "queue", "queued":
		return StatusQueued, nil
	case "process", "processing":
		return StatusProcessing, nil
	case "done":
		return StatusDone, nil
	case "error":
		return StatusError, nil
	default:
		return 0, apperrors.Validation("invalid status filter: use one of queue, process, done, error")
	}
}

// Task is one submitted audio file's unit of work. ID doubles as the
// creation order.
type Task struct {
	ID              uint    `gorm:"primaryKey"`
	TaskID          string  `gorm:"uniqueIndex;size:36;not null"`
	AccountID       uint    `gorm:"index:idx_tasks_account_status;not null"`
	Username        string  `gorm:"size:64;not null"`
	SourcePath      string  `gorm:"not null"`
	ContentType     string  `gorm:"size:64"`
	FileName        string  `gorm:"not null"`
	AudioDuration   float64 `gorm:"not null"`
	WithDiarization bool
	Status          Status `gorm:"index:idx_tasks_account_status;not null"`
	Message         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName pins the table name.
func (Task) TableName() string { return "tasks" }
