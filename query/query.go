// Package query serves the read-only views over an account's tasks: single
// status, paginated listing and artifact download.
package query

import (
	"context"
	"strings"
	"time"

	"github.com/kbukum/scribe/account"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/task"
	"github.com/kbukum/scribe/transcript"
	"github.com/kbukum/scribe/util"
)

// Listing bounds.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// TaskReader is the task store surface used by queries.
type TaskReader interface {
	GetOwned(ctx context.Context, accountID uint, taskID string) (*task.Task, error)
	List(ctx context.Context, f task.ListFilter) ([]task.Task, int64, error)
}

// ArtifactLocator resolves and checks artifact files.
type ArtifactLocator interface {
	ArtifactPath(username, taskID, ext string) string
	Exists(path string) (bool, error)
}

// StatusBody is a status code with its message.
type StatusBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func statusBody(s task.Status) StatusBody {
	return StatusBody{Code: int(s), Message: s.Message()}
}

// StatusView answers GET /status/:task_id.
type StatusView struct {
	TaskID string     `json:"task_id"`
	Status StatusBody `json:"status"`
}

// ListParams are the listing query parameters. Zero Page and PerPage select
// the defaults.
type ListParams struct {
	Status  string
	Page    int
	PerPage int
}

// TaskSummary is one listing entry.
type TaskSummary struct {
	TaskID        string     `json:"task_id"`
	FileName      string     `json:"file_name"`
	Status        StatusBody `json:"status"`
	AudioDuration float64    `json:"audio_duration"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ListView answers GET /status.
type ListView struct {
	Status     string        `json:"status"`
	Page       int           `json:"page"`
	PerPage    int           `json:"per_page"`
	TotalTasks int64         `json:"total_tasks"`
	TotalPages int64         `json:"total_pages"`
	Tasks      []TaskSummary `json:"tasks"`
}

// Service runs queries scoped to the requesting account.
type Service struct {
	tasks     TaskReader
	artifacts ArtifactLocator
}

// NewService creates a query service.
func NewService(tasks TaskReader, artifacts ArtifactLocator) *Service {
	return &Service{tasks: tasks, artifacts: artifacts}
}

// Status returns a task's status. Tasks of other accounts are not found.
func (s *Service) Status(ctx context.Context, acct account.Principal, taskID string) (*StatusView, error) {
	t, err := s.owned(ctx, acct, taskID)
	if err != nil {
		return nil, err
	}
	return &StatusView{TaskID: t.TaskID, Status: statusBody(t.Status)}, nil
}

// List returns one page of the account's tasks, newest first. A page past
// the end is empty, not an error.
func (s *Service) List(ctx context.Context, acct account.Principal, p ListParams) (*ListView, error) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PerPage == 0 {
		p.PerPage = DefaultPerPage
	}
	if p.Page < 1 {
		return nil, apperrors.Validation("page must be a positive integer")
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		return nil, apperrors.Validation("per_page must be between 1 and 100")
	}

	filter := task.ListFilter{AccountID: acct.ID, Offset: (p.Page - 1) * p.PerPage, Limit: p.PerPage}
	label := "all"
	if name := strings.TrimSpace(p.Status); name != "" {
		st, err := task.ParseStatusName(name)
		if err != nil {
			return nil, err
		}
		filter.Status = util.Ptr(st)
		label = strings.ToLower(name)
	}

	rows, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	summaries := make([]TaskSummary, 0, len(rows))
	for _, t := range rows {
		summaries = append(summaries, TaskSummary{
			TaskID:        t.TaskID,
			FileName:      t.FileName,
			Status:        statusBody(t.Status),
			AudioDuration: t.AudioDuration,
			CreatedAt:     t.CreatedAt,
		})
	}
	return &ListView{
		Status:     label,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalTasks: total,
		TotalPages: TotalPages(total, p.PerPage),
		Tasks:      summaries,
	}, nil
}

// TotalPages is ceil(total / perPage).
func TotalPages(total int64, perPage int) int64 {
	if perPage <= 0 {
		return 0
	}
	return (total + int64(perPage) - 1) / int64(perPage)
}

func (s *Service) owned(ctx context.Context, acct account.Principal, taskID string) (*task.Task, error) {
	taskID = strings.TrimSpace(taskID)
	if !util.IsUUID(taskID) {
		return nil, apperrors.NotFound("task", taskID)
	}
	return s.tasks.GetOwned(ctx, acct.ID, taskID)
}

// DownloadKind tags the outcome of a download lookup.
type DownloadKind int

const (
	DownloadOK DownloadKind = iota
	DownloadNotFound
	DownloadUnsupportedType
	DownloadInternal
)

// DownloadResult is the tagged outcome of Download. Path, Name and
// ContentType are set for DownloadOK; Err explains every other kind.
type DownloadResult struct {
	Kind        DownloadKind
	Path        string
	Name        string
	ContentType string
	Err         error
}

var downloadTypes = map[string]string{
	transcript.ExtText: "text/plain; charset=utf-8",
	transcript.ExtJSON: "application/json",
}

// Download locates a finished artifact of the given type ("txt" or "json").
// A task that has not produced the artifact yet is not found.
func (s *Service) Download(ctx context.Context, acct account.Principal, taskID, kind string) DownloadResult {
	ext := strings.ToLower(strings.TrimSpace(kind))
	contentType, ok := downloadTypes[ext]
	if !ok {
		return DownloadResult{
			Kind: DownloadUnsupportedType,
			Err:  apperrors.UnsupportedFormat("download type", kind).WithDetail("supported", "txt, json"),
		}
	}

	t, err := s.owned(ctx, acct, taskID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return DownloadResult{Kind: DownloadNotFound, Err: err}
		}
		return DownloadResult{Kind: DownloadInternal, Err: err}
	}

	path := s.artifacts.ArtifactPath(t.Username, t.TaskID, ext)
	exists, err := s.artifacts.Exists(path)
	if err != nil {
		return DownloadResult{Kind: DownloadInternal, Err: apperrors.Internal(err)}
	}
	if !exists {
		return DownloadResult{
			Kind: DownloadNotFound,
			Err:  apperrors.NotFound("artifact", t.TaskID+"."+ext).WithDetail("status", t.Status.Message()),
		}
	}
	return DownloadResult{
		Kind:        DownloadOK,
		Path:        path,
		Name:        t.TaskID + "." + ext,
		ContentType: contentType,
	}
}
