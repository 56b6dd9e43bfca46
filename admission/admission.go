// Package admission accepts uploaded audio as QUEUED tasks.
//
// A request is admitted as a whole. Content types and sizes are checked
// before anything is stored. Every file is then saved, measured for its
// duration and checked against the account's remaining budget (minus what
// earlier files of the same request need). Only when all files pass are the
// task rows created and the descriptors published. A failure at any step
// removes the rows and uploads of the whole request.
package admission

import (
	"context"
	"fmt"
	"io"
	"mime"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/account"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/quota"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/task"
)

// AllowedContentTypes lists the accepted audio media types.
var AllowedContentTypes = []string{
	"audio/wav",
	"audio/x-wav",
	"audio/wave",
	"audio/mpeg",
	"audio/mp3",
	"audio/flac",
	"audio/x-flac",
	"audio/ogg",
	"audio/mp4",
	"audio/aac",
	"audio/x-ms-wma",
}

var allowed = func() map[string]bool {
	m := make(map[string]bool, len(AllowedContentTypes))
	for _, ct := range AllowedContentTypes {
		m[ct] = true
	}
	return m
}()

// Upload is one file of a submission.
type Upload struct {
	FileName    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// Receipt acknowledges an admitted file. RemainingTime is the account's
// budget as read at admission; nothing is debited until the task completes.
type Receipt struct {
	TaskID        string  `json:"task_id"`
	FileName      string  `json:"file_name"`
	AudioDuration float64 `json:"audio_duration"`
	RemainingTime int64   `json:"remaining_time"`
}

// UploadStore saves and removes task directories.
type UploadStore interface {
	SaveUpload(ctx context.Context, username, taskID, fileName string, r io.Reader) (string, error)
	RemoveTaskDir(username, taskID string) error
}

// Prober reports audio durations in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// BudgetChecker reads an account's remaining budget.
type BudgetChecker interface {
	Check(ctx context.Context, accountID uint, neededSeconds float64) (quota.Check, error)
}

// TaskRecorder creates and rolls back task rows.
type TaskRecorder interface {
	Create(ctx context.Context, t *task.Task) error
	Delete(ctx context.Context, taskID string) error
}

// Controller admits submissions.
type Controller struct {
	store     UploadStore
	prober    Prober
	budget    BudgetChecker
	tasks     TaskRecorder
	publisher queue.Publisher
	log       *logger.Logger
	newID     func() string

	maxFileSize int64
}

// NewController wires a Controller.
func NewController(store UploadStore, prober Prober, budget BudgetChecker, tasks TaskRecorder, publisher queue.Publisher, log *logger.Logger) *Controller {
	return &Controller{
		store:     store,
		prober:    prober,
		budget:    budget,
		tasks:     tasks,
		publisher: publisher,
		log:       log.WithComponent("admission"),
		newID:     uuid.NewString,
	}
}

// WithMaxFileSize rejects uploads larger than n bytes. Zero disables the check.
func (c *Controller) WithMaxFileSize(n int64) *Controller {
	c.maxFileSize = n
	return c
}

// NormalizeContentType strips parameters and lower-cases a media type.
func NormalizeContentType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mt, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// IsAllowed reports whether ct is an accepted audio type.
func IsAllowed(ct string) bool {
	return allowed[NormalizeContentType(ct)]
}

// Submit admits every upload or none of them.
func (c *Controller) Submit(ctx context.Context, acct account.Principal, uploads []Upload, withDiarization bool) ([]Receipt, error) {
	files := make([]Upload, 0, len(uploads))
	for _, u := range uploads {
		if u.FileName == "" && u.Size == 0 {
			continue
		}
		files = append(files, u)
	}
	if len(files) == 0 {
		return nil, apperrors.MissingField("audio")
	}
	for _, u := range files {
		if !IsAllowed(u.ContentType) {
			return nil, apperrors.UnsupportedFormat("audio format", u.ContentType)
		}
		if c.maxFileSize > 0 && u.Size > c.maxFileSize {
			return nil, apperrors.Validation(fmt.Sprintf("file %s exceeds the %d byte limit", u.FileName, c.maxFileSize)).
				WithDetail("max_file_size", c.maxFileSize)
		}
	}

	batch := make([]*staged, 0, len(files))
	var reserved int64
	for _, u := range files {
		st, err := c.stage(ctx, acct, u, withDiarization, reserved)
		if err != nil {
			c.rollback(ctx, acct, batch)
			return nil, err
		}
		batch = append(batch, st)
		reserved += st.required
	}

	for _, st := range batch {
		if err := c.tasks.Create(ctx, st.task); err != nil {
			c.rollback(ctx, acct, batch)
			return nil, err
		}
		st.recorded = true
	}

	for _, st := range batch {
		if err := c.publisher.Publish(ctx, st.descriptor()); err != nil {
			c.rollback(ctx, acct, batch)
			if !apperrors.IsAppError(err) {
				err = apperrors.ServiceUnavailable("message queue").WithCause(err)
			}
			return nil, err
		}
	}

	receipts := make([]Receipt, 0, len(batch))
	for _, st := range batch {
		c.log.WithTask(st.task.TaskID).Info("Task queued", logger.Fields(
			logger.FieldAccountID, acct.ID,
			"audio_duration", st.task.AudioDuration,
			"with_diarization", withDiarization,
		))
		receipts = append(receipts, st.receipt)
	}
	return receipts, nil
}

// staged is a saved and budget-checked upload that has no task row yet.
type staged struct {
	task     *task.Task
	receipt  Receipt
	required int64
	recorded bool
}

func (s *staged) descriptor() queue.Descriptor {
	return queue.Descriptor{
		TaskID:          s.task.TaskID,
		AccountID:       s.task.AccountID,
		Username:        s.task.Username,
		FilePath:        s.task.SourcePath,
		AudioDuration:   s.task.AudioDuration,
		WithDiarization: s.task.WithDiarization,
	}
}

// stage saves u, measures its duration and checks it against the budget
// left after the files staged before it.
func (c *Controller) stage(ctx context.Context, acct account.Principal, u Upload, withDiarization bool, reserved int64) (*staged, error) {
	taskID := c.newID()
	log := c.log.WithTask(taskID).WithFields(logger.Fields(logger.FieldAccountID, acct.ID, "file", u.FileName))

	path, err := c.save(ctx, acct.Username, taskID, u)
	if err != nil {
		c.removeUpload(acct, taskID)
		return nil, err
	}

	duration, err := c.prober.Duration(ctx, path)
	if err != nil {
		c.removeUpload(acct, taskID)
		log.Warn("Duration lookup failed", logger.Fields(logger.FieldError, err.Error()))
		return nil, apperrors.DurationUnavailable(u.FileName).WithCause(err)
	}

	check, err := c.budget.Check(ctx, acct.ID, duration)
	if err != nil {
		c.removeUpload(acct, taskID)
		return nil, err
	}
	left := check.Remaining - reserved
	if check.Required > left {
		c.removeUpload(acct, taskID)
		log.Info("Submission over budget", logger.Fields("remaining", left, "required", check.Required))
		return nil, apperrors.QuotaExceeded(max(left, 0), check.Required)
	}

	return &staged{
		task: &task.Task{
			TaskID:          taskID,
			AccountID:       acct.ID,
			Username:        acct.Username,
			SourcePath:      path,
			ContentType:     NormalizeContentType(u.ContentType),
			FileName:        u.FileName,
			AudioDuration:   duration,
			WithDiarization: withDiarization,
		},
		receipt: Receipt{
			TaskID:        taskID,
			FileName:      u.FileName,
			AudioDuration: duration,
			RemainingTime: check.Remaining,
		},
		required: check.Required,
	}, nil
}

// rollback removes every row and upload of a failed request. A descriptor
// already published for a removed row is acknowledged by the worker
// without work, since its task no longer exists.
func (c *Controller) rollback(ctx context.Context, acct account.Principal, all []*staged) {
	ctx = context.WithoutCancel(ctx)
	for _, st := range all {
		if st.recorded {
			if err := c.tasks.Delete(ctx, st.task.TaskID); err != nil {
				c.log.WithTask(st.task.TaskID).Error("Task rollback failed", logger.Fields(logger.FieldError, err.Error()))
			}
		}
		c.removeUpload(acct, st.task.TaskID)
	}
}

func (c *Controller) removeUpload(acct account.Principal, taskID string) {
	if err := c.store.RemoveTaskDir(acct.Username, taskID); err != nil {
		c.log.WithTask(taskID).Warn("Upload cleanup failed", logger.Fields(logger.FieldError, err.Error()))
	}
}

func (c *Controller) save(ctx context.Context, username, taskID string, u Upload) (string, error) {
	if u.Open == nil {
		return "", apperrors.MissingField("audio")
	}
	f, err := u.Open()
	if err != nil {
		return "", apperrors.Internal(err)
	}
	defer f.Close()

	path, err := c.store.SaveUpload(ctx, username, taskID, u.FileName, f)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return path, nil
}
