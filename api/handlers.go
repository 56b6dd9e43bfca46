package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/kbukum/scribe/account"
	"github.com/kbukum/scribe/admission"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/query"
	"github.com/kbukum/scribe/server"
	"github.com/kbukum/scribe/server/middleware"
)

// Accounts registers and authenticates callers.
type Accounts interface {
	middleware.Authenticator
	Register(ctx context.Context, username string) (*account.Account, error)
}

// Submitter admits uploads.
type Submitter interface {
	Submit(ctx context.Context, acct account.Principal, uploads []admission.Upload, withDiarization bool) ([]admission.Receipt, error)
}

// Queries answers status, listing and download lookups.
type Queries interface {
	Status(ctx context.Context, acct account.Principal, taskID string) (*query.StatusView, error)
	List(ctx context.Context, acct account.Principal, p query.ListParams) (*query.ListView, error)
	Download(ctx context.Context, acct account.Principal, taskID, kind string) query.DownloadResult
}

// Handlers serves the task API.
type Handlers struct {
	accounts  Accounts
	submitter Submitter
	queries   Queries
	log       *logger.Logger
}

// NewHandlers creates the route handlers.
func NewHandlers(accounts Accounts, submitter Submitter, queries Queries, log *logger.Logger) *Handlers {
	return &Handlers{accounts: accounts, submitter: submitter, queries: queries, log: log.WithComponent("api")}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
}

// Register handles POST /authorization.
func (h *Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, bindError(err, "request body must be JSON with a username"))
		return
	}
	acct, err := h.accounts.Register(c.Request.Context(), req.Username)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, acct)
}

// Submit handles POST /task.
func (h *Handlers) Submit(c *gin.Context) {
	acct := principal(c)
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			h.fail(c, apperrors.MissingField("audio"))
			return
		}
		h.fail(c, err)
		return
	}

	withDiarization := false
	if v := strings.TrimSpace(c.PostForm("with_diarization")); v != "" {
		withDiarization, err = strconv.ParseBool(v)
		if err != nil {
			h.fail(c, apperrors.Validation("with_diarization must be a boolean"))
			return
		}
	}

	var uploads []admission.Upload
	for _, field := range []string{"audio[]", "audio"} {
		for _, fh := range form.File[field] {
			uploads = append(uploads, admission.Upload{
				FileName:    fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Size:        fh.Size,
				Open:        func() (io.ReadCloser, error) { return fh.Open() },
			})
		}
	}

	receipts, err := h.submitter.Submit(c.Request.Context(), acct, uploads, withDiarization)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, receipts)
}

type listQuery struct {
	Status  string `form:"status"`
	Page    int    `form:"page" binding:"omitempty,min=1"`
	PerPage int    `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// List handles GET /status.
func (h *Handlers) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.fail(c, bindError(err, "page and per_page must be integers"))
		return
	}
	view, err := h.queries.List(c.Request.Context(), principal(c), query.ListParams{
		Status:  q.Status,
		Page:    q.Page,
		PerPage: q.PerPage,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Status handles GET /status/:task_id and GET /status/recognitions?task_id=.
func (h *Handlers) Status(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		taskID = c.Query("task_id")
	}
	if strings.TrimSpace(taskID) == "" {
		h.fail(c, apperrors.MissingField("task_id"))
		return
	}
	view, err := h.queries.Status(c.Request.Context(), principal(c), taskID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Download handles GET /download.
func (h *Handlers) Download(c *gin.Context) {
	taskID, kind := c.Query("task_id"), c.Query("type")
	switch {
	case strings.TrimSpace(taskID) == "":
		h.fail(c, apperrors.MissingField("task_id"))
		return
	case strings.TrimSpace(kind) == "":
		h.fail(c, apperrors.MissingField("type"))
		return
	}

	res := h.queries.Download(c.Request.Context(), principal(c), taskID, kind)
	switch res.Kind {
	case query.DownloadOK:
		c.Header("Content-Type", res.ContentType)
		c.FileAttachment(res.Path, res.Name)
	case query.DownloadNotFound, query.DownloadUnsupportedType:
		h.fail(c, res.Err)
	default:
		h.fail(c, apperrors.From(res.Err))
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	server.RespondWithError(c, h.log, err)
}

// principal returns the caller set by the auth middleware. Routes using it
// are always behind Auth.
func principal(c *gin.Context) account.Principal {
	p, _ := middleware.Principal(c)
	return p
}

// bindError keeps validator failures for translation and turns decoding
// failures into a plain validation error.
func bindError(err error, fallback string) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return err
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return apperrors.Validation(fallback)
}
