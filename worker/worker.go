// Package worker processes queued transcription tasks: it drives the state
// machine around one engine call and the transcript assembly.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/scribe/engine"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/observability"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/task"
	"github.com/kbukum/scribe/transcript"
)

// ErrNotTerminal is returned when a status write failed and the task is
// not DONE or ERROR. It wraps queue.ErrRedeliver so the message is not
// committed.
var ErrNotTerminal = fmt.Errorf("task status not recorded: %w", queue.ErrRedeliver)

// Transitioner is the state machine surface the worker drives.
type Transitioner interface {
	Begin(ctx context.Context, taskID string) (*task.Task, error)
	Complete(ctx context.Context, taskID string, seconds float64) error
	Fail(ctx context.Context, taskID string, cause error) error
}

// ArtifactWriter persists the rendered transcript.
type ArtifactWriter interface {
	Write(ctx context.Context, dir, taskID string, doc *transcript.Document) error
}

// TaskDirs resolves a task's storage directory.
type TaskDirs interface {
	TaskDir(username, taskID string) string
}

// Worker handles one task message at a time.
type Worker struct {
	machine   Transitioner
	engine    engine.Engine
	assembler *transcript.Assembler
	writer    ArtifactWriter
	dirs      TaskDirs
	metrics   *observability.Metrics
	log       *logger.Logger
}

// New creates a worker. metrics may be nil.
func New(
	machine Transitioner,
	eng engine.Engine,
	assembler *transcript.Assembler,
	writer ArtifactWriter,
	dirs TaskDirs,
	metrics *observability.Metrics,
	log *logger.Logger,
) *Worker {
	return &Worker{
		machine:   machine,
		engine:    eng,
		assembler: assembler,
		writer:    writer,
		dirs:      dirs,
		metrics:   metrics,
		log:       log.WithComponent("worker"),
	}
}

// Handle processes one descriptor and returns once the task is terminal.
// It returns nil for messages that must be acknowledged without work
// (unknown or already finished tasks), the context error when processing
// was interrupted and ErrNotTerminal when a status write failed. The last
// two leave the message for redelivery.
func (w *Worker) Handle(ctx context.Context, d queue.Descriptor) error {
	log := w.log.WithTask(d.TaskID)

	t, err := w.machine.Begin(ctx, d.TaskID)
	switch {
	case errors.Is(err, task.ErrUnknownTask), errors.Is(err, task.ErrAlreadyTerminal):
		log.Info("Skipping message", logger.Fields(logger.FieldError, err.Error()))
		return nil
	case err != nil:
		log.Warn("Begin failed, message left for redelivery", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("%w: begin: %w", ErrNotTerminal, err)
	}

	ctx, op := observability.StartOperation(ctx, w.metrics, "task.process", t.TaskID,
		attribute.Int64(observability.AttrAccountID, int64(t.AccountID)),
		attribute.String(observability.AttrEngine, w.engine.Name()),
	)
	outcome, err := w.process(ctx, t, log)
	op.End(ctx, outcome, err)
	if outcome == observability.OutcomeCanceled {
		return ctx.Err()
	}
	return err
}

func (w *Worker) process(ctx context.Context, t *task.Task, log *logger.Logger) (string, error) {
	started := time.Now()
	log.Info("Transcription started", logger.Fields(
		"file", t.FileName,
		"audio_duration", t.AudioDuration,
		"with_diarization", t.WithDiarization,
	))

	raw, err := w.engine.Transcribe(ctx, t.SourcePath, t.WithDiarization)
	if err != nil {
		if ctx.Err() != nil {
			return w.interrupted(log)
		}
		return w.fail(ctx, t, apperrors.EngineFailure(err))
	}

	doc, err := w.assembler.Assemble(raw, t.WithDiarization, time.Since(started))
	if err != nil {
		var formatErr *transcript.SegmentFormatError
		if errors.As(err, &formatErr) {
			return w.fail(ctx, t, apperrors.SegmentFormat(err))
		}
		return w.fail(ctx, t, apperrors.Internal(err))
	}

	if err := w.writer.Write(ctx, w.dirs.TaskDir(t.Username, t.TaskID), t.TaskID, doc); err != nil {
		if ctx.Err() != nil {
			return w.interrupted(log)
		}
		return w.fail(ctx, t, apperrors.Internal(err))
	}

	err = w.machine.Complete(ctx, t.TaskID, t.AudioDuration)
	switch {
	case errors.Is(err, task.ErrAlreadyTerminal):
		return observability.OutcomeSkipped, nil
	case err != nil:
		if ctx.Err() != nil {
			return w.interrupted(log)
		}
		return w.fail(ctx, t, err)
	}

	w.metrics.AudioTranscribed(ctx, t.AudioDuration)
	log.Info("Transcription finished", logger.Fields(
		"segments", len(doc.Segments),
		"processing_time", doc.ProcessingTime,
	))
	return observability.OutcomeDone, nil
}

// fail records cause on the task. The returned error is cause itself once
// the task is ERROR, and wraps ErrNotTerminal when the write failed.
func (w *Worker) fail(ctx context.Context, t *task.Task, cause error) (string, error) {
	if err := w.machine.Fail(ctx, t.TaskID, cause); err != nil && !errors.Is(err, task.ErrAlreadyTerminal) {
		return observability.OutcomeError, fmt.Errorf("%w: %w", ErrNotTerminal, errors.Join(cause, err))
	}
	return observability.OutcomeError, cause
}

func (w *Worker) interrupted(log *logger.Logger) (string, error) {
	log.Warn("Transcription interrupted, task left for redelivery")
	return observability.OutcomeCanceled, nil
}
