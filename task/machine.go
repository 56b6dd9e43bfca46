package task

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/kbukum/scribe/database"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/quota"
)

var (
	// ErrUnknownTask is returned when a transition names a task that does not exist.
	ErrUnknownTask = errors.New("task: unknown task")
	// ErrAlreadyTerminal is returned when a transition targets a DONE or ERROR task.
	ErrAlreadyTerminal = errors.New("task: already in a terminal status")
	// ErrNotProcessing is returned when a QUEUED task is asked to finish.
	ErrNotProcessing = errors.New("task: not processing")
)

// Machine performs status transitions:
//
//	QUEUED -> PROCESSING -> DONE
//	                     -> ERROR
//
// Every transition is one conditional UPDATE keyed by task_id, so terminal
// states are never left and redelivered messages cannot transition twice.
type Machine struct {
	db  *database.DB
	log *logger.Logger
}

// NewMachine creates a state machine over db.
func NewMachine(db *database.DB, log *logger.Logger) *Machine {
	return &Machine{db: db, log: log.WithComponent("state-machine")}
}

// Begin moves a task to PROCESSING and returns it. A task that is already
// PROCESSING (a redelivery after a crash) is returned as is.
func (m *Machine) Begin(ctx context.Context, taskID string) (*Task, error) {
	var t Task
	err := m.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&Task{}).
			Where("task_id = ? AND status = ?", taskID, StatusQueued).
			Update("status", StatusProcessing)
		if res.Error != nil {
			return database.FromDatabase(res.Error, "task")
		}
		if err := tx.Where("task_id = ?", taskID).Take(&t).Error; err != nil {
			if database.IsNotFoundError(err) {
				return ErrUnknownTask
			}
			return database.FromDatabase(err, "task")
		}
		if t.Status.IsTerminal() {
			return ErrAlreadyTerminal
		}
		if res.RowsAffected == 0 {
			m.log.WithTask(taskID).Warn("Task re-entered processing after redelivery")
		}
		return nil
	})
	if err != nil {
		m.logTransitionError(taskID, StatusProcessing, err)
		return nil, err
	}
	return &t, nil
}

// Complete marks a PROCESSING task DONE and debits its owner by seconds in the same
// transaction. It returns ErrAlreadyTerminal, without debiting, if the task
// was already finished.
func (m *Machine) Complete(ctx context.Context, taskID string, seconds float64) error {
	err := m.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		t, err := finish(tx, taskID, StatusDone, "")
		if err != nil {
			return err
		}
		left, err := quota.DebitTx(tx, t.AccountID, seconds)
		if err != nil {
			return err
		}
		m.log.WithTask(taskID).Info("Task done", logger.Fields(
			logger.FieldAccountID, t.AccountID,
			"debited", quota.Required(seconds),
			"remaining", left,
		))
		return nil
	})
	if err != nil {
		m.logTransitionError(taskID, StatusDone, err)
	}
	return err
}

// Fail marks a PROCESSING task ERROR with cause as its message.
func (m *Machine) Fail(ctx context.Context, taskID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	err := m.db.WithTransaction(ctx, func(tx *gorm.DB) error {
		_, err := finish(tx, taskID, StatusError, msg)
		return err
	})
	if err != nil {
		m.logTransitionError(taskID, StatusError, err)
		return err
	}
	m.log.WithTask(taskID).Warn("Task failed", logger.Fields(logger.FieldError, msg))
	return nil
}

// finish moves a PROCESSING task to a terminal status and returns the row.
func finish(tx *gorm.DB, taskID string, to Status, message string) (*Task, error) {
	res := tx.Model(&Task{}).
		Where("task_id = ? AND status = ?", taskID, StatusProcessing).
		Updates(map[string]interface{}{"status": to, "message": message})
	if res.Error != nil {
		return nil, database.FromDatabase(res.Error, "task")
	}

	var t Task
	if err := tx.Where("task_id = ?", taskID).Take(&t).Error; err != nil {
		if database.IsNotFoundError(err) {
			return nil, ErrUnknownTask
		}
		return nil, database.FromDatabase(err, "task")
	}
	if res.RowsAffected == 0 {
		if t.Status.IsTerminal() {
			return nil, ErrAlreadyTerminal
		}
		return nil, ErrNotProcessing
	}
	return &t, nil
}

func (m *Machine) logTransitionError(taskID string, to Status, err error) {
	log := m.log.WithTask(taskID)
	fields := logger.Fields(logger.FieldStatus, to.Message(), logger.FieldError, err.Error())
	switch {
	case errors.Is(err, ErrUnknownTask), errors.Is(err, ErrAlreadyTerminal), errors.Is(err, ErrNotProcessing):
		log.Warn("Transition skipped", fields)
	default:
		log.Error("Transition failed", fields)
	}
}
