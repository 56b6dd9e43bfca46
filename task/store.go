package task

import (
	"context"

	"github.com/kbukum/scribe/database"
	apperrors "github.com/kbukum/scribe/errors"
)

// Store persists task rows. It never changes status after creation.
type Store struct {
	db *database.DB
}

// NewStore creates a store over db.
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// Create inserts t as QUEUED.
func (s *Store) Create(ctx context.Context, t *Task) error {
	t.Status = StatusQueued
	if err := s.db.WithContext(ctx).Create(t).Error; err != nil {
		return database.FromDatabase(err, "task")
	}
	return nil
}

// Delete removes a task row. Used to roll back a failed admission.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&Task{}).Error; err != nil {
		return database.FromDatabase(err, "task")
	}
	return nil
}

// Get loads a task by its external id regardless of owner.
func (s *Store) Get(ctx context.Context, taskID string) (*Task, error) {
	var t Task
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Take(&t).Error; err != nil {
		return nil, database.FromDatabase(err, "task")
	}
	return &t, nil
}

// GetOwned loads a task owned by accountID. Tasks of other accounts are
// reported as not found.
func (s *Store) GetOwned(ctx context.Context, accountID uint, taskID string) (*Task, error) {
	var t Task
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND task_id = ?", accountID, taskID).
		Take(&t).Error
	if database.IsNotFoundError(err) {
		return nil, apperrors.NotFound("task", taskID)
	}
	if err != nil {
		return nil, database.FromDatabase(err, "task")
	}
	return &t, nil
}

// ListFilter selects a page of an account's tasks.
type ListFilter struct {
	AccountID uint
	Status    *Status
	Offset    int
	Limit     int
}

// List returns the matching page, newest first, and the total match count.
func (s *Store) List(ctx context.Context, f ListFilter) ([]Task, int64, error) {
	q := s.db.WithContext(ctx).Model(&Task{}).Where("account_id = ?", f.AccountID)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, database.FromDatabase(err, "task")
	}

	tasks := []Task{}
	if int64(f.Offset) >= total {
		return tasks, total, nil
	}
	if err := q.Order("id DESC").Offset(f.Offset).Limit(f.Limit).Find(&tasks).Error; err != nil {
		return nil, 0, database.FromDatabase(err, "task")
	}
	return tasks, total, nil
}
