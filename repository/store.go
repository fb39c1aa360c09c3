package repository

import (
	"context"
	"errors"

	"tracker/model"

	"github.com/sony/gobreaker"
)

// SnapshotFunc receives the full contents of one collection. It runs on the
// store's delivery path and must not call back into the store.
type SnapshotFunc func(model.Snapshot)

// Subscription is a live change feed for one collection. Cancel is
// synchronous: once it returns, the callback will not run again.
type Subscription interface {
	Cancel()
}

// Store is the per-user persistence boundary for projects, tasks and reminders.
// Update and delete return model.ErrNotFound when the id does not exist.
type Store interface {
	CreateProject(ctx context.Context, userID string, project model.Project) error
	UpdateProject(ctx context.Context, userID, id string, patch model.ProjectPatch) error
	// DeleteProject removes the project and every task referencing it in one
	// atomic unit.
	DeleteProject(ctx context.Context, userID, id string) error
	ListProjects(ctx context.Context, userID string) ([]model.Project, error)

	CreateTask(ctx context.Context, userID string, task model.Task) error
	UpdateTask(ctx context.Context, userID, id string, patch model.TaskPatch) error
	DeleteTask(ctx context.Context, userID, id string) error
	ListTasks(ctx context.Context, userID string) ([]model.Task, error)

	CreateReminder(ctx context.Context, userID string, reminder model.Reminder) error
	UpdateReminder(ctx context.Context, userID, id string, patch model.ReminderPatch) error
	DeleteReminder(ctx context.Context, userID, id string) error
	ListReminders(ctx context.Context, userID string) ([]model.Reminder, error)

	// ReplaceAll swaps all three collections for the backup's contents atomically.
	ReplaceAll(ctx context.Context, userID string, backup *model.Backup) error

	// Subscribe delivers the current snapshot of kind, then a fresh snapshot
	// after every change, until the subscription is cancelled.
	Subscribe(ctx context.Context, userID string, kind model.Kind, fn SnapshotFunc) (Subscription, error)
}

type entity interface {
	EntityID() string
}

func indexOf[T entity](items []T, id string) int {
	for i, item := range items {
		if item.EntityID() == id {
			return i
		}
	}
	return -1
}

// IsUnavailable reports whether err came from an open circuit breaker rather
// than from the database itself.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
