package app

import (
	"context"

	"github.com/hylla/taskboard/internal/domain"
)

// TaskRemoval is everything one delete writes. At most one of Tombstone and
// Pruned is set.
type TaskRemoval struct {
	TaskID    string
	Tombstone *domain.Tombstone
	// Pruned are dependents already rewritten without TaskID.
	Pruned []domain.Task
}

// Repository is the task store the service writes through.
type Repository interface {
	CreateTask(context.Context, domain.Task) error
	UpdateTask(context.Context, domain.Task) error
	GetTask(context.Context, string) (domain.Task, error)
	ListTasks(context.Context) ([]domain.Task, error)

	// RemoveTask applies a removal atomically.
	RemoveTask(context.Context, TaskRemoval) error
	// ImportTasks upserts tasks and tombstones atomically.
	ImportTasks(context.Context, []domain.Task, []domain.Tombstone) error
	ListTombstones(context.Context) ([]domain.Tombstone, error)
}
