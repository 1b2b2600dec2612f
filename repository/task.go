package repository

import (
	"context"

	"github.com/taskdeck/backend/domain"
)

// Pagination bounds for task listing.
const (
	DefaultTaskLimit = 100
	MaxTaskLimit     = 1000
)

// TaskFilter narrows a task listing. The owner is always passed explicitly
// alongside the filter; it is never inferred from ambient state.
type TaskFilter struct {
	Status domain.TaskStatus
	Limit  int
	Offset int
}

// TaskRepository is the owner-scoped task store. Every operation is filtered
// by the owner argument: a task belonging to another user is indistinguishable
// from a missing one and is reported as domain.ErrTaskNotFound.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	GetByID(ctx context.Context, owner string, id int64) (*domain.Task, error)
	List(ctx context.Context, owner string, filter TaskFilter) ([]domain.Task, error)
	Update(ctx context.Context, owner string, id int64, patch domain.TaskPatch) (*domain.Task, error)
	Delete(ctx context.Context, owner string, id int64) error
}

// ClampTaskLimit normalizes a requested page size into [1, MaxTaskLimit].
func ClampTaskLimit(limit int) int {
	if limit <= 0 {
		return DefaultTaskLimit
	}
	if limit > MaxTaskLimit {
		return MaxTaskLimit
	}
	return limit
}
