// Package memory provides an in-memory TaskRepository. It backs the
// interactive CLI prototype and serves as the store double in tests. The
// semantics mirror the durable store: owner isolation, partial updates, and
// IDs that start at 1, strictly increase and are never reused.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

type taskRepository struct {
	mu     sync.Mutex
	tasks  []*domain.Task
	nextID int64
}

// NewTaskRepository returns an empty in-memory task store.
func NewTaskRepository() repository.TaskRepository {
	return &taskRepository{nextID: 1}
}

func (r *taskRepository) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored := &domain.Task{
		ID:          r.nextID,
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if stored.Status == "" {
		stored.Status = domain.StatusPending
	}
	r.nextID++
	r.tasks = append(r.tasks, stored)

	out := *stored
	return &out, nil
}

func (r *taskRepository) GetByID(_ context.Context, owner string, id int64) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := r.find(owner, id)
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	out := *task
	return &out, nil
}

func (r *taskRepository) List(_ context.Context, owner string, filter repository.TaskFilter) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit := repository.ClampTaskLimit(filter.Limit)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	// Insertion order equals id order here.
	matched := 0
	out := make([]domain.Task, 0)
	for _, task := range r.tasks {
		if task.UserID != owner {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if matched < offset {
			matched++
			continue
		}
		matched++
		if len(out) == limit {
			break
		}
		out = append(out, *task)
	}
	return out, nil
}

func (r *taskRepository) Update(_ context.Context, owner string, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task := r.find(owner, id)
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	if patch.IsEmpty() {
		out := *task
		return &out, nil
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	task.UpdatedAt = time.Now().UTC()

	out := *task
	return &out, nil
}

func (r *taskRepository) Delete(_ context.Context, owner string, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, task := range r.tasks {
		if task.UserID == owner && task.ID == id {
			r.tasks = append(r.tasks[:i], r.tasks[i+1:]...)
			return nil
		}
	}
	return domain.ErrTaskNotFound
}

func (r *taskRepository) find(owner string, id int64) *domain.Task {
	for _, task := range r.tasks {
		if task.UserID == owner && task.ID == id {
			return task
		}
	}
	return nil
}
