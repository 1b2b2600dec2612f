// Package task implements owner-scoped task management on top of a
// TaskRepository. Input validation happens here, before any store mutation;
// the HTTP handlers, the CLI and the tool host all share these rules.
package task

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

type UseCase struct {
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{tasks: tasks, logger: logger}
}

// CreateTask validates and stores a new task. An empty status defaults to
// pending.
func (uc *UseCase) CreateTask(ctx context.Context, owner, title, description string, status domain.TaskStatus) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if status == "" {
		status = domain.StatusPending
	}
	if !status.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "invalid status, must be one of: pending, in_progress, completed")
	}

	created, err := uc.tasks.Create(ctx, &domain.Task{
		UserID:      owner,
		Title:       title,
		Description: description,
		Status:      status,
	})
	if err != nil {
		uc.logger.Error("task create failed", zap.String("user_id", owner), zap.Error(err))
		return nil, internal(err)
	}
	return created, nil
}

// ListTasks returns the owner's tasks in id order, honoring limit/offset
// bounds.
func (uc *UseCase) ListTasks(ctx context.Context, owner string, filter repository.TaskFilter) ([]domain.Task, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "invalid status filter")
	}
	if filter.Offset < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "offset must not be negative")
	}
	filter.Limit = repository.ClampTaskLimit(filter.Limit)

	tasks, err := uc.tasks.List(ctx, owner, filter)
	if err != nil {
		uc.logger.Error("task list failed", zap.String("user_id", owner), zap.Error(err))
		return nil, internal(err)
	}
	return tasks, nil
}

func (uc *UseCase) GetTask(ctx context.Context, owner string, id int64) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, owner, id)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		uc.logger.Error("task get failed", zap.String("user_id", owner), zap.Int64("task_id", id), zap.Error(err))
		return nil, internal(err)
	}
	return task, nil
}

// UpdateTask applies a partial update. Only supplied fields change; an empty
// patch returns the unchanged task.
func (uc *UseCase) UpdateTask(ctx context.Context, owner string, id int64, patch domain.TaskPatch) (*domain.Task, error) {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if err := validateTitle(trimmed); err != nil {
			return nil, err
		}
		patch.Title = &trimmed
	}
	if patch.Description != nil {
		if err := validateDescription(*patch.Description); err != nil {
			return nil, err
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "invalid status, must be one of: pending, in_progress, completed")
	}

	task, err := uc.tasks.Update(ctx, owner, id, patch)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		uc.logger.Error("task update failed", zap.String("user_id", owner), zap.Int64("task_id", id), zap.Error(err))
		return nil, internal(err)
	}
	return task, nil
}

func (uc *UseCase) DeleteTask(ctx context.Context, owner string, id int64) error {
	if err := uc.tasks.Delete(ctx, owner, id); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}
		uc.logger.Error("task delete failed", zap.String("user_id", owner), zap.Int64("task_id", id), zap.Error(err))
		return internal(err)
	}
	return nil
}

// Length bounds are in characters, not bytes.
func validateTitle(title string) error {
	if title == "" {
		return domain.NewError(domain.ErrCodeInvalid, "title must not be empty")
	}
	if utf8.RuneCountInString(title) > domain.MaxTitleLen {
		return domain.NewError(domain.ErrCodeInvalid, "title must be at most 200 characters")
	}
	return nil
}

func validateDescription(description string) error {
	if utf8.RuneCountInString(description) > domain.MaxDescriptionLen {
		return domain.NewError(domain.ErrCodeInvalid, "description must be at most 2000 characters")
	}
	return nil
}

func internal(err error) error {
	return domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
}
