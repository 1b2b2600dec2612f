package task

import (
	"context"
	"strings"
	"testing"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
	"github.com/taskdeck/backend/repository/memory"
)

func newTestUseCase() *UseCase {
	return New(memory.NewTaskRepository(), nil)
}

func TestCreateTaskValidation(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		description string
		status      domain.TaskStatus
		wantErr     bool
	}{
		{name: "valid minimal", title: "buy milk"},
		{name: "valid with status", title: "buy milk", status: domain.StatusInProgress},
		{name: "title at limit", title: strings.Repeat("a", domain.MaxTitleLen)},
		{name: "multibyte title at limit", title: strings.Repeat("日", domain.MaxTitleLen)},
		{name: "description at limit", title: "t", description: strings.Repeat("d", domain.MaxDescriptionLen)},
		{name: "multibyte description at limit", title: "t", description: strings.Repeat("é", domain.MaxDescriptionLen)},
		{name: "empty title", title: "", wantErr: true},
		{name: "whitespace title", title: "   ", wantErr: true},
		{name: "title over limit", title: strings.Repeat("a", domain.MaxTitleLen+1), wantErr: true},
		{name: "multibyte title over limit", title: strings.Repeat("日", domain.MaxTitleLen+1), wantErr: true},
		{name: "description over limit", title: "t", description: strings.Repeat("d", domain.MaxDescriptionLen+1), wantErr: true},
		{name: "bad status", title: "t", status: "done", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newTestUseCase()
			task, err := uc.CreateTask(context.Background(), "alice", tt.title, tt.description, tt.status)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got task %+v", task)
				}
				if !domain.IsDomainError(err, domain.ErrCodeInvalid) {
					t.Errorf("error code = %v, want INVALID", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if task.UserID != "alice" {
				t.Errorf("UserID = %q, want alice", task.UserID)
			}
		})
	}
}

func TestCreateTaskTrimsTitleAndDefaultsStatus(t *testing.T) {
	uc := newTestUseCase()
	task, err := uc.CreateTask(context.Background(), "alice", "  padded  ", "", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if task.Title != "padded" {
		t.Errorf("Title = %q, want trimmed %q", task.Title, "padded")
	}
	if task.Status != domain.StatusPending {
		t.Errorf("Status = %q, want %q", task.Status, domain.StatusPending)
	}
}

func TestListTasksRejectsBadFilter(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	if _, err := uc.ListTasks(ctx, "alice", repository.TaskFilter{Status: "nope"}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("bad status filter: err = %v, want INVALID", err)
	}
	if _, err := uc.ListTasks(ctx, "alice", repository.TaskFilter{Offset: -1}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("negative offset: err = %v, want INVALID", err)
	}
}

func TestListTasksClampsLimit(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	for i := 0; i < 120; i++ {
		if _, err := uc.CreateTask(ctx, "alice", "bulk", "", ""); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}

	tasks, err := uc.ListTasks(ctx, "alice", repository.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != repository.DefaultTaskLimit {
		t.Errorf("default page size = %d, want %d", len(tasks), repository.DefaultTaskLimit)
	}
}

func TestUpdateTaskValidatesProvidedFieldsOnly(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	task, err := uc.CreateTask(ctx, "alice", "original", "desc", "")
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	empty := ""
	if _, err := uc.UpdateTask(ctx, "alice", task.ID, domain.TaskPatch{Title: &empty}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("empty title patch: err = %v, want INVALID", err)
	}

	bad := domain.TaskStatus("done")
	if _, err := uc.UpdateTask(ctx, "alice", task.ID, domain.TaskPatch{Status: &bad}); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("bad status patch: err = %v, want INVALID", err)
	}

	status := domain.StatusCompleted
	updated, err := uc.UpdateTask(ctx, "alice", task.ID, domain.TaskPatch{Status: &status})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if !updated.IsCompleted() {
		t.Errorf("Status = %q, want completed", updated.Status)
	}
	if updated.Title != "original" || updated.Description != "desc" {
		t.Errorf("unset fields changed: %+v", updated)
	}
}

func TestNotFoundPassesThrough(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	if _, err := uc.GetTask(ctx, "alice", 42); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Errorf("GetTask on missing id: err = %v, want NOT_FOUND", err)
	}
	title := "x"
	if _, err := uc.UpdateTask(ctx, "alice", 42, domain.TaskPatch{Title: &title}); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Errorf("UpdateTask on missing id: err = %v, want NOT_FOUND", err)
	}
	if err := uc.DeleteTask(ctx, "alice", 42); !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Errorf("DeleteTask on missing id: err = %v, want NOT_FOUND", err)
	}
}

// TestTaskLifecycle walks one owner's tasks through the full create, list,
// complete, delete flow.
func TestTaskLifecycle(t *testing.T) {
	uc := newTestUseCase()
	ctx := context.Background()

	groceries, err := uc.CreateTask(ctx, "alice", "Buy groceries", "milk, eggs", "")
	if err != nil {
		t.Fatalf("create groceries: %v", err)
	}
	laundry, err := uc.CreateTask(ctx, "alice", "Do laundry", "", "")
	if err != nil {
		t.Fatalf("create laundry: %v", err)
	}

	status := domain.StatusCompleted
	if _, err := uc.UpdateTask(ctx, "alice", groceries.ID, domain.TaskPatch{Status: &status}); err != nil {
		t.Fatalf("complete groceries: %v", err)
	}

	pending, err := uc.ListTasks(ctx, "alice", repository.TaskFilter{Status: domain.StatusPending})
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != laundry.ID {
		t.Fatalf("pending = %+v, want only laundry", pending)
	}

	if err := uc.DeleteTask(ctx, "alice", laundry.ID); err != nil {
		t.Fatalf("delete laundry: %v", err)
	}

	remaining, err := uc.ListTasks(ctx, "alice", repository.TaskFilter{})
	if err != nil {
		t.Fatalf("list remaining: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != groceries.ID {
		t.Fatalf("remaining = %+v, want only groceries", remaining)
	}
}
