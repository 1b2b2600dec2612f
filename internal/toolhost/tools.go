package toolhost

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
	taskuc "github.com/taskdeck/backend/usecase/task"
)

// ToolHandler executes tool calls against the task store. Every tool takes an
// explicit user_id argument; nothing is inferred from process state.
type ToolHandler struct {
	tasks  *taskuc.UseCase
	logger *zap.Logger
}

// NewToolHandler creates a tool handler over the given task use case.
func NewToolHandler(tasks *taskuc.UseCase, logger *zap.Logger) *ToolHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolHandler{tasks: tasks, logger: logger}
}

// ToolList describes the fixed tool surface, in the shape the agent's model
// expects for function calling.
func ToolList() []Tool {
	return []Tool{
		{
			Name:        "add_task",
			Description: "Add a new task for the specified user.",
			InputSchema: objectSchema(map[string]interface{}{
				"user_id":     stringProp("Owner of the task"),
				"title":       stringProp("Short task title"),
				"description": stringProp("Optional longer description"),
			}, "user_id", "title"),
		},
		{
			Name:        "list_tasks",
			Description: "List tasks for the specified user, optionally filtered by status (pending, in_progress, completed).",
			InputSchema: objectSchema(map[string]interface{}{
				"user_id": stringProp("Owner of the tasks"),
				"status":  stringProp("Optional status filter"),
			}, "user_id"),
		},
		{
			Name:        "complete_task",
			Description: "Mark a specific task as completed.",
			InputSchema: objectSchema(map[string]interface{}{
				"user_id": stringProp("Owner of the task"),
				"task_id": numberProp("Identifier of the task"),
			}, "user_id", "task_id"),
		},
		{
			Name:        "delete_task",
			Description: "Permanently delete a specific task.",
			InputSchema: objectSchema(map[string]interface{}{
				"user_id": stringProp("Owner of the task"),
				"task_id": numberProp("Identifier of the task"),
			}, "user_id", "task_id"),
		},
		{
			Name:        "update_task",
			Description: "Update the title and/or description of a specific task.",
			InputSchema: objectSchema(map[string]interface{}{
				"user_id":     stringProp("Owner of the task"),
				"task_id":     numberProp("Identifier of the task"),
				"title":       stringProp("New title"),
				"description": stringProp("New description"),
			}, "user_id", "task_id"),
		},
	}
}

// Handle dispatches a tool call. Domain failures come back as data in an
// {"error": ...} payload; an error return is reserved for protocol misuse.
func (h *ToolHandler) Handle(ctx context.Context, name string, args map[string]interface{}) (interface{}, error) {
	owner, _ := args["user_id"].(string)
	if owner == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	switch name {
	case "add_task":
		return h.addTask(ctx, owner, args), nil
	case "list_tasks":
		return h.listTasks(ctx, owner, args), nil
	case "complete_task":
		return h.completeTask(ctx, owner, args), nil
	case "delete_task":
		return h.deleteTask(ctx, owner, args), nil
	case "update_task":
		return h.updateTask(ctx, owner, args), nil
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (h *ToolHandler) addTask(ctx context.Context, owner string, args map[string]interface{}) interface{} {
	title, _ := args["title"].(string)
	description, _ := args["description"].(string)

	task, err := h.tasks.CreateTask(ctx, owner, title, description, domain.StatusPending)
	if err != nil {
		return h.toolError(err, owner, "add_task", "Failed to create task")
	}
	return task
}

func (h *ToolHandler) listTasks(ctx context.Context, owner string, args map[string]interface{}) interface{} {
	filter := repository.TaskFilter{}
	if status, _ := args["status"].(string); status != "" {
		parsed, err := domain.ParseTaskStatus(status)
		if err != nil {
			return map[string]interface{}{"error": "Invalid status. Must be one of: pending, in_progress, completed"}
		}
		filter.Status = parsed
	}

	tasks, err := h.tasks.ListTasks(ctx, owner, filter)
	if err != nil {
		return h.toolError(err, owner, "list_tasks", "Failed to list tasks")
	}
	return map[string]interface{}{
		"tasks": tasks,
		"count": len(tasks),
	}
}

func (h *ToolHandler) completeTask(ctx context.Context, owner string, args map[string]interface{}) interface{} {
	id, ok := taskID(args)
	if !ok {
		return map[string]interface{}{"error": "task_id is required"}
	}
	status := domain.StatusCompleted
	task, err := h.tasks.UpdateTask(ctx, owner, id, domain.TaskPatch{Status: &status})
	if err != nil {
		return h.toolError(err, owner, "complete_task", "Failed to complete task")
	}
	return task
}

func (h *ToolHandler) deleteTask(ctx context.Context, owner string, args map[string]interface{}) interface{} {
	id, ok := taskID(args)
	if !ok {
		return map[string]interface{}{"error": "task_id is required"}
	}
	if err := h.tasks.DeleteTask(ctx, owner, id); err != nil {
		return h.toolError(err, owner, "delete_task", "Failed to delete task")
	}
	return map[string]interface{}{"deleted": true, "task_id": id}
}

func (h *ToolHandler) updateTask(ctx context.Context, owner string, args map[string]interface{}) interface{} {
	id, ok := taskID(args)
	if !ok {
		return map[string]interface{}{"error": "task_id is required"}
	}

	patch := domain.TaskPatch{}
	if title, _ := args["title"].(string); title != "" {
		patch.Title = &title
	}
	if description, _ := args["description"].(string); description != "" {
		patch.Description = &description
	}
	if patch.IsEmpty() {
		return map[string]interface{}{"error": "At least one of title or description must be provided"}
	}

	task, err := h.tasks.UpdateTask(ctx, owner, id, patch)
	if err != nil {
		return h.toolError(err, owner, "update_task", "Failed to update task")
	}
	return task
}

// toolError shapes a failure for the agent. Domain errors keep their message
// (they are already caller-safe); anything else is logged and replaced by a
// generic sentence.
func (h *ToolHandler) toolError(err error, owner, operation, fallback string) map[string]interface{} {
	var dErr *domain.Error
	if errors.As(err, &dErr) && dErr.Code != domain.ErrCodeInternal {
		return map[string]interface{}{"error": dErr.Message}
	}
	h.logger.Error("tool call failed",
		zap.String("tool", operation),
		zap.String("user_id", owner),
		zap.Error(err),
	)
	return map[string]interface{}{"error": fallback}
}

func taskID(args map[string]interface{}) (int64, bool) {
	switch v := args["task_id"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func numberProp(description string) map[string]interface{} {
	return map[string]interface{}{"type": "integer", "description": description}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
