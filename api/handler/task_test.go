package handler

import (
	"strconv"
	"testing"

	"github.com/valyala/fasthttp"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/internal/middleware"
	"github.com/taskdeck/backend/repository/memory"
	taskUC "github.com/taskdeck/backend/usecase/task"
)

func newTaskTestHandler() *TaskHandler {
	return NewTaskHandler(taskUC.New(memory.NewTaskRepository(), nil), nil, nil)
}

func taskRequest(authedUser, body string) *fasthttp.RequestCtx {
	var ctx fasthttp.RequestCtx
	if authedUser != "" {
		ctx.Request.Header.Set(middleware.UserIDHeader, authedUser)
	}
	if body != "" {
		ctx.Request.SetBody([]byte(body))
	}
	return &ctx
}

func TestCreateTaskReturns201(t *testing.T) {
	h := newTaskTestHandler()
	ctx := taskRequest("alice", `{"title":"Buy groceries","description":"milk"}`)

	h.CreateTask(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	env := decodeEnvelope(t, ctx)
	data, _ := env.Data.(map[string]interface{})
	if data["title"] != "Buy groceries" {
		t.Errorf("created title = %v, want Buy groceries", data["title"])
	}
	if data["status"] != "pending" {
		t.Errorf("created status = %v, want pending", data["status"])
	}
}

func TestCreateTaskValidationIs400(t *testing.T) {
	h := newTaskTestHandler()
	ctx := taskRequest("alice", `{"title":""}`)

	h.CreateTask(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", ctx.Response.StatusCode())
	}
	env := decodeEnvelope(t, ctx)
	if env.Code != string(domain.ErrCodeInvalid) {
		t.Errorf("envelope code = %q, want INVALID", env.Code)
	}
}

func TestGetTaskBadIDIs400(t *testing.T) {
	h := newTaskTestHandler()
	ctx := taskRequest("alice", "")
	ctx.SetUserValue("id", "abc")

	h.GetTask(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("status = %d, want 400", ctx.Response.StatusCode())
	}
}

func TestGetTaskMissingIs404(t *testing.T) {
	h := newTaskTestHandler()
	ctx := taskRequest("alice", "")
	ctx.SetUserValue("id", "42")

	h.GetTask(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("status = %d, want 404", ctx.Response.StatusCode())
	}
}

func TestDeleteTaskReturns204(t *testing.T) {
	h := newTaskTestHandler()

	create := taskRequest("alice", `{"title":"ephemeral"}`)
	h.CreateTask(create)
	env := decodeEnvelope(t, create)
	data, _ := env.Data.(map[string]interface{})
	id, _ := data["id"].(float64)

	ctx := taskRequest("alice", "")
	ctx.SetUserValue("id", jsonNumber(id))

	h.DeleteTask(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusNoContent {
		t.Fatalf("status = %d, want 204", ctx.Response.StatusCode())
	}
	if len(ctx.Response.Body()) != 0 {
		t.Errorf("204 response carries a body: %s", ctx.Response.Body())
	}
}

func TestUpdateTaskPartialViaHTTP(t *testing.T) {
	h := newTaskTestHandler()

	create := taskRequest("alice", `{"title":"original","description":"keep"}`)
	h.CreateTask(create)
	env := decodeEnvelope(t, create)
	data, _ := env.Data.(map[string]interface{})
	id, _ := data["id"].(float64)

	ctx := taskRequest("alice", `{"status":"completed"}`)
	ctx.SetUserValue("id", jsonNumber(id))

	h.UpdateTask(ctx)

	if ctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", ctx.Response.StatusCode(), ctx.Response.Body())
	}
	env = decodeEnvelope(t, ctx)
	data, _ = env.Data.(map[string]interface{})
	if data["status"] != "completed" {
		t.Errorf("status = %v, want completed", data["status"])
	}
	if data["title"] != "original" || data["description"] != "keep" {
		t.Errorf("unset fields changed: %v", data)
	}
}

// jsonNumber renders a task id the way the router stores path values.
func jsonNumber(id float64) string {
	return strconv.FormatInt(int64(id), 10)
}
