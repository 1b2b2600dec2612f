// Package agent runs the tool-using assistant: an OpenAI-compatible chat
// model (langchaingo) driving the tool host's task operations in a bounded
// function-calling loop.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/internal/toolhost"
)

// DefaultMaxTurns caps the model/tool round trips for one reply.
const DefaultMaxTurns = 10

// Config selects the chat completion backend.
type Config struct {
	APIKey   string
	BaseURL  string
	Model    string
	MaxTurns int
}

// ToolCaller is the slice of the tool host client the runner needs.
type ToolCaller interface {
	Tools() []toolhost.Tool
	CallTool(ctx context.Context, name string, args map[string]interface{}) (string, error)
}

// Runner implements chat.Responder over a chat model and a tool host.
type Runner struct {
	model    llms.Model
	host     ToolCaller
	maxTurns int
	logger   *zap.Logger
}

// New constructs a runner against an OpenAI-compatible endpoint.
func New(cfg Config, host ToolCaller, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	model, err := openai.New(
		openai.WithToken(cfg.APIKey),
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("chat model: %w", err)
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Runner{
		model:    model,
		host:     host,
		maxTurns: maxTurns,
		logger:   logger,
	}, nil
}

const systemPrompt = `You are a helpful Todo Task Assistant. You help users manage their tasks using natural language.

You have access to these tools:
- add_task: Create a new task for the user
- list_tasks: List all tasks (optionally filtered by status: pending, in_progress, completed)
- complete_task: Mark a task as completed
- delete_task: Delete a task permanently
- update_task: Update a task's title or description

IMPORTANT: The user_id is provided to you automatically. Always use the user_id that was given to you when calling any tool.

When you perform an action, confirm what you did in clear, friendly language.
When listing tasks, format them in a readable way with their status.
If the user asks about something unrelated to task management, politely explain that you are a task management assistant and describe what you can help with.`

// Respond produces one assistant reply for the transcript, executing tool
// calls as the model requests them. The owner is stamped onto every tool
// call; the model cannot act on another tenant's tasks.
func (r *Runner) Respond(ctx context.Context, owner string, transcript []domain.Message) (string, error) {
	messages := make([]llms.MessageContent, 0, len(transcript)+1)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem,
		fmt.Sprintf("%s\n\nThe current user_id is: %s", systemPrompt, owner)))

	for _, msg := range transcript {
		switch msg.Role {
		case domain.RoleUser:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case domain.RoleAssistant:
			messages = append(messages, llms.TextParts(llms.ChatMessageTypeAI, msg.Content))
		case domain.RoleSystem, domain.RoleTool:
			// Never part of the model-facing transcript.
		}
	}

	tools := r.llmTools()

	for turn := 0; turn < r.maxTurns; turn++ {
		resp, err := r.model.GenerateContent(ctx, messages, llms.WithTools(tools))
		if err != nil {
			return "", fmt.Errorf("generate: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", fmt.Errorf("model returned no choices")
		}
		choice := resp.Choices[0]

		if len(choice.ToolCalls) == 0 {
			return choice.Content, nil
		}

		// Some OpenAI-compatible backends omit call ids; the response parts
		// still need stable ones.
		for i := range choice.ToolCalls {
			if choice.ToolCalls[i].ID == "" {
				choice.ToolCalls[i].ID = uuid.NewString()
			}
		}

		assistantTurn := llms.MessageContent{Role: llms.ChatMessageTypeAI}
		for _, call := range choice.ToolCalls {
			assistantTurn.Parts = append(assistantTurn.Parts, call)
		}
		messages = append(messages, assistantTurn)

		for _, call := range choice.ToolCalls {
			result, err := r.execute(ctx, owner, call)
			if err != nil {
				return "", err
			}
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: call.ID,
					Name:       call.FunctionCall.Name,
					Content:    result,
				}},
			})
		}
	}

	return "", fmt.Errorf("agent exceeded %d turns without a final answer", r.maxTurns)
}

func (r *Runner) execute(ctx context.Context, owner string, call llms.ToolCall) (string, error) {
	if call.FunctionCall == nil {
		return "", fmt.Errorf("tool call without function payload")
	}

	args := map[string]interface{}{}
	if call.FunctionCall.Arguments != "" {
		if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &args); err != nil {
			return "", fmt.Errorf("tool arguments for %s: %w", call.FunctionCall.Name, err)
		}
	}
	// The owner always comes from the authenticated request, whatever the
	// model put in its arguments.
	args["user_id"] = owner

	r.logger.Debug("executing tool call",
		zap.String("tool", call.FunctionCall.Name),
		zap.String("user_id", owner),
	)
	return r.host.CallTool(ctx, call.FunctionCall.Name, args)
}

func (r *Runner) llmTools() []llms.Tool {
	hostTools := r.host.Tools()
	tools := make([]llms.Tool, 0, len(hostTools))
	for _, t := range hostTools {
		tools = append(tools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}
	return tools
}
