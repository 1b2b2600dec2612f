// Package chat coordinates one conversational turn: resolve the
// conversation, persist the user's message, run the tool-using agent under a
// deadline, and persist whatever reply results. The orchestrator holds no
// per-request state; the only durable transitions are conversation creation
// and append-only message growth.
package chat

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

// Message length bounds for one chat turn.
const (
	MinMessageLen = 1
	MaxMessageLen = 10000
)

// Defaults applied when Config leaves a field unset.
const (
	DefaultHistoryLimit = 50
	DefaultAgentTimeout = 30 * time.Second
)

// Fixed user-facing fallback sentences. The underlying agent error is logged,
// never surfaced.
const (
	timeoutReply = "That request took too long. Please try again with a simpler message."
	failureReply = "I'm having trouble connecting right now. Please try again in a moment."
)

// Responder produces one assistant reply for a conversation transcript. The
// owner travels explicitly so the responder can scope its tool calls.
type Responder interface {
	Respond(ctx context.Context, owner string, transcript []domain.Message) (string, error)
}

// Config bounds a single turn.
type Config struct {
	HistoryLimit int
	AgentTimeout time.Duration
}

// Result is what the chat endpoint returns to the caller.
type Result struct {
	Response       string `json:"response"`
	ConversationID int64  `json:"conversation_id"`
	MessageID      int64  `json:"message_id"`
}

type UseCase struct {
	convs     repository.ConversationRepository
	responder Responder
	cfg       Config
	logger    *zap.Logger
}

// New builds the chat orchestrator. A nil responder means the assistant
// backend is unconfigured; Send then fails with domain.ErrAgentUnavailable
// before touching any conversation.
func New(convs repository.ConversationRepository, responder Responder, cfg Config, logger *zap.Logger) *UseCase {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	if cfg.AgentTimeout <= 0 {
		cfg.AgentTimeout = DefaultAgentTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		convs:     convs,
		responder: responder,
		cfg:       cfg,
		logger:    logger,
	}
}

// Send handles one inbound user message and produces exactly one assistant
// reply. The user's message is persisted before the agent runs, so a crashed
// or timed-out agent call never loses the input. Once the conversation is
// resolved the turn always completes: agent failures degrade into a fixed
// fallback sentence rather than an error.
func (uc *UseCase) Send(ctx context.Context, owner, message string, conversationID *int64) (*Result, error) {
	if uc.responder == nil {
		return nil, domain.ErrAgentUnavailable
	}
	// Bounds are in characters, not bytes; multibyte text counts per rune.
	if n := utf8.RuneCountInString(message); n < MinMessageLen || n > MaxMessageLen {
		return nil, domain.NewError(domain.ErrCodeInvalid, "message must be between 1 and 10000 characters")
	}

	conv, err := uc.resolveConversation(ctx, owner, conversationID)
	if err != nil {
		return nil, err
	}

	history, err := uc.convs.RecentHistory(ctx, conv.ID, uc.cfg.HistoryLimit)
	if err != nil {
		uc.logger.Error("history load failed", zap.String("user_id", owner), zap.Int64("conversation_id", conv.ID), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
	}

	userMsg, err := uc.convs.AppendMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleUser,
		Content:        message,
	})
	if err != nil {
		uc.logger.Error("user message persist failed", zap.String("user_id", owner), zap.Int64("conversation_id", conv.ID), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
	}

	transcript := append(history, *userMsg)
	assistantText := uc.runAgent(ctx, owner, conv.ID, transcript)

	assistantMsg, err := uc.convs.AppendMessage(ctx, &domain.Message{
		ConversationID: conv.ID,
		Role:           domain.RoleAssistant,
		Content:        assistantText,
	})
	if err != nil {
		uc.logger.Error("assistant message persist failed", zap.String("user_id", owner), zap.Int64("conversation_id", conv.ID), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
	}

	return &Result{
		Response:       assistantText,
		ConversationID: conv.ID,
		MessageID:      assistantMsg.ID,
	}, nil
}

// runAgent invokes the responder under the configured deadline and maps every
// failure onto a fixed fallback sentence. Cancelling the context aborts the
// in-flight model call; a tool result that straggles in afterwards is
// discarded by the tool host client and cannot race this turn.
func (uc *UseCase) runAgent(ctx context.Context, owner string, conversationID int64, transcript []domain.Message) string {
	agentCtx, cancel := context.WithTimeout(ctx, uc.cfg.AgentTimeout)
	defer cancel()

	text, err := uc.responder.Respond(agentCtx, owner, transcript)
	switch {
	case err == nil:
		return text
	case errors.Is(err, context.DeadlineExceeded):
		uc.logger.Warn("agent timed out",
			zap.String("user_id", owner),
			zap.Int64("conversation_id", conversationID),
			zap.Duration("timeout", uc.cfg.AgentTimeout),
		)
		return timeoutReply
	default:
		uc.logger.Error("agent call failed",
			zap.String("user_id", owner),
			zap.Int64("conversation_id", conversationID),
			zap.Error(err),
		)
		return failureReply
	}
}

// resolveConversation loads the caller's conversation or, when no id is
// supplied, creates a fresh untitled one. A foreign or unknown id propagates
// as not-found.
func (uc *UseCase) resolveConversation(ctx context.Context, owner string, conversationID *int64) (*domain.Conversation, error) {
	if conversationID != nil {
		conv, err := uc.convs.GetByID(ctx, owner, *conversationID)
		if err != nil {
			if domain.IsDomainError(err, domain.ErrCodeNotFound) {
				return nil, err
			}
			uc.logger.Error("conversation load failed", zap.String("user_id", owner), zap.Int64("conversation_id", *conversationID), zap.Error(err))
			return nil, domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
		}
		return conv, nil
	}

	conv, err := uc.convs.Create(ctx, owner, "")
	if err != nil {
		uc.logger.Error("conversation create failed", zap.String("user_id", owner), zap.Error(err))
		return nil, domain.WrapError(domain.ErrCodeInternal, "storage failure", err)
	}
	return conv, nil
}
