package repository

import (
	"context"

	"github.com/taskdeck/backend/domain"
)

// ConversationRepository owns conversations and their append-only message log.
//
// GetByID applies the same tenant-isolation policy as the task store: a
// conversation owned by another user is reported as
// domain.ErrConversationNotFound.
type ConversationRepository interface {
	Create(ctx context.Context, owner, title string) (*domain.Conversation, error)
	GetByID(ctx context.Context, owner string, id int64) (*domain.Conversation, error)

	// AppendMessage inserts the message and bumps the parent conversation's
	// updated_at in the same unit of work.
	AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// RecentHistory returns at most limit of the newest user/assistant
	// messages, re-ordered chronologically ascending. System and tool turns
	// are excluded: they never reach the model-facing history.
	RecentHistory(ctx context.Context, conversationID int64, limit int) ([]domain.Message, error)
}
