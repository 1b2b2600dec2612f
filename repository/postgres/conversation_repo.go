package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdeck/backend/domain"
	"github.com/taskdeck/backend/repository"
)

type conversationRepository struct {
	pool *pgxpool.Pool
}

// NewConversationRepository returns a Postgres-backed ConversationRepository.
func NewConversationRepository(pool *pgxpool.Pool) repository.ConversationRepository {
	return &conversationRepository{pool: pool}
}

func (r *conversationRepository) Create(ctx context.Context, owner, title string) (*domain.Conversation, error) {
	const query = `
	INSERT INTO conversations (user_id, title)
	VALUES ($1, $2)
	RETURNING id, created_at, updated_at
	`
	conv := &domain.Conversation{UserID: owner, Title: title}
	if err := r.pool.QueryRow(ctx, query, owner, title).Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
		return nil, err
	}
	return conv, nil
}

func (r *conversationRepository) GetByID(ctx context.Context, owner string, id int64) (*domain.Conversation, error) {
	const query = `
	SELECT id, user_id, title, created_at, updated_at
	FROM conversations
	WHERE user_id = $1 AND id = $2
	`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, owner, id).Scan(
		&conv.ID,
		&conv.UserID,
		&conv.Title,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// AppendMessage inserts the message and bumps the parent conversation's
// updated_at inside one transaction, so a turn is either fully recorded or
// not at all.
func (r *conversationRepository) AppendMessage(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if msg == nil || !msg.Role.Valid() {
		return nil, domain.ErrInvalidPayload
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	const insert = `
	INSERT INTO messages (conversation_id, role, content, tool_name, tool_call_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, insert,
		msg.ConversationID,
		string(msg.Role),
		msg.Content,
		msg.ToolName,
		msg.ToolCallID,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return nil, err
	}

	const touch = `UPDATE conversations SET updated_at = NOW() WHERE id = $1`
	if _, err := tx.Exec(ctx, touch, msg.ConversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *conversationRepository) RecentHistory(ctx context.Context, conversationID int64, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		return []domain.Message{}, nil
	}

	// Newest rows first so LIMIT picks the most recent window, then reversed
	// into chronological order below. System and tool turns stay out of the
	// model-facing history.
	const query = `
	SELECT id, conversation_id, role, content, tool_name, tool_call_id, created_at
	FROM messages
	WHERE conversation_id = $1
	  AND role IN ('user', 'assistant')
	ORDER BY created_at DESC, id DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]domain.Message, 0, limit)
	for rows.Next() {
		var (
			msg  domain.Message
			role string
		)
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&role,
			&msg.Content,
			&msg.ToolName,
			&msg.ToolCallID,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		msg.Role = domain.MessageRole(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
