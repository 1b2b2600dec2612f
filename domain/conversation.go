package domain

import "time"

// MessageRole is the closed set of roles a message can carry.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleTool      MessageRole = "tool"
)

// Valid reports whether the role is one of the known roles.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Conversation is a chat thread owned by exactly one user. It is created
// implicitly on the first chat turn that does not name an existing thread
// and is never deleted automatically.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn inside a conversation. The message log is append-only:
// rows are never mutated or removed once persisted.
type Message struct {
	ID             int64       `json:"id"`
	ConversationID int64       `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	ToolName       string      `json:"tool_name,omitempty"`
	ToolCallID     string      `json:"tool_call_id,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
