package transport

// TaskCreateRequest is the body of POST /api/tasks. Status defaults to
// pending when omitted.
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// TaskUpdateRequest is the body of PUT /api/tasks/{id}. Pointer fields tell a
// supplied empty value apart from an omitted one; only supplied fields are
// applied.
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// ChatRequest is the body of POST /api/{user_id}/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id"`
}
