package chat

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/backend/domain"
)

// fakeConvRepo is an in-memory ConversationRepository double with the same
// tenant-isolation and ordering behavior as the durable store.
type fakeConvRepo struct {
	conversations []*domain.Conversation
	messages      []*domain.Message
	nextConvID    int64
	nextMsgID     int64
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{nextConvID: 1, nextMsgID: 1}
}

func (r *fakeConvRepo) Create(_ context.Context, owner, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ID:        r.nextConvID,
		UserID:    owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.nextConvID++
	r.conversations = append(r.conversations, conv)
	out := *conv
	return &out, nil
}

func (r *fakeConvRepo) GetByID(_ context.Context, owner string, id int64) (*domain.Conversation, error) {
	for _, conv := range r.conversations {
		if conv.ID == id && conv.UserID == owner {
			out := *conv
			return &out, nil
		}
	}
	return nil, domain.ErrConversationNotFound
}

func (r *fakeConvRepo) AppendMessage(_ context.Context, msg *domain.Message) (*domain.Message, error) {
	stored := *msg
	stored.ID = r.nextMsgID
	stored.CreatedAt = time.Now().UTC()
	r.nextMsgID++
	r.messages = append(r.messages, &stored)
	out := stored
	return &out, nil
}

func (r *fakeConvRepo) RecentHistory(_ context.Context, conversationID int64, limit int) ([]domain.Message, error) {
	var all []domain.Message
	for _, msg := range r.messages {
		if msg.ConversationID != conversationID {
			continue
		}
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			continue
		}
		all = append(all, *msg)
	}
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// responderFunc adapts a function to the Responder interface.
type responderFunc func(ctx context.Context, owner string, transcript []domain.Message) (string, error)

func (f responderFunc) Respond(ctx context.Context, owner string, transcript []domain.Message) (string, error) {
	return f(ctx, owner, transcript)
}

func echoResponder(reply string) Responder {
	return responderFunc(func(context.Context, string, []domain.Message) (string, error) {
		return reply, nil
	})
}

func TestSendCreatesConversationWhenNoneGiven(t *testing.T) {
	repo := newFakeConvRepo()
	uc := New(repo, echoResponder("hello back"), Config{}, nil)

	result, err := uc.Send(context.Background(), "alice", "hello", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if result.Response != "hello back" {
		t.Errorf("Response = %q, want %q", result.Response, "hello back")
	}
	if result.ConversationID != 1 {
		t.Errorf("ConversationID = %d, want 1", result.ConversationID)
	}
	if len(repo.messages) != 2 {
		t.Fatalf("stored %d messages, want user + assistant", len(repo.messages))
	}
	if repo.messages[0].Role != domain.RoleUser || repo.messages[1].Role != domain.RoleAssistant {
		t.Errorf("message roles = %q, %q, want user then assistant", repo.messages[0].Role, repo.messages[1].Role)
	}
	if result.MessageID != repo.messages[1].ID {
		t.Errorf("MessageID = %d, want assistant message id %d", result.MessageID, repo.messages[1].ID)
	}
}

func TestSendContinuesExistingConversation(t *testing.T) {
	repo := newFakeConvRepo()
	uc := New(repo, echoResponder("reply"), Config{}, nil)
	ctx := context.Background()

	first, err := uc.Send(ctx, "alice", "first turn", nil)
	if err != nil {
		t.Fatalf("first Send failed: %v", err)
	}

	var seen []domain.Message
	uc.responder = responderFunc(func(_ context.Context, _ string, transcript []domain.Message) (string, error) {
		seen = transcript
		return "second reply", nil
	})

	second, err := uc.Send(ctx, "alice", "second turn", &first.ConversationID)
	if err != nil {
		t.Fatalf("second Send failed: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("ConversationID = %d, want %d", second.ConversationID, first.ConversationID)
	}

	// The transcript carries the prior user/assistant turns plus the new
	// user message, oldest first.
	wantContents := []string{"first turn", "reply", "second turn"}
	if len(seen) != len(wantContents) {
		t.Fatalf("transcript length = %d, want %d", len(seen), len(wantContents))
	}
	for i, want := range wantContents {
		if seen[i].Content != want {
			t.Errorf("transcript[%d] = %q, want %q", i, seen[i].Content, want)
		}
	}
}

func TestSendForeignConversationIsNotFound(t *testing.T) {
	repo := newFakeConvRepo()
	uc := New(repo, echoResponder("reply"), Config{}, nil)
	ctx := context.Background()

	bobConv, err := repo.Create(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, err = uc.Send(ctx, "alice", "let me in", &bobConv.ID)
	if !domain.IsDomainError(err, domain.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
	if len(repo.messages) != 0 {
		t.Errorf("stored %d messages in a foreign conversation, want 0", len(repo.messages))
	}
}

func TestSendMessageLengthBounds(t *testing.T) {
	repo := newFakeConvRepo()
	uc := New(repo, echoResponder("reply"), Config{}, nil)
	ctx := context.Background()

	if _, err := uc.Send(ctx, "alice", "", nil); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("empty message: err = %v, want INVALID", err)
	}
	if _, err := uc.Send(ctx, "alice", strings.Repeat("x", MaxMessageLen+1), nil); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("oversized message: err = %v, want INVALID", err)
	}
	if _, err := uc.Send(ctx, "alice", strings.Repeat("x", MaxMessageLen), nil); err != nil {
		t.Errorf("message at limit: unexpected err = %v", err)
	}
	// Bounds count characters: a multibyte message of exactly MaxMessageLen
	// runes is accepted even though it is twice that many bytes.
	if _, err := uc.Send(ctx, "alice", strings.Repeat("é", MaxMessageLen), nil); err != nil {
		t.Errorf("multibyte message at limit: unexpected err = %v", err)
	}
	if _, err := uc.Send(ctx, "alice", strings.Repeat("é", MaxMessageLen+1), nil); !domain.IsDomainError(err, domain.ErrCodeInvalid) {
		t.Errorf("multibyte message over limit: err = %v, want INVALID", err)
	}
}

func TestSendNilResponderIsUnavailable(t *testing.T) {
	repo := newFakeConvRepo()
	uc := New(repo, nil, Config{}, nil)

	_, err := uc.Send(context.Background(), "alice", "anyone there?", nil)
	if !domain.IsDomainError(err, domain.ErrCodeUnavailable) {
		t.Fatalf("err = %v, want UNAVAILABLE", err)
	}
	if len(repo.conversations) != 0 || len(repo.messages) != 0 {
		t.Error("nothing must be persisted when the assistant is unconfigured")
	}
}

// TestSendAgentTimeoutFallsBack forces the responder past the configured
// deadline and checks the user message survived and the fixed timeout
// sentence was persisted as the reply.
func TestSendAgentTimeoutFallsBack(t *testing.T) {
	repo := newFakeConvRepo()
	slow := responderFunc(func(ctx context.Context, _ string, _ []domain.Message) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	uc := New(repo, slow, Config{AgentTimeout: 10 * time.Millisecond}, nil)

	result, err := uc.Send(context.Background(), "alice", "do something big", nil)
	if err != nil {
		t.Fatalf("Send must not fail on agent timeout: %v", err)
	}
	if result.Response != timeoutReply {
		t.Errorf("Response = %q, want timeout fallback", result.Response)
	}
	if len(repo.messages) != 2 {
		t.Fatalf("stored %d messages, want user + fallback assistant", len(repo.messages))
	}
	if repo.messages[0].Role != domain.RoleUser || repo.messages[0].Content != "do something big" {
		t.Errorf("user message = %+v, must be persisted before the agent runs", repo.messages[0])
	}
	if repo.messages[1].Content != timeoutReply {
		t.Errorf("assistant message = %q, want timeout fallback", repo.messages[1].Content)
	}
}

func TestSendAgentErrorFallsBack(t *testing.T) {
	repo := newFakeConvRepo()
	failing := responderFunc(func(context.Context, string, []domain.Message) (string, error) {
		return "", context.Canceled
	})
	uc := New(repo, failing, Config{}, nil)

	result, err := uc.Send(context.Background(), "alice", "hello", nil)
	if err != nil {
		t.Fatalf("Send must not fail on agent error: %v", err)
	}
	if result.Response != failureReply {
		t.Errorf("Response = %q, want failure fallback", result.Response)
	}
}

func TestSendHistoryLimit(t *testing.T) {
	repo := newFakeConvRepo()
	conv, err := repo.Create(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		if _, err := repo.AppendMessage(context.Background(), &domain.Message{
			ConversationID: conv.ID,
			Role:           domain.RoleUser,
			Content:        "old turn",
		}); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	var seen []domain.Message
	uc := New(repo, responderFunc(func(_ context.Context, _ string, transcript []domain.Message) (string, error) {
		seen = transcript
		return "ok", nil
	}), Config{HistoryLimit: 4}, nil)

	if _, err := uc.Send(context.Background(), "alice", "new turn", &conv.ID); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	// 4 recent history entries plus the new user message.
	if len(seen) != 5 {
		t.Errorf("transcript length = %d, want 5", len(seen))
	}
	if seen[len(seen)-1].Content != "new turn" {
		t.Errorf("last transcript entry = %q, want the new user message", seen[len(seen)-1].Content)
	}
}

func TestSendHistoryExcludesToolTurns(t *testing.T) {
	repo := newFakeConvRepo()
	conv, err := repo.Create(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	seed := []domain.Message{
		{ConversationID: conv.ID, Role: domain.RoleUser, Content: "add a task"},
		{ConversationID: conv.ID, Role: domain.RoleTool, Content: `{"id":1}`, ToolName: "add_task"},
		{ConversationID: conv.ID, Role: domain.RoleAssistant, Content: "done"},
	}
	for i := range seed {
		if _, err := repo.AppendMessage(context.Background(), &seed[i]); err != nil {
			t.Fatalf("AppendMessage failed: %v", err)
		}
	}

	var seen []domain.Message
	uc := New(repo, responderFunc(func(_ context.Context, _ string, transcript []domain.Message) (string, error) {
		seen = transcript
		return "ok", nil
	}), Config{}, nil)

	if _, err := uc.Send(context.Background(), "alice", "thanks", &conv.ID); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	for _, msg := range seen {
		if msg.Role != domain.RoleUser && msg.Role != domain.RoleAssistant {
			t.Errorf("transcript contains %q turn %q, want user/assistant only", msg.Role, msg.Content)
		}
	}
	if len(seen) != 3 {
		t.Errorf("transcript length = %d, want 3 (two history turns plus the new message)", len(seen))
	}
}

func TestSendOwnerReachesResponder(t *testing.T) {
	repo := newFakeConvRepo()
	var gotOwner string
	uc := New(repo, responderFunc(func(_ context.Context, owner string, _ []domain.Message) (string, error) {
		gotOwner = owner
		return "ok", nil
	}), Config{}, nil)

	if _, err := uc.Send(context.Background(), "alice", "hello", nil); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotOwner != "alice" {
		t.Errorf("responder owner = %q, want alice", gotOwner)
	}
}
