package chat

import (
	"bytes"
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/internal/store/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCaller struct {
	mu       sync.Mutex
	calls    []string
	response func(providerID, message string) llm.Result
}

func (f *fakeCaller) Call(_ context.Context, providerID, message string, _ []llm.Turn) llm.Result {
	f.mu.Lock()
	f.calls = append(f.calls, providerID+": "+message)
	f.mu.Unlock()
	return f.response(providerID, message)
}

type recorder struct {
	mu    sync.Mutex
	calls []*model.CallLog
}

func (r *recorder) Log(call *model.CallLog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}
func (r *recorder) Start(context.Context) {}
func (r *recorder) Stop()                 {}

type fixture struct {
	repo   store.Repository
	caller *fakeCaller
	calls  *recorder
	svc    *Service
	userID string
}

func newFixture(t *testing.T, providers ...config.ProviderConfig) *fixture {
	t.Helper()
	repo, err := sqlite.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        "ada@example.com",
		Name:         "ada",
		Username:     "ada",
		PasswordHash: sql.NullString{String: "x", Valid: true},
		Provider:     "local",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.Users().Create(context.Background(), user))

	caller := &fakeCaller{response: func(string, string) llm.Result {
		return llm.Result{Content: "Hello there friend"}
	}}
	calls := &recorder{}
	registry := llm.NewRegistry(llm.StaticSource(providers))
	models := func(id string) Model {
		return llm.NewLanguageModel(caller, id, llm.WithStreamDelay(0))
	}
	svc := NewService(repo, caller, registry, models,
		WithIngestor(calls),
		WithTitlePrompt("Title for: %s"))

	return &fixture{repo: repo, caller: caller, calls: calls, svc: svc, userID: user.ID}
}

func collect(ch <-chan llm.StreamChunk) (string, []llm.StreamChunk) {
	var text string
	var chunks []llm.StreamChunk
	for c := range ch {
		chunks = append(chunks, c)
		text += c.TextDelta
	}
	return text, chunks
}

var enabled = config.ProviderConfig{ID: "openai", Name: "OpenAI", Enabled: true, BaseURL: "http://x"}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	chat, err := f.svc.Create(ctx, f.userID, "hi there")
	require.NoError(t, err)
	assert.Empty(t, chat.Title)

	got, err := f.svc.Get(ctx, f.userID, chat.ID)
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "hi there", got.Messages[0].Content)

	_, err = f.svc.Get(ctx, "someone-else", chat.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)

	_, err = f.svc.Create(ctx, f.userID, "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestListAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.userID, "one")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.userID, "two")
	require.NoError(t, err)

	chats, err := f.svc.List(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, chats, 2)

	assert.ErrorIs(t, f.svc.Delete(ctx, "someone-else", a.ID), ErrChatNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.userID, a.ID))

	_, err = f.svc.Get(ctx, f.userID, a.ID)
	assert.ErrorIs(t, err, ErrChatNotFound)
	msgs, err := f.repo.Messages().ListByChat(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestReply_GeneratesTitleAndPersists(t *testing.T) {
	f := newFixture(t, enabled)
	f.caller.response = func(_ string, message string) llm.Result {
		if message == "Title for: hi there" {
			return llm.Result{Content: "  Greetings  "}
		}
		return llm.Result{Content: "Hello there friend"}
	}
	ctx := context.Background()

	chat, err := f.svc.Create(ctx, f.userID, "hi there")
	require.NoError(t, err)

	reply, err := f.svc.Reply(ctx, f.userID, chat.ID, ReplyRequest{
		Model:    "openai",
		Messages: []llm.Turn{{Role: llm.RoleUser, Content: "hi there"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Greetings", reply.Title)

	text, chunks := collect(reply.Chunks)
	assert.Equal(t, "Hello there friend", text)
	assert.Equal(t, llm.ChunkFinish, chunks[len(chunks)-1].Type)

	got, err := f.svc.Get(ctx, f.userID, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Greetings", got.Title)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "assistant", got.Messages[1].Role)
	assert.Equal(t, "Hello there friend", got.Messages[1].Content)

	require.Len(t, f.calls.calls, 2)
	assert.Equal(t, purposeTitle, f.calls.calls[0].Purpose)
	assert.Equal(t, purposeReply, f.calls.calls[1].Purpose)
	assert.True(t, f.calls.calls[1].Success)
}

func TestReply_FollowUpStoresUserMessage(t *testing.T) {
	f := newFixture(t, enabled)
	ctx := context.Background()

	chat, err := f.svc.Create(ctx, f.userID, "first")
	require.NoError(t, err)
	require.NoError(t, f.repo.Chats().UpdateTitle(ctx, chat.ID, "Named"))

	reply, err := f.svc.Reply(ctx, f.userID, chat.ID, ReplyRequest{
		Model: "openai",
		Messages: []llm.Turn{
			{Role: llm.RoleUser, Content: "first"},
			{Role: llm.RoleAssistant, Content: "answer"},
			{Role: llm.RoleUser, Content: "second"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, reply.Title)
	_, _ = collect(reply.Chunks)

	msgs, err := f.repo.Messages().ListByChat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "second", msgs[1].Content)
	assert.Equal(t, "Hello there friend", msgs[2].Content)

	f.caller.mu.Lock()
	defer f.caller.mu.Unlock()
	assert.Equal(t, []string{"openai: second"}, f.caller.calls)
}

func TestReply_FailureBecomesApology(t *testing.T) {
	f := newFixture(t)
	f.caller.response = func(string, string) llm.Result {
		return llm.Result{Error: llm.MsgModelNotFound}
	}
	ctx := context.Background()

	chat, err := f.svc.Create(ctx, f.userID, "hi")
	require.NoError(t, err)

	reply, err := f.svc.Reply(ctx, f.userID, chat.ID, ReplyRequest{
		Model:    "missing",
		Messages: []llm.Turn{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Empty(t, reply.Title, "no provider enabled for titles")

	text, chunks := collect(reply.Chunks)
	want := errorReplyPrefix + llm.MsgModelNotFound
	assert.Equal(t, want, text)
	require.Len(t, chunks, 2)

	msgs, err := f.repo.Messages().ListByChat(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, want, msgs[1].Content)

	require.Len(t, f.calls.calls, 1)
	assert.False(t, f.calls.calls[0].Success)
	assert.Equal(t, llm.MsgModelNotFound, f.calls.calls[0].Error)
}

func TestReply_TitleFallsBackToUntitled(t *testing.T) {
	f := newFixture(t, enabled)
	f.caller.response = func(_ string, message string) llm.Result {
		if message == "Title for: hi" {
			return llm.Result{Error: "Failed to get response from OpenAI: boom"}
		}
		return llm.Result{Content: "ok"}
	}
	ctx := context.Background()

	chat, err := f.svc.Create(ctx, f.userID, "hi")
	require.NoError(t, err)

	reply, err := f.svc.Reply(ctx, f.userID, chat.ID, ReplyRequest{
		Model:    "openai",
		Messages: []llm.Turn{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, Untitled, reply.Title)
	_, _ = collect(reply.Chunks)
}

func TestReply_UnknownChat(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Reply(context.Background(), f.userID, "nope", ReplyRequest{
		Model:    "openai",
		Messages: []llm.Turn{{Role: llm.RoleUser, Content: "hi"}},
	})
	assert.ErrorIs(t, err, ErrChatNotFound)

	_, err = f.svc.Reply(context.Background(), f.userID, "nope", ReplyRequest{Model: "openai"})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestWriteChunk(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteChunk(&buf, llm.StreamChunk{Type: llm.ChunkTextDelta, TextDelta: "say \"hi\"\n"}))
	require.NoError(t, WriteChunk(&buf, llm.StreamChunk{Type: llm.ChunkFinish, FinishReason: llm.FinishReasonStop}))
	assert.Equal(t, "0:\"say \\\"hi\\\"\\n\"\nd:\n", buf.String())
}
