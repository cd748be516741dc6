package chat

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/chat-router/internal/analytics"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"go.uber.org/zap"
)

const (
	// Untitled is stored when no title could be generated.
	Untitled = "Untitled"

	errorReplyPrefix = "I apologize, but I encountered an error while processing your request: "

	purposeReply = "reply"
	purposeTitle = "title"
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyMessage = errors.New("message is empty")
)

// Model is the slice of llm.LanguageModel the chat flow needs.
type Model interface {
	Generate(ctx context.Context, prompt []llm.PromptMessage) (*llm.Generation, error)
	Emit(ctx context.Context, text string) <-chan llm.StreamChunk
}

// ModelFactory returns the model for a provider id.
type ModelFactory func(providerID string) Model

// ProviderLister reports which providers can currently be called.
type ProviderLister interface {
	ListEnabled() []config.ProviderConfig
}

type ReplyRequest struct {
	Model    string
	Messages []llm.Turn
}

// Reply is the outcome of a chat turn. Title is set only when it was
// generated during this turn.
type Reply struct {
	Title  string
	Chunks <-chan llm.StreamChunk
}

type Service struct {
	repo        store.Repository
	caller      llm.Caller
	providers   ProviderLister
	models      ModelFactory
	ingestor    analytics.Ingestor
	logger      *zap.Logger
	titlePrompt string
	now         func() time.Time
}

type Option func(*Service)

func WithTitlePrompt(prompt string) Option {
	return func(s *Service) {
		if prompt != "" {
			s.titlePrompt = prompt
		}
	}
}

func WithIngestor(i analytics.Ingestor) Option {
	return func(s *Service) {
		s.ingestor = i
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

func NewService(repo store.Repository, caller llm.Caller, providers ProviderLister, models ModelFactory, opts ...Option) *Service {
	s := &Service{
		repo:        repo,
		caller:      caller,
		providers:   providers,
		models:      models,
		logger:      zap.NewNop(),
		titlePrompt: config.DefaultTitlePrompt,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a chat with its first user message.
func (s *Service) Create(ctx context.Context, userID, firstMessage string) (*model.Chat, error) {
	if strings.TrimSpace(firstMessage) == "" {
		return nil, ErrEmptyMessage
	}

	now := s.now().UTC()
	chat := &model.Chat{ID: uuid.NewString(), UserID: userID, CreatedAt: now}
	msg := model.Message{
		ID:        uuid.NewString(),
		ChatID:    chat.ID,
		Role:      string(llm.RoleUser),
		Content:   firstMessage,
		CreatedAt: now,
	}

	err := s.repo.WithTx(ctx, func(tx store.Repository) error {
		if err := tx.Chats().Create(ctx, chat); err != nil {
			return err
		}
		return tx.Messages().Create(ctx, &msg)
	})
	if err != nil {
		return nil, err
	}

	chat.Messages = []model.Message{msg}
	return chat, nil
}

// Get returns the chat with its messages, oldest first.
func (s *Service) Get(ctx context.Context, userID, chatID string) (*model.Chat, error) {
	chat, err := s.load(ctx, s.repo, userID, chatID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.Messages().ListByChat(ctx, chat.ID)
	if err != nil {
		return nil, err
	}
	chat.Messages = msgs
	return chat, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]model.Chat, error) {
	return s.repo.Chats().ListForUser(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, chatID string) error {
	return s.repo.WithTx(ctx, func(tx store.Repository) error {
		if _, err := s.load(ctx, tx, userID, chatID); err != nil {
			return err
		}
		if err := tx.Messages().DeleteByChat(ctx, chatID); err != nil {
			return err
		}
		return tx.Chats().Delete(ctx, chatID, userID)
	})
}

// Reply runs one chat turn: it names the chat if needed, stores the new user
// message, asks the model and stores its answer before streaming it back.
// Provider failures are not returned as errors; they become an apology reply.
func (s *Service) Reply(ctx context.Context, userID, chatID string, req ReplyRequest) (*Reply, error) {
	if len(req.Messages) == 0 {
		return nil, ErrEmptyMessage
	}

	chat, err := s.load(ctx, s.repo, userID, chatID)
	if err != nil {
		return nil, err
	}

	out := &Reply{}
	if chat.Title == "" {
		title, err := s.generateTitle(ctx, chat, req.Messages[0].Content)
		if err != nil {
			return nil, err
		}
		out.Title = title
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role == llm.RoleUser && len(req.Messages) > 1 {
		if err := s.addMessage(ctx, chat.ID, llm.RoleUser, last.Content); err != nil {
			return nil, err
		}
	}

	prompt := make([]llm.PromptMessage, len(req.Messages))
	for i, m := range req.Messages {
		prompt[i] = llm.PromptMessage{Role: m.Role, Text: m.Content}
	}

	m := s.models(req.Model)
	start := s.now()
	gen, genErr := m.Generate(ctx, prompt)
	s.record(chat, req.Model, purposeReply, start, genErr)

	if genErr != nil {
		s.logger.Warn("chat reply failed",
			zap.String("chat_id", chat.ID),
			zap.String("model", req.Model),
			zap.Error(genErr))
		text := errorReplyPrefix + genErr.Error()
		if err := s.addMessage(ctx, chat.ID, llm.RoleAssistant, text); err != nil {
			return nil, err
		}
		out.Chunks = single(text)
		return out, nil
	}

	if err := s.addMessage(ctx, chat.ID, llm.RoleAssistant, gen.Text); err != nil {
		return nil, err
	}
	out.Chunks = m.Emit(ctx, gen.Text)
	return out, nil
}

func (s *Service) load(ctx context.Context, repo store.Repository, userID, chatID string) (*model.Chat, error) {
	chat, err := repo.Chats().GetForUser(ctx, chatID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	return chat, err
}

// generateTitle asks the first enabled provider to name the chat after its
// first message. With no provider enabled the chat stays untitled for now.
func (s *Service) generateTitle(ctx context.Context, chat *model.Chat, fallbackFirst string) (string, error) {
	enabled := s.providers.ListEnabled()
	if len(enabled) == 0 {
		return "", nil
	}
	provider := enabled[0]

	first := fallbackFirst
	msgs, err := s.repo.Messages().ListByChat(ctx, chat.ID)
	if err != nil {
		return "", err
	}
	if len(msgs) > 0 {
		first = msgs[0].Content
	}

	start := s.now()
	res := s.caller.Call(ctx, provider.ID, strings.Replace(s.titlePrompt, "%s", first, 1), nil)
	var callErr error
	if res.Failed() {
		callErr = errors.New(res.Error)
	}
	s.record(chat, provider.ID, purposeTitle, start, callErr)

	title := strings.TrimSpace(res.Content)
	if title == "" {
		title = Untitled
	}
	if err := s.repo.Chats().UpdateTitle(ctx, chat.ID, title); err != nil {
		return "", err
	}
	chat.Title = title
	return title, nil
}

func (s *Service) addMessage(ctx context.Context, chatID string, role llm.Role, content string) error {
	return s.repo.Messages().Create(ctx, &model.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Role:      string(role),
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
}

func (s *Service) record(chat *model.Chat, providerID, purpose string, start time.Time, err error) {
	if s.ingestor == nil {
		return
	}
	call := &model.CallLog{
		ID:         uuid.NewString(),
		ProviderID: providerID,
		ChatID:     sql.NullString{String: chat.ID, Valid: true},
		UserID:     sql.NullString{String: chat.UserID, Valid: true},
		Purpose:    purpose,
		LatencyMs:  s.now().Sub(start).Milliseconds(),
		Success:    err == nil,
		CreatedAt:  s.now().UTC(),
	}
	if err != nil {
		call.Error = err.Error()
	}
	s.ingestor.Log(call)
}

// single is a finished stream holding one text chunk.
func single(text string) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Type: llm.ChunkTextDelta, TextDelta: text}
	ch <- llm.StreamChunk{Type: llm.ChunkFinish, FinishReason: llm.FinishReasonStop, Usage: &llm.Usage{}}
	close(ch)
	return ch
}
