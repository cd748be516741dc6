package store

import (
	"context"
	"errors"

	"github.com/nulzo/chat-router/internal/store/model"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("store: conflict")
)

// Repository is the main contract for the data layer.
type Repository interface {
	Users() UserRepository
	Chats() ChatRepository
	Messages() MessageRepository
	Calls() CallRepository

	// transaction support
	WithTx(ctx context.Context, fn func(repo Repository) error) error

	Close() error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// ChatRepository is always scoped to the owning user.
type ChatRepository interface {
	Create(ctx context.Context, chat *model.Chat) error
	GetForUser(ctx context.Context, id, userID string) (*model.Chat, error)
	ListForUser(ctx context.Context, userID string) ([]model.Chat, error)
	UpdateTitle(ctx context.Context, id, title string) error
	Delete(ctx context.Context, id, userID string) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	// ListByChat returns messages oldest first.
	ListByChat(ctx context.Context, chatID string) ([]model.Message, error)
	DeleteByChat(ctx context.Context, chatID string) error
}

type CallRepository interface {
	// Log stores one provider call.
	Log(ctx context.Context, call *model.CallLog) error
	// GetDailyStats returns aggregated stats grouped by day, newest first.
	GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error)
}
