package model

import (
	"database/sql"
	"time"
)

// User is a person who signs in to chat.
type User struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	Name         string         `db:"name" json:"name"`
	Username     string         `db:"username" json:"username"`
	Avatar       string         `db:"avatar" json:"avatar"`
	PasswordHash sql.NullString `db:"password_hash" json:"-"`
	Provider     string         `db:"provider" json:"provider"` // 'local' or an OAuth provider
	ProviderID   sql.NullInt64  `db:"provider_id" json:"provider_id,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// Chat is one conversation. An empty Title means none has been generated yet.
type Chat struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Messages []Message `db:"-" json:"messages,omitempty"`
}

type Message struct {
	ID        string    `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chat_id"`
	Role      string    `db:"role" json:"role"` // 'user', 'assistant', 'system'
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// CallLog records one provider call made on behalf of a chat.
type CallLog struct {
	ID         string         `db:"id" json:"id"`
	ProviderID string         `db:"provider_id" json:"provider_id"`
	ChatID     sql.NullString `db:"chat_id" json:"chat_id,omitempty"`
	UserID     sql.NullString `db:"user_id" json:"user_id,omitempty"`
	Purpose    string         `db:"purpose" json:"purpose"` // 'reply' or 'title'
	LatencyMs  int64          `db:"latency_ms" json:"latency_ms"`
	Success    bool           `db:"success" json:"success"`
	Error      string         `db:"error" json:"error,omitempty"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// DailyStats aggregates call logs for a single day.
type DailyStats struct {
	Date           string  `db:"date" json:"date"`
	TotalRequests  int     `db:"total_requests" json:"total_requests"`
	FailedRequests int     `db:"failed_requests" json:"failed_requests"`
	AvgLatency     float64 `db:"avg_latency" json:"avg_latency"`
}
