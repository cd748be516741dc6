package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SqliteRepository implements store.Repository
type SqliteRepository struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // *sqlx.DB or *sqlx.Tx
}

func NewSqliteRepository(db *sqlx.DB) *SqliteRepository {
	return &SqliteRepository{
		db:       db,
		executor: db,
	}
}

func (r *SqliteRepository) Close() error {
	return r.db.Close()
}

func (r *SqliteRepository) WithTx(ctx context.Context, fn func(repo store.Repository) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	txRepo := &SqliteRepository{
		db:       r.db,
		executor: tx,
	}

	if err := fn(txRepo); err != nil {
		// rollback error is secondary to fn's
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *SqliteRepository) Users() store.UserRepository {
	return &userRepo{db: r.executor}
}

func (r *SqliteRepository) Chats() store.ChatRepository {
	return &chatRepo{db: r.executor}
}

func (r *SqliteRepository) Messages() store.MessageRepository {
	return &messageRepo{db: r.executor}
}

func (r *SqliteRepository) Calls() store.CallRepository {
	return &callRepo{db: r.executor}
}

// mapError translates driver errors into store sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("%w: %s", store.ErrConflict, sqliteErr.Error())
	}
	return err
}

type userRepo struct {
	db DB
}

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	query := `
	INSERT INTO users (id, email, name, username, avatar, password_hash, provider, provider_id, created_at)
	VALUES (:id, :email, :name, :username, :avatar, :password_hash, :provider, :provider_id, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, user)
	return mapError(err)
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE email = ?`, email); err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

type chatRepo struct {
	db DB
}

func (r *chatRepo) Create(ctx context.Context, chat *model.Chat) error {
	query := `INSERT INTO chats (id, user_id, title, created_at) VALUES (:id, :user_id, :title, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, chat)
	return mapError(err)
}

func (r *chatRepo) GetForUser(ctx context.Context, id, userID string) (*model.Chat, error) {
	var c model.Chat
	query := `SELECT * FROM chats WHERE id = ? AND user_id = ?`
	if err := r.db.GetContext(ctx, &c, query, id, userID); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *chatRepo) ListForUser(ctx context.Context, userID string) ([]model.Chat, error) {
	chats := []model.Chat{}
	query := `SELECT * FROM chats WHERE user_id = ? ORDER BY created_at DESC, rowid DESC`
	err := r.db.SelectContext(ctx, &chats, query, userID)
	return chats, mapError(err)
}

func (r *chatRepo) UpdateTitle(ctx context.Context, id, title string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET title = ? WHERE id = ?`, title, id)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func (r *chatRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return mapError(err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

type messageRepo struct {
	db DB
}

func (r *messageRepo) Create(ctx context.Context, msg *model.Message) error {
	query := `
	INSERT INTO messages (id, chat_id, role, content, created_at)
	VALUES (:id, :chat_id, :role, :content, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, msg)
	return mapError(err)
}

func (r *messageRepo) ListByChat(ctx context.Context, chatID string) ([]model.Message, error) {
	msgs := []model.Message{}
	// rowid breaks ties between messages written in the same instant
	query := `SELECT * FROM messages WHERE chat_id = ? ORDER BY created_at ASC, rowid ASC`
	err := r.db.SelectContext(ctx, &msgs, query, chatID)
	return msgs, mapError(err)
}

func (r *messageRepo) DeleteByChat(ctx context.Context, chatID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, chatID)
	return mapError(err)
}

type callRepo struct {
	db DB
}

func (r *callRepo) Log(ctx context.Context, call *model.CallLog) error {
	query := `
	INSERT INTO call_logs (id, provider_id, chat_id, user_id, purpose, latency_ms, success, error, created_at)
	VALUES (:id, :provider_id, :chat_id, :user_id, :purpose, :latency_ms, :success, :error, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, call)
	return mapError(err)
}

func (r *callRepo) GetDailyStats(ctx context.Context, days int) ([]model.DailyStats, error) {
	stats := []model.DailyStats{}
	query := `
		SELECT
			DATE(created_at) AS date,
			COUNT(*) AS total_requests,
			SUM(CASE WHEN success THEN 0 ELSE 1 END) AS failed_requests,
			AVG(latency_ms) AS avg_latency
		FROM call_logs
		WHERE created_at >= DATE('now', ?)
		GROUP BY date
		ORDER BY date DESC
	`
	// SQLite date offset format is '-7 days'
	err := r.db.SelectContext(ctx, &stats, query, fmt.Sprintf("-%d days", days))
	return stats, mapError(err)
}
