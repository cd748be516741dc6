package auth

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nulzo/chat-router/internal/store"
	"github.com/nulzo/chat-router/internal/store/model"
	"github.com/nulzo/chat-router/pkg/api"
	"go.uber.org/zap"
)

const ProviderLocal = "local"

type Service struct {
	repo   store.Repository
	logger *zap.Logger
}

func NewService(repo store.Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Signup registers a local user. Name and username are taken from the
// local part of the email address.
func (s *Service) Signup(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	if _, err := s.repo.Users().GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	name := strings.SplitN(email, "@", 2)[0]
	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Username:     name,
		Avatar:       "https://ui-avatars.com/api/?name=" + url.QueryEscape(name),
		PasswordHash: sql.NullString{String: hash, Valid: true},
		Provider:     ProviderLocal,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Users().Create(ctx, user); err != nil {
		// lost a race with a concurrent signup
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.Users().GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	if !user.PasswordHash.Valid || user.PasswordHash.String == "" {
		return nil, ErrInvalidAuthMethod
	}

	ok, err := CheckPassword(user.PasswordHash.String, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// SessionUser projects a stored user into the session payload.
func SessionUser(u *model.User) api.SessionUser {
	su := api.SessionUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Username: u.Username,
		Avatar:   u.Avatar,
		Provider: u.Provider,
	}
	if u.ProviderID.Valid {
		id := u.ProviderID.Int64
		su.ProviderID = &id
	}
	return su
}
