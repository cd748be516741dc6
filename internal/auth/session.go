package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/nulzo/chat-router/internal/store/cache"
	"github.com/nulzo/chat-router/pkg/api"
)

const sessionKeyPrefix = "session:"

// Session is what the cache holds for a signed-in browser.
type Session struct {
	ID        string          `json:"id"`
	User      api.SessionUser `json:"user"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// SessionManager issues signed session tokens. The token only carries the
// session id; the session must also exist in the cache to be valid, so
// deleting it revokes the token.
type SessionManager struct {
	cache  cache.CacheService
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(c cache.CacheService, secret []byte, ttl time.Duration) (*SessionManager, error) {
	if len(secret) == 0 {
		return nil, ErrSessionSecretMissing
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionManager{cache: c, secret: secret, ttl: ttl, now: time.Now}, nil
}

// TTL is the lifetime of new sessions.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create stores a new session for user and returns its signed token.
func (m *SessionManager) Create(ctx context.Context, user api.SessionUser) (string, *Session, error) {
	now := m.now()
	s := &Session{
		ID:        uuid.NewString(),
		User:      user,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.cache.Set(ctx, sessionKeyPrefix+s.ID, s, m.ttl); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, s, nil
}

// Validate checks the token signature and expiry, then loads the session.
func (m *SessionManager) Validate(ctx context.Context, token string) (*Session, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}

	var s Session
	if err := m.cache.Get(ctx, sessionKeyPrefix+claims.ID, &s); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, ErrInvalidSession
		}
		return nil, err
	}
	if s.User.ID != claims.Subject {
		return nil, ErrInvalidSession
	}
	return &s, nil
}

// Destroy removes the session behind token. Invalid tokens are ignored.
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.cache.Delete(ctx, sessionKeyPrefix+claims.ID)
}

func (m *SessionManager) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !parsed.Valid || claims.ID == "" {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
