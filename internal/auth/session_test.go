package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/nulzo/chat-router/internal/store/cache"
	"github.com/nulzo/chat-router/pkg/api"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestSessionManager_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	m, err := NewSessionManager(cache.NewRedisCache(client, ""), secret, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	token, s, err := m.Create(ctx, api.SessionUser{ID: "u1", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, mr.Exists("session:"+s.ID))

	got, err := m.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", got.User.Email)

	require.NoError(t, m.Destroy(ctx, token))
	_, err = m.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_RejectsTampering(t *testing.T) {
	m, err := NewSessionManager(cache.NewMemoryCache(), secret, time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	token, _, err := m.Create(ctx, api.SessionUser{ID: "u1"})
	require.NoError(t, err)

	other, err := NewSessionManager(cache.NewMemoryCache(), []byte("other-secret"), time.Hour)
	require.NoError(t, err)
	_, err = other.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = m.Validate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidSession)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{ID: "x", Subject: "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Validate(ctx, unsigned)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_Expired(t *testing.T) {
	m, err := NewSessionManager(cache.NewMemoryCache(), secret, time.Hour)
	require.NoError(t, err)
	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := m.Create(context.Background(), api.SessionUser{ID: "u1"})
	require.NoError(t, err)

	_, err = m.Validate(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestNewSessionManager_RequiresSecret(t *testing.T) {
	_, err := NewSessionManager(cache.NewMemoryCache(), nil, time.Hour)
	assert.ErrorIs(t, err, ErrSessionSecretMissing)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)

	ok, err := CheckPassword(hash, "pw")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = CheckPassword(hash, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
