package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nulzo/chat-router/internal/cli"
	"github.com/nulzo/chat-router/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeProviders(t *testing.T) providerLoader {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reply":"Hi there"}`))
	}))
	t.Cleanup(upstream.Close)

	return func() (config.AIConfig, error) {
		return config.AIConfig{Providers: []config.ProviderConfig{
			{ID: "cancerChat", Name: "Cancer Chat", Enabled: true, BaseURL: upstream.URL, Endpoint: "/chat", Method: "POST"},
			{ID: "claude", Name: "Claude", Enabled: false, BaseURL: "https://api.anthropic.com", Method: "POST"},
		}}, nil
	}
}

func run(t *testing.T, load providerLoader, args ...string) (string, error) {
	t.Helper()
	cli.SetEnabled(false)
	var out bytes.Buffer
	cmd := newRootCmd(&out, load)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestModels(t *testing.T) {
	load := fakeProviders(t)

	out, err := run(t, load, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "cancerChat")
	assert.Contains(t, out, "single_message")
	assert.NotContains(t, out, "claude")

	out, err = run(t, load, "models", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "claude")
	assert.Contains(t, out, "messages")
}

func TestAsk(t *testing.T) {
	out, err := run(t, fakeProviders(t), "ask", "cancerChat", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, out, `"content": "Hi there"`)

	out, err = run(t, fakeProviders(t), "ask", "claude", "hello")
	require.Error(t, err)
	assert.Contains(t, out, "Model not found or not enabled")
}

func TestStream(t *testing.T) {
	out, err := run(t, fakeProviders(t), "stream", "--delay", "0s", "cancerChat", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "Hi there\n")
	assert.Contains(t, out, "stop")
}
