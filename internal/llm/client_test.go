package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/llm"
	_ "github.com/nulzo/chat-router/internal/llm/all"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream is a fake provider that records what it received.
type upstream struct {
	*httptest.Server
	hits    atomic.Int32
	headers http.Header
	query   string
	body    map[string]any
}

func newUpstream(t *testing.T, status int, response string) *upstream {
	t.Helper()
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.headers = r.Header.Clone()
		u.query = r.URL.RawQuery
		_ = json.NewDecoder(r.Body).Decode(&u.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(u.Close)
	return u
}

func newClient(providers ...config.ProviderConfig) *llm.Client {
	return llm.NewClient(llm.NewRegistry(llm.StaticSource(providers)))
}

func TestCall_UnknownModel(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"reply":"x"}`)
	client := newClient(config.ProviderConfig{ID: "cancerChat", Enabled: false, BaseURL: up.URL})

	res := client.Call(context.Background(), "cancerChat", "hi", nil)
	assert.Equal(t, llm.Result{Error: "Model not found or not enabled"}, res)

	res = client.Call(context.Background(), "nope", "hi", nil)
	assert.Equal(t, "Model not found or not enabled", res.Error)
	assert.Zero(t, up.hits.Load(), "no HTTP call for unknown models")
}

func TestCall_SingleMessage(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"reply":"Hi there"}`)
	client := newClient(config.ProviderConfig{
		ID: "cancerChat", Name: "Cancer Chat", Enabled: true, BaseURL: up.URL, Endpoint: "/chat",
	})

	res := client.Call(context.Background(), "cancerChat", "Hello", nil)
	assert.Equal(t, llm.Result{Content: "Hi there"}, res)
	assert.Equal(t, map[string]any{"message": "Hello"}, up.body)
	assert.Empty(t, up.headers.Get("Authorization"))
}

func TestCall_ChatCompletion(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"choices":[{"message":{"content":"I'm fine"}}]}`)
	client := newClient(config.ProviderConfig{
		ID: "openai", Name: "OpenAI", Enabled: true, APIKey: "sk-test", BaseURL: up.URL, Endpoint: "/v1/chat/completions", Model: "gpt-4o-mini",
	})

	history := []llm.Turn{{Role: llm.RoleUser, Content: "hi"}, {Role: llm.RoleAssistant, Content: "hello"}}
	res := client.Call(context.Background(), "openai", "how are you?", history)

	assert.Equal(t, "I'm fine", res.Content)
	assert.False(t, res.Failed())
	assert.Equal(t, "Bearer sk-test", up.headers.Get("Authorization"))
	assert.Len(t, up.body["messages"], 3)
	assert.Equal(t, false, up.body["stream"])
}

func TestCall_Messages(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"content":[{"type":"text","text":"Hey"}]}`)
	client := newClient(config.ProviderConfig{ID: "claude", Name: "Claude", Enabled: true, APIKey: "k", BaseURL: up.URL})

	res := client.Call(context.Background(), "claude", "hi", nil)
	assert.Equal(t, "Hey", res.Content)
	assert.Equal(t, "k", up.headers.Get("X-Api-Key"))
	assert.Equal(t, "2023-06-01", up.headers.Get("Anthropic-Version"))
	assert.Empty(t, up.headers.Get("Authorization"))
}

func TestCall_ContentGeneration(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"Bonjour"}]}}]}`)
	client := newClient(config.ProviderConfig{ID: "gemini", Name: "Gemini", Enabled: true, APIKey: "g-key", BaseURL: up.URL, Endpoint: "/gen"})

	res := client.Call(context.Background(), "gemini", "hello", []llm.Turn{{Role: llm.RoleUser, Content: "x"}})
	assert.Equal(t, "Bonjour", res.Content)
	assert.Equal(t, "key=g-key", up.query)
	assert.Empty(t, up.headers.Get("Authorization"))
}

func TestCall_Recommendation(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"recipes":[]}`)
	client := newClient(config.ProviderConfig{ID: "aiPentest", Name: "Smart Chef AI", Enabled: true, BaseURL: up.URL})

	res := client.Call(context.Background(), "aiPentest", "dinner", nil)
	assert.Equal(t, llm.Result{Content: "Invalid response format from Smart Chef AI"}, res)
	assert.Equal(t, map[string]any{"question": "dinner"}, up.body)
}

func TestCall_FamilyOverride(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"response":"42"}`)
	client := newClient(config.ProviderConfig{ID: "oracle", Enabled: true, BaseURL: up.URL, Family: llm.FamilyQuestion})

	res := client.Call(context.Background(), "oracle", "meaning?", nil)
	assert.Equal(t, "42", res.Content)
	assert.Equal(t, map[string]any{"question": "meaning?"}, up.body)
}

func TestCall_GenericWithContext(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"content":"fallback field"}`)
	client := newClient(config.ProviderConfig{ID: "mybot", Name: "My Bot", Enabled: true, APIKey: "tok", BaseURL: up.URL})

	res := client.Call(context.Background(), "mybot", "next", []llm.Turn{{Role: llm.RoleUser, Content: "hi"}})
	assert.Equal(t, "fallback field", res.Content)
	assert.Equal(t, "Bearer tok", up.headers.Get("Authorization"))
	assert.Equal(t, "user: hi", up.body["context"])
}

func TestCall_UpstreamFailure(t *testing.T) {
	up := newUpstream(t, http.StatusInternalServerError, `{"error":"boom"}`)
	client := newClient(config.ProviderConfig{ID: "cancerChat", Name: "Cancer Chat", Enabled: true, BaseURL: up.URL})

	res := client.Call(context.Background(), "cancerChat", "Hello", nil)
	assert.Empty(t, res.Content)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "Failed to get response from Cancer Chat: ")
	assert.Contains(t, res.Error, "500")
}

func TestCall_TransportFailureHidesKey(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{}`)
	url := up.URL
	up.Close()

	client := newClient(config.ProviderConfig{ID: "gemini", Name: "Gemini", Enabled: true, APIKey: "very-secret", BaseURL: url})
	res := client.Call(context.Background(), "gemini", "hi", nil)

	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "Failed to get response from Gemini: ")
	assert.NotContains(t, res.Error, "very-secret")
}

func TestCall_UnregisteredFamily(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{}`)
	client := newClient(config.ProviderConfig{ID: "x", Name: "X", Enabled: true, BaseURL: up.URL, Family: "telepathy"})

	res := client.Call(context.Background(), "x", "hi", nil)
	assert.True(t, res.Failed())
	assert.Contains(t, res.Error, "Failed to get response from X")
	assert.Zero(t, up.hits.Load())
}

func TestCall_Cancelled(t *testing.T) {
	up := newUpstream(t, http.StatusOK, `{"reply":"late"}`)
	client := newClient(config.ProviderConfig{ID: "cancerChat", Name: "Cancer Chat", Enabled: true, BaseURL: up.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := client.Call(ctx, "cancerChat", "hi", nil)
	require.True(t, res.Failed())
	assert.Empty(t, res.Content)
}
