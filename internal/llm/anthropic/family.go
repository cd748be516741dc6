package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
)

// DefaultMaxTokens caps replies; the messages API requires the field.
const DefaultMaxTokens = 1024

func init() {
	llm.Register(Family{})
}

type messagesRequest struct {
	Model     string     `json:"model,omitempty"`
	MaxTokens int        `json:"max_tokens"`
	System    string     `json:"system,omitempty"`
	Messages  []llm.Turn `json:"messages"`
	Stream    bool       `json:"stream"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Family speaks the messages shape. System turns are lifted into the
// top-level system field since the API rejects them inside messages.
type Family struct{}

func (Family) Name() string {
	return llm.FamilyMessages
}

func (Family) BuildRequest(p config.ProviderConfig, message string, history []llm.Turn) (*httpclient.Request, error) {
	var system []string
	messages := make([]llm.Turn, 0, len(history)+1)
	for _, t := range history {
		if t.Role == llm.RoleSystem {
			system = append(system, t.Content)
			continue
		}
		messages = append(messages, t)
	}
	messages = append(messages, llm.Turn{Role: llm.RoleUser, Content: message})

	return llm.NewRequest(p, llm.AuthAPIKeyHeader, messagesRequest{
		Model:     p.Model,
		MaxTokens: DefaultMaxTokens,
		System:    strings.Join(system, "\n"),
		Messages:  messages,
	}), nil
}

func (Family) ParseResponse(p config.ProviderConfig, raw []byte) string {
	var resp messagesResponse
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return llm.NoResponse(p)
	}
	return resp.Content[0].Text
}
