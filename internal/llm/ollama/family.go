// Package ollama speaks the native chat API of a local Ollama daemon.
package ollama

import (
	"encoding/json"
	"strings"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
)

// DefaultEndpoint is used when the provider leaves endpoint empty.
const DefaultEndpoint = "/api/chat"

const (
	thinkStart = "<think>"
	thinkEnd   = "</think>"
)

func init() {
	llm.Register(Family{})
}

type chatRequest struct {
	Model    string     `json:"model"`
	Messages []llm.Turn `json:"messages"`
	Stream   bool       `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

// Family is the local_chat family. Reasoning models wrap their chain of
// thought in <think> blocks; those are dropped from the reply.
type Family struct{}

func (Family) Name() string {
	return llm.FamilyLocalChat
}

func (Family) BuildRequest(p config.ProviderConfig, message string, history []llm.Turn) (*httpclient.Request, error) {
	if p.Endpoint == "" {
		p.Endpoint = DefaultEndpoint
	}

	messages := make([]llm.Turn, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, llm.Turn{Role: llm.RoleUser, Content: message})

	return llm.NewRequest(p, llm.AuthBearer, chatRequest{
		Model:    p.Model,
		Messages: messages,
		Stream:   false,
	}), nil
}

func (Family) ParseResponse(p config.ProviderConfig, raw []byte) string {
	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return llm.NoResponse(p)
	}
	content := strings.TrimSpace(stripThinking(resp.Message.Content))
	if content == "" {
		return llm.NoResponse(p)
	}
	return content
}

// stripThinking removes every <think>...</think> block. An unclosed block
// runs to the end of the text.
func stripThinking(text string) string {
	var b strings.Builder
	for {
		start := strings.Index(text, thinkStart)
		if start == -1 {
			b.WriteString(text)
			return b.String()
		}
		b.WriteString(text[:start])
		text = text[start+len(thinkStart):]

		end := strings.Index(text, thinkEnd)
		if end == -1 {
			return b.String()
		}
		text = text[end+len(thinkEnd):]
	}
}
