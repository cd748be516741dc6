package openai

import (
	"encoding/json"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
)

func init() {
	llm.Register(Family{})
}

type chatRequest struct {
	Model    string     `json:"model,omitempty"`
	Messages []llm.Turn `json:"messages"`
	Stream   bool       `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Family speaks the chat-completions shape.
type Family struct{}

func (Family) Name() string {
	return llm.FamilyChatCompletion
}

func (Family) BuildRequest(p config.ProviderConfig, message string, history []llm.Turn) (*httpclient.Request, error) {
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
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return llm.NoResponse(p)
	}
	return resp.Choices[0].Message.Content
}
