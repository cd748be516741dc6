// Package custom holds the families spoken by self-hosted chat services.
package custom

import (
	"encoding/json"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
)

func init() {
	llm.Register(SingleMessage{})
	llm.Register(Question{})
	llm.Register(Recommendation{})
	llm.Register(Generic{})
}

// stringField returns obj[key] when it is a non-empty string.
func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok && s != ""
}

func decodeObject(raw []byte) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	return obj
}

// SingleMessage sends {message} and reads reply.
type SingleMessage struct{}

func (SingleMessage) Name() string {
	return llm.FamilySingleMessage
}

func (SingleMessage) BuildRequest(p config.ProviderConfig, message string, _ []llm.Turn) (*httpclient.Request, error) {
	return llm.NewRequest(p, llm.AuthBearer, map[string]string{"message": message}), nil
}

func (SingleMessage) ParseResponse(p config.ProviderConfig, raw []byte) string {
	if s, ok := stringField(decodeObject(raw), "reply"); ok {
		return s
	}
	return llm.NoResponse(p)
}

// Question sends {question} and reads response.
type Question struct{}

func (Question) Name() string {
	return llm.FamilyQuestion
}

func (Question) BuildRequest(p config.ProviderConfig, message string, _ []llm.Turn) (*httpclient.Request, error) {
	return llm.NewRequest(p, llm.AuthBearer, map[string]string{"question": message}), nil
}

func (Question) ParseResponse(p config.ProviderConfig, raw []byte) string {
	if s, ok := stringField(decodeObject(raw), "response"); ok {
		return s
	}
	return llm.NoResponse(p)
}

// Generic sends the message with history flattened into context, and reads
// reply, then content.
type Generic struct{}

func (Generic) Name() string {
	return llm.FamilyGeneric
}

func (Generic) BuildRequest(p config.ProviderConfig, message string, history []llm.Turn) (*httpclient.Request, error) {
	return llm.NewRequest(p, llm.AuthBearer, map[string]string{
		"message": message,
		"context": llm.FormatHistory(history),
	}), nil
}

func (Generic) ParseResponse(p config.ProviderConfig, raw []byte) string {
	obj := decodeObject(raw)
	if s, ok := stringField(obj, "reply"); ok {
		return s
	}
	if s, ok := stringField(obj, "content"); ok {
		return s
	}
	return llm.NoResponse(p)
}
