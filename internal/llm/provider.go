package llm

import (
	"context"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one prior message of a conversation, forwarded verbatim.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Result is the normalized outcome of a provider call. A non-empty Error is
// authoritative; Content is then always empty.
type Result struct {
	Content string `json:"content"`
	Error   string `json:"error,omitempty"`
}

// Failed reports whether the call produced an error.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Family knows one upstream request/response shape.
type Family interface {
	Name() string
	BuildRequest(p config.ProviderConfig, message string, history []Turn) (*httpclient.Request, error)
	// ParseResponse never fails; an unexpected shape yields fallback text.
	ParseResponse(p config.ProviderConfig, raw []byte) string
}

// Dispatcher is implemented by families that perform their own round trip
// instead of the client's generic send and parse.
type Dispatcher interface {
	Dispatch(ctx context.Context, client httpclient.HTTPClient, p config.ProviderConfig, message string, history []Turn) (string, error)
}
