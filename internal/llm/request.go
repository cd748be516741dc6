package llm

import (
	"net/url"
	"strings"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
)

// AnthropicVersion is sent with every header-keyed request.
const AnthropicVersion = "2023-06-01"

// AuthScheme describes where a family places the provider key.
type AuthScheme int

const (
	AuthBearer AuthScheme = iota
	AuthAPIKeyHeader
	AuthQuery
)

// NewRequest prepares a request to the provider's URL with the credential
// placed according to scheme. No credential is attached when the key is empty.
func NewRequest(p config.ProviderConfig, scheme AuthScheme, body any) *httpclient.Request {
	req := &httpclient.Request{
		Method:  method(p),
		URL:     p.URL(),
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}

	if p.APIKey == "" {
		return req
	}

	switch scheme {
	case AuthAPIKeyHeader:
		req.Headers["x-api-key"] = p.APIKey
		req.Headers["anthropic-version"] = AnthropicVersion
	case AuthQuery:
		sep := "?"
		if strings.Contains(req.URL, "?") {
			sep = "&"
		}
		req.URL += sep + "key=" + url.QueryEscape(p.APIKey)
	default:
		req.Headers["Authorization"] = "Bearer " + p.APIKey
	}
	return req
}

func method(p config.ProviderConfig) string {
	m := strings.ToUpper(strings.TrimSpace(p.Method))
	if m == "" {
		return "POST"
	}
	return m
}

// NoResponse is the fallback content when a reply field is missing.
func NoResponse(p config.ProviderConfig) string {
	return "No response from " + DisplayName(p)
}

// DisplayName is the provider name, or its id when no name is configured.
func DisplayName(p config.ProviderConfig) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

// FormatHistory renders turns as "role: content" lines.
func FormatHistory(history []Turn) string {
	lines := make([]string, len(history))
	for i, t := range history {
		lines[i] = string(t.Role) + ": " + t.Content
	}
	return strings.Join(lines, "\n")
}
