// Package security keeps provider credentials out of logs and error text.
package security

import (
	"net/url"
	"regexp"
	"strings"
)

// RedactedPlaceholder replaces any credential found in text.
const RedactedPlaceholder = "[REDACTED]"

var sensitivePatterns = []*regexp.Regexp{
	// Anthropic keys: sk-ant-...
	regexp.MustCompile(`sk-ant-[a-zA-Z0-9_-]{20,}`),
	// OpenAI keys: sk-...
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	// Google AI keys: AIza...
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{30,}`),
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._-]{16,}`),
	// Query parameter form used by key-in-URL providers.
	regexp.MustCompile(`([?&]key=)[^&\s"]+`),
}

var sensitiveKeys = []string{
	"authorization",
	"api_key",
	"apikey",
	"api-key",
	"x-api-key",
	"secret",
	"password",
	"token",
	"cookie",
	"credential",
}

// Redact scans s for credential shapes and replaces them.
func Redact(s string) string {
	if s == "" {
		return s
	}
	result := s
	for i, pattern := range sensitivePatterns {
		if i == len(sensitivePatterns)-1 {
			result = pattern.ReplaceAllString(result, "${1}"+RedactedPlaceholder)
			continue
		}
		result = pattern.ReplaceAllString(result, RedactedPlaceholder)
	}
	return result
}

// IsSensitiveKey reports whether a field or header name is known to carry secrets.
func IsSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, k := range sensitiveKeys {
		if strings.Contains(key, k) {
			return true
		}
	}
	return false
}

// RedactURL masks the value of the "key" query parameter.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return Redact(raw)
	}
	q := u.Query()
	if !q.Has("key") {
		return raw
	}
	q.Set("key", RedactedPlaceholder)
	u.RawQuery = q.Encode()
	return u.String()
}
