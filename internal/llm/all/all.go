// Package all registers every built-in provider family.
package all

import (
	_ "github.com/nulzo/chat-router/internal/llm/anthropic"
	_ "github.com/nulzo/chat-router/internal/llm/custom"
	_ "github.com/nulzo/chat-router/internal/llm/google"
	_ "github.com/nulzo/chat-router/internal/llm/ollama"
	_ "github.com/nulzo/chat-router/internal/llm/openai"
)
