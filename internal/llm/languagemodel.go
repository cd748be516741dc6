package llm

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
)

// FallbackText replaces an empty generation.
const FallbackText = "I apologize, but I could not generate a response."

// DefaultStreamDelay separates synthetic stream chunks.
const DefaultStreamDelay = 50 * time.Millisecond

const FinishReasonStop = "stop"

// ErrEmptyPrompt is returned when a prompt has no messages.
var ErrEmptyPrompt = errors.New("prompt has no messages")

// Caller performs one normalized provider call.
type Caller interface {
	Call(ctx context.Context, providerID, message string, history []Turn) Result
}

type PromptPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// PromptMessage holds either plain text or a list of parts.
type PromptMessage struct {
	Role  Role         `json:"role"`
	Text  string       `json:"text,omitempty"`
	Parts []PromptPart `json:"parts,omitempty"`
}

// Content flattens the message to text; text parts are joined by one space.
func (m PromptMessage) Content() string {
	if m.Parts == nil {
		return m.Text
	}
	texts := make([]string, 0, len(m.Parts))
	for _, p := range m.Parts {
		if p.Type == "" || p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type Generation struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
}

type ChunkType string

const (
	ChunkTextDelta ChunkType = "text-delta"
	ChunkFinish    ChunkType = "finish"
)

// StreamChunk is either a text fragment or the final marker.
type StreamChunk struct {
	Type         ChunkType `json:"type"`
	TextDelta    string    `json:"textDelta,omitempty"`
	FinishReason string    `json:"finishReason,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
}

// GenerationError carries the normalized error text of a failed call.
type GenerationError struct {
	ModelID string
	Message string
}

func (e *GenerationError) Error() string {
	return e.Message
}

// LanguageModel presents one provider behind generate and stream calls.
type LanguageModel struct {
	caller  Caller
	modelID string
	delay   time.Duration
}

type ModelOption func(*LanguageModel)

// WithStreamDelay sets the pause between stream chunks.
func WithStreamDelay(d time.Duration) ModelOption {
	return func(m *LanguageModel) {
		m.delay = d
	}
}

func NewLanguageModel(caller Caller, modelID string, opts ...ModelOption) *LanguageModel {
	m := &LanguageModel{
		caller:  caller,
		modelID: modelID,
		delay:   DefaultStreamDelay,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *LanguageModel) ModelID() string {
	return m.modelID
}

// Generate sends the last prompt message with the rest as history.
func (m *LanguageModel) Generate(ctx context.Context, prompt []PromptMessage) (*Generation, error) {
	if len(prompt) == 0 {
		return nil, ErrEmptyPrompt
	}

	last := prompt[len(prompt)-1]
	history := make([]Turn, 0, len(prompt)-1)
	for _, pm := range prompt[:len(prompt)-1] {
		history = append(history, Turn{Role: pm.Role, Content: pm.Content()})
	}

	res := m.caller.Call(ctx, m.modelID, last.Content(), history)
	if res.Failed() {
		return nil, &GenerationError{ModelID: m.modelID, Message: res.Error}
	}

	text := res.Content
	if text == "" {
		text = FallbackText
	}
	return &Generation{Text: text, FinishReason: FinishReasonStop}, nil
}

// Stream generates the full reply, then replays it word by word.
func (m *LanguageModel) Stream(ctx context.Context, prompt []PromptMessage) (<-chan StreamChunk, error) {
	gen, err := m.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	return m.Emit(ctx, gen.Text), nil
}

// Emit replays text as text-delta chunks followed by one finish chunk. The
// channel is closed without a finish chunk if ctx is cancelled.
func (m *LanguageModel) Emit(ctx context.Context, text string) <-chan StreamChunk {
	words := SplitWords(text)
	ch := make(chan StreamChunk)

	go func() {
		defer close(ch)

		send := func(chunk StreamChunk) bool {
			select {
			case ch <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for i, w := range words {
			if i > 0 && !m.wait(ctx) {
				return
			}
			if !send(StreamChunk{Type: ChunkTextDelta, TextDelta: w}) {
				return
			}
		}

		if len(words) > 0 && !m.wait(ctx) {
			return
		}
		send(StreamChunk{Type: ChunkFinish, FinishReason: FinishReasonStop, Usage: &Usage{}})
	}()

	return ch
}

func (m *LanguageModel) wait(ctx context.Context) bool {
	if m.delay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// SplitWords cuts text into words that each keep their trailing whitespace.
// Leading whitespace stays with the first word, so the pieces concatenate
// back to text exactly.
func SplitWords(text string) []string {
	if text == "" {
		return nil
	}
	var words []string
	start := 0
	inSpace := false
	seenWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && inSpace && seenWord {
			words = append(words, text[start:i])
			start = i
		}
		if !space {
			seenWord = true
		}
		inSpace = space
	}
	return append(words, text[start:])
}
