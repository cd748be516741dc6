package llm_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nulzo/chat-router/internal/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCaller struct {
	mock.Mock
}

func (m *mockCaller) Call(ctx context.Context, providerID, message string, history []llm.Turn) llm.Result {
	args := m.Called(ctx, providerID, message, history)
	return args.Get(0).(llm.Result)
}

func collect(ch <-chan llm.StreamChunk) []llm.StreamChunk {
	var out []llm.StreamChunk
	for c := range ch {
		out = append(out, c)
	}
	return out
}

func TestGenerate_SplitsPromptIntoMessageAndHistory(t *testing.T) {
	caller := new(mockCaller)
	caller.On("Call", mock.Anything, "cancerChat", "and now?", []llm.Turn{
		{Role: llm.RoleUser, Content: "hi there"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}).Return(llm.Result{Content: "Hi there"})

	model := llm.NewLanguageModel(caller, "cancerChat")
	gen, err := model.Generate(context.Background(), []llm.PromptMessage{
		{Role: llm.RoleUser, Parts: []llm.PromptPart{{Type: "text", Text: "hi"}, {Type: "text", Text: "there"}}},
		{Role: llm.RoleAssistant, Text: "hello"},
		{Role: llm.RoleUser, Text: "and now?"},
	})

	require.NoError(t, err)
	assert.Equal(t, &llm.Generation{Text: "Hi there", FinishReason: "stop"}, gen)
	caller.AssertExpectations(t)
}

func TestGenerate_EmptyContentFallback(t *testing.T) {
	caller := new(mockCaller)
	caller.On("Call", mock.Anything, "m", "hi", []llm.Turn{}).Return(llm.Result{})

	gen, err := llm.NewLanguageModel(caller, "m").Generate(context.Background(), []llm.PromptMessage{{Role: llm.RoleUser, Text: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, llm.FallbackText, gen.Text)
}

func TestGenerate_Error(t *testing.T) {
	caller := new(mockCaller)
	caller.On("Call", mock.Anything, "m", "hi", mock.Anything).Return(llm.Result{Error: "Model not found or not enabled"})

	_, err := llm.NewLanguageModel(caller, "m").Generate(context.Background(), []llm.PromptMessage{{Role: llm.RoleUser, Text: "hi"}})
	require.Error(t, err)

	var genErr *llm.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "Model not found or not enabled", genErr.Error())
	assert.Equal(t, "m", genErr.ModelID)
}

func TestGenerate_EmptyPrompt(t *testing.T) {
	_, err := llm.NewLanguageModel(new(mockCaller), "m").Generate(context.Background(), nil)
	assert.ErrorIs(t, err, llm.ErrEmptyPrompt)
}

func TestStream_WordChunks(t *testing.T) {
	caller := new(mockCaller)
	caller.On("Call", mock.Anything, "m", "hi", mock.Anything).Return(llm.Result{Content: "Hello big world"})

	model := llm.NewLanguageModel(caller, "m", llm.WithStreamDelay(0))
	ch, err := model.Stream(context.Background(), []llm.PromptMessage{{Role: llm.RoleUser, Text: "hi"}})
	require.NoError(t, err)

	chunks := collect(ch)
	require.Len(t, chunks, 4)
	assert.Equal(t, llm.StreamChunk{Type: llm.ChunkTextDelta, TextDelta: "Hello "}, chunks[0])
	assert.Equal(t, llm.StreamChunk{Type: llm.ChunkTextDelta, TextDelta: "big "}, chunks[1])
	assert.Equal(t, llm.StreamChunk{Type: llm.ChunkTextDelta, TextDelta: "world"}, chunks[2])
	assert.Equal(t, llm.ChunkFinish, chunks[3].Type)
	assert.Equal(t, "stop", chunks[3].FinishReason)
	assert.Equal(t, &llm.Usage{}, chunks[3].Usage)
}

func TestStream_ErrorReturnsNoChannel(t *testing.T) {
	caller := new(mockCaller)
	caller.On("Call", mock.Anything, "m", "hi", mock.Anything).Return(llm.Result{Error: "Failed to get response from M: boom"})

	ch, err := llm.NewLanguageModel(caller, "m").Stream(context.Background(), []llm.PromptMessage{{Role: llm.RoleUser, Text: "hi"}})
	assert.Nil(t, ch)
	assert.EqualError(t, err, "Failed to get response from M: boom")
}

func TestStream_DelayBetweenChunks(t *testing.T) {
	model := llm.NewLanguageModel(new(mockCaller), "m", llm.WithStreamDelay(20*time.Millisecond))

	start := time.Now()
	chunks := collect(model.Emit(context.Background(), "a b c"))
	elapsed := time.Since(start)

	require.Len(t, chunks, 4)
	// two gaps between three words plus one before finish
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestStream_CancelStopsWithoutFinish(t *testing.T) {
	model := llm.NewLanguageModel(new(mockCaller), "m", llm.WithStreamDelay(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	ch := model.Emit(ctx, "one two three four five")
	first := <-ch
	assert.Equal(t, "one ", first.TextDelta)
	cancel()

	rest := collect(ch)
	for _, c := range rest {
		assert.NotEqual(t, llm.ChunkFinish, c.Type)
	}
}

func TestEmit_EmptyTextOnlyFinish(t *testing.T) {
	model := llm.NewLanguageModel(new(mockCaller), "m", llm.WithStreamDelay(0))
	chunks := collect(model.Emit(context.Background(), ""))
	require.Len(t, chunks, 1)
	assert.Equal(t, llm.ChunkFinish, chunks[0].Type)
}

func TestSplitWords_RoundTrip(t *testing.T) {
	inputs := []string{
		"Hello world",
		"  leading space",
		"trailing space  ",
		"multiple   spaces\tand\nnewlines",
		"   ",
		"single",
		"ünïcödé wörds ok",
	}
	for _, in := range inputs {
		words := llm.SplitWords(in)
		assert.Equal(t, in, strings.Join(words, ""), "round trip of %q", in)
		assert.NotEmpty(t, words)
	}

	assert.Equal(t, []string{"  leading ", "space"}, llm.SplitWords("  leading space"))
	assert.Equal(t, []string{"   "}, llm.SplitWords("   "))
	assert.Nil(t, llm.SplitWords(""))
}

func TestPromptMessage_Content(t *testing.T) {
	m := llm.PromptMessage{Parts: []llm.PromptPart{{Type: "text", Text: "a"}, {Type: "image", Text: "ignored"}, {Type: "text", Text: "b"}}}
	assert.Equal(t, "a b", m.Content())
	assert.Equal(t, "plain", llm.PromptMessage{Text: "plain"}.Content())
}
