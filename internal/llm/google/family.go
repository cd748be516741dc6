package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"github.com/nulzo/chat-router/internal/llm"
)

func init() {
	llm.Register(Family{})
}

type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

type GeminiRequest struct {
	Contents []GeminiContent `json:"contents"`
}

type GeminiResponse struct {
	Candidates []struct {
		Content      GeminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Family speaks the content-generation shape. The request is single turn;
// history is not forwarded. The key travels in the query string.
type Family struct{}

func (Family) Name() string {
	return llm.FamilyContentGeneration
}

func (Family) BuildRequest(p config.ProviderConfig, message string, _ []llm.Turn) (*httpclient.Request, error) {
	if p.Endpoint == "" && p.Model != "" {
		p.Endpoint = fmt.Sprintf("/models/%s:generateContent", p.Model)
	}
	return llm.NewRequest(p, llm.AuthQuery, GeminiRequest{
		Contents: []GeminiContent{{Parts: []GeminiPart{{Text: message}}}},
	}), nil
}

func (Family) ParseResponse(p config.ProviderConfig, raw []byte) string {
	var resp GeminiResponse
	if err := json.Unmarshal(raw, &resp); err != nil ||
		len(resp.Candidates) == 0 ||
		len(resp.Candidates[0].Content.Parts) == 0 ||
		resp.Candidates[0].Content.Parts[0].Text == "" {
		return llm.NoResponse(p)
	}
	return resp.Candidates[0].Content.Parts[0].Text
}

// Dispatch performs the round trip itself so upstream error bodies can be
// surfaced with their message.
func (f Family) Dispatch(ctx context.Context, client httpclient.HTTPClient, p config.ProviderConfig, message string, history []llm.Turn) (string, error) {
	req, err := f.BuildRequest(p, message, history)
	if err != nil {
		return "", err
	}

	raw, err := httpclient.Send(ctx, client, req)
	if err != nil {
		return "", describe(err)
	}
	return f.ParseResponse(p, raw), nil
}

func describe(err error) error {
	var upstream *httpclient.UpstreamError
	if !errors.As(err, &upstream) {
		return err
	}
	var body geminiError
	if jsonErr := json.Unmarshal(upstream.Body, &body); jsonErr != nil || body.Error.Message == "" {
		return err
	}
	return fmt.Errorf("%w (%s)", err, strings.TrimSpace(body.Error.Message))
}
