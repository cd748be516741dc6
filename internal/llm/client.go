package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nulzo/chat-router/internal/config"
	"github.com/nulzo/chat-router/internal/httpclient"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MsgModelNotFound is returned to callers that name an unknown or disabled provider.
const MsgModelNotFound = "Model not found or not enabled"

const tracerName = "github.com/nulzo/chat-router/internal/llm"

// Client is the single entry point for provider calls. Call never returns
// an error; every outcome is a Result.
type Client struct {
	registry *Registry
	http     httpclient.HTTPClient
	logger   *zap.Logger
	tracer   trace.Tracer
}

type ClientOption func(*Client)

func WithHTTPClient(c httpclient.HTTPClient) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

func WithLogger(l *zap.Logger) ClientOption {
	return func(cl *Client) {
		cl.logger = l
	}
}

func NewClient(registry *Registry, opts ...ClientOption) *Client {
	c := &Client{
		registry: registry,
		http:     &http.Client{Timeout: 60 * time.Second},
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call sends message plus history to the provider and normalizes the reply.
func (c *Client) Call(ctx context.Context, providerID, message string, history []Turn) (res Result) {
	p, err := c.registry.Resolve(providerID)
	if err != nil {
		return Result{Error: MsgModelNotFound}
	}

	family := FamilyName(p)
	ctx, span := c.tracer.Start(ctx, "llm.call", trace.WithAttributes(
		attribute.String("provider.id", p.ID),
		attribute.String("provider.family", family),
	))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res = failure(p, fmt.Errorf("%v", r))
		}
		if res.Failed() {
			span.SetStatus(codes.Error, res.Error)
			c.logger.Warn("provider call failed",
				zap.String("provider", p.ID),
				zap.String("family", family),
				zap.Duration("latency", time.Since(start)),
				zap.String("error", res.Error))
		} else {
			c.logger.Debug("provider call",
				zap.String("provider", p.ID),
				zap.String("family", family),
				zap.Duration("latency", time.Since(start)))
		}
		span.End()
	}()

	content, err := c.dispatch(ctx, p, message, history)
	if err != nil {
		span.RecordError(err)
		var upstream *httpclient.UpstreamError
		if errors.As(err, &upstream) {
			span.SetAttributes(attribute.Int("http.status_code", upstream.StatusCode))
		}
		return failure(p, err)
	}
	return Result{Content: content}
}

func (c *Client) dispatch(ctx context.Context, p config.ProviderConfig, message string, history []Turn) (string, error) {
	f, err := FamilyFor(p)
	if err != nil {
		return "", err
	}

	if d, ok := f.(Dispatcher); ok {
		return d.Dispatch(ctx, c.http, p, message, history)
	}

	req, err := f.BuildRequest(p, message, history)
	if err != nil {
		return "", err
	}
	raw, err := httpclient.Send(ctx, c.http, req)
	if err != nil {
		return "", err
	}
	return f.ParseResponse(p, raw), nil
}

func failure(p config.ProviderConfig, err error) Result {
	return Result{Error: fmt.Sprintf("Failed to get response from %s: %s", DisplayName(p), err.Error())}
}
