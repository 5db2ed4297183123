package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/metrics"
)

// Generator produces replies via an OpenAI-compatible chat completion API.
// The device runs a small local model behind the same surface, so the one
// client covers both local and hosted deployments.
type Generator struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// GeneratorConfig holds the chat completion provider settings.
type GeneratorConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewGenerator creates an OpenAI-compatible chat completion provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	return &Generator{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

func (g *Generator) buildRequest(system, user string, opts domain.GenOptions) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.Stop,
	}
}

// StreamChat implements domain.Generator. The returned stream yields content
// deltas and io.EOF when the model finishes.
func (g *Generator) StreamChat(ctx context.Context, system, user string, opts domain.GenOptions) (domain.TokenStream, error) {
	req := g.buildRequest(system, user, opts)
	req.Stream = true

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, wrapGeneratorError(err)
	}

	return &tokenStream{
		inner:    stream,
		provider: g.provider,
		model:    g.model,
		started:  time.Now(),
	}, nil
}

// GenerateChat implements domain.Generator for one-shot, non-streamed calls.
func (g *Generator) GenerateChat(ctx context.Context, system, user string, opts domain.GenOptions) (string, error) {
	req := g.buildRequest(system, user, opts)

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", wrapGeneratorError(err)
	}
	metrics.GenerationDuration.WithLabelValues(g.provider, g.model).Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGeneratorError)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// tokenStream adapts the SDK stream to domain.TokenStream.
type tokenStream struct {
	inner    *openai.ChatCompletionStream
	provider string
	model    string
	started  time.Time
	done     bool
}

// Recv returns the next content delta. Empty deltas (role-only chunks) are
// skipped. Returns io.EOF when the stream ends.
func (s *tokenStream) Recv() (string, error) {
	for {
		resp, err := s.inner.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.finish()
				return "", io.EOF
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return "", err
			}
			return "", wrapGeneratorError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			return delta, nil
		}
	}
}

func (s *tokenStream) Close() {
	s.finish()
	s.inner.Close()
}

func (s *tokenStream) finish() {
	if s.done {
		return
	}
	s.done = true
	metrics.GenerationDuration.WithLabelValues(s.provider, s.model).Observe(time.Since(s.started).Seconds())
}

// wrapGeneratorError wraps provider errors with domain.ErrGeneratorError for
// correct 502 mapping.
func wrapGeneratorError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGeneratorError)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("completion API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), domain.ErrGeneratorError)
	}
	return fmt.Errorf("completion request failed: %w", domain.ErrGeneratorError)
}
