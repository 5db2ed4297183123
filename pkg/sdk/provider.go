package calmbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/calmbox/calmbox/internal/domain"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// EmbeddingResult carries the embedding vector and token counts.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// GenOptions tune one generation call.
type GenOptions struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	Stop        []string
}

// TokenStream yields generation deltas. Recv returns io.EOF at end of stream.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Generator produces streamed chat completions.
type Generator interface {
	StreamChat(ctx context.Context, system, user string, opts GenOptions) (TokenStream, error)
	GenerateChat(ctx context.Context, system, user string, opts GenOptions) (string, error)
}

// LEDPattern is an opaque pattern payload forwarded to the hardware layer.
type LEDPattern = map[string]any

// Sink receives the pipeline's hardware-facing outputs.
type Sink interface {
	Speak(text string)
	LED(pattern LEDPattern)
	Screen(text string, durationMS int)
}

// embedderAdapter wraps the public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// generatorAdapter wraps the public Generator to satisfy internal domain.Generator.
type generatorAdapter struct {
	inner Generator
}

func (a *generatorAdapter) StreamChat(
	ctx context.Context, system, user string, opts domain.GenOptions,
) (domain.TokenStream, error) {
	s, err := a.inner.StreamChat(ctx, system, user, GenOptions(opts))
	if err != nil {
		return nil, fmt.Errorf("stream chat: %w", err)
	}
	return s, nil
}

func (a *generatorAdapter) GenerateChat(
	ctx context.Context, system, user string, opts domain.GenOptions,
) (string, error) {
	out, err := a.inner.GenerateChat(ctx, system, user, GenOptions(opts))
	if err != nil {
		return "", fmt.Errorf("generate chat: %w", err)
	}
	return out, nil
}

// sinkAdapter wraps the public Sink to satisfy internal domain.Sink.
type sinkAdapter struct {
	inner Sink
}

func (a *sinkAdapter) Speak(text string)                  { a.inner.Speak(text) }
func (a *sinkAdapter) LED(pattern domain.LEDPattern)      { a.inner.LED(pattern) }
func (a *sinkAdapter) Screen(text string, durationMS int) { a.inner.Screen(text, durationMS) }

// noopEmbedder returns an error on Embed call (used when no embedder configured).
type noopEmbedder struct{}

func (noopEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{}, errors.New(
		"calmbox: embedder not configured (use WithEmbedder)",
	)
}

// noopGenerator returns an error on any call (used when no generator configured).
// Protocol-hit turns still work without a generator.
type noopGenerator struct{}

func (noopGenerator) StreamChat(
	_ context.Context, _, _ string, _ domain.GenOptions,
) (domain.TokenStream, error) {
	return nil, errors.New("calmbox: generator not configured (use WithGenerator)")
}

func (noopGenerator) GenerateChat(_ context.Context, _, _ string, _ domain.GenOptions) (string, error) {
	return "", errors.New("calmbox: generator not configured (use WithGenerator)")
}

// noopSink discards all hardware actions.
type noopSink struct{}

func (noopSink) Speak(string)          {}
func (noopSink) LED(domain.LEDPattern) {}
func (noopSink) Screen(string, int)    {}
