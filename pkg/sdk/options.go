package calmbox

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	addrs    []string
	password string

	keyPrefix string

	taxonomyPath  string
	overridesPath string
	protocolsPath string

	embedder  Embedder
	generator Generator
	sink      Sink

	wQuality float64
	wEnabled float64

	topK          int
	autoTopTags   int
	maxReplyRunes int
	maxTokens     int
	temperature   float32
	topP          float32

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithKeyPrefix sets the key namespace for chunks and the embedding cache.
// Default: "calmbox:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithKnowledge sets the paths to the taxonomy, override-rules and protocol
// documents. Required; a malformed document fails New.
func WithKnowledge(taxonomy, overrides, protocols string) Option {
	return optionFunc(func(c *clientConfig) {
		c.taxonomyPath = taxonomy
		c.overridesPath = overrides
		c.protocolsPath = protocols
	})
}

// WithEmbedder sets the text embedding provider. Required for retrieval and
// generated turns; protocol-only turns work without it.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithGenerator sets the chat completion provider. Required for generated
// turns; protocol-only turns work without it.
func WithGenerator(g Generator) Option {
	return optionFunc(func(c *clientConfig) {
		c.generator = g
	})
}

// WithSink routes speech, LED and screen actions to the given sink.
// Default: discard.
func WithSink(s Sink) Option {
	return optionFunc(func(c *clientConfig) {
		c.sink = s
	})
}

// WithRerankWeights tunes the quality-aware rerank.
// Defaults: quality 0.015, enabled 0.005.
func WithRerankWeights(quality, enabled float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.wQuality = quality
		c.wEnabled = enabled
	})
}

// WithSessionTuning overrides per-turn limits. Zero values keep defaults
// (topK 6, autoTopTags 2, maxReplyRunes 60).
func WithSessionTuning(topK, autoTopTags, maxReplyRunes int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topK = topK
		c.autoTopTags = autoTopTags
		c.maxReplyRunes = maxReplyRunes
	})
}

// WithGenerationTuning overrides sampling parameters. Zero values keep
// defaults (maxTokens 220, temperature 0.3, topP 0.9).
func WithGenerationTuning(maxTokens int, temperature, topP float32) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxTokens = maxTokens
		c.temperature = temperature
		c.topP = topP
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
