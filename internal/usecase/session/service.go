// Package session orchestrates one conversational turn: route, protocol
// short-circuit, retrieval, streamed generation, parsing, safety gate.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/llmjson"
	"github.com/calmbox/calmbox/internal/metrics"
	"github.com/calmbox/calmbox/internal/protocol"
	"github.com/calmbox/calmbox/internal/usecase/retrieval"
)

// Turn outcomes.
const (
	OutcomeProtocol  = "protocol"
	OutcomeGenerated = "generated"
)

// defaultStop suppresses a second JSON object: the common failure mode is a
// newline followed by '{' starting another object.
var defaultStop = []string{"\n{", "\r\n{", "</s>", "<|endoftext|>"}

// Config tunes a session.
type Config struct {
	TopK          int
	AutoTopTags   int
	MaxReplyRunes int
	MaxTokens     int
	Temperature   float32
	TopP          float32
}

func (c *Config) applyDefaults() {
	if c.TopK <= 0 {
		c.TopK = 6
	}
	if c.AutoTopTags <= 0 {
		c.AutoTopTags = 2
	}
	if c.MaxReplyRunes <= 0 {
		c.MaxReplyRunes = 60
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 220
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.3
	}
	if c.TopP <= 0 {
		c.TopP = 0.9
	}
}

// Turn is the result of one handled utterance.
type Turn struct {
	Reply    string
	Outcome  string
	Protocol string
	UsedIDs  []string
}

// Service is the per-turn orchestrator. Registries behind the collaborators
// are immutable after load, so a Service may be shared across goroutines.
type Service struct {
	router    Router
	protocols Protocols
	retriever Retriever
	gen       domain.Generator
	guard     Guard
	sink      domain.Sink
	logger    *zap.Logger
	cfg       Config
}

// New creates a session service.
func New(
	router Router, protocols Protocols, retriever Retriever,
	gen domain.Generator, guard Guard, sink domain.Sink,
	logger *zap.Logger, cfg Config,
) *Service {
	cfg.applyDefaults()
	return &Service{
		router:    router,
		protocols: protocols,
		retriever: retriever,
		gen:       gen,
		guard:     guard,
		sink:      sink,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle processes one turn end-to-end and emits the final reply to the
// sink. External-call failures fail the turn, never the process.
func (s *Service) Handle(ctx context.Context, userText string, events []string) (Turn, error) {
	userText = strings.TrimSpace(userText)
	if userText == "" {
		return Turn{}, domain.ErrEmptyTurn
	}

	// ROUTE: tags feed both protocol triggers and retrieval filtering
	rr := s.router.Route(userText, s.cfg.AutoTopTags)

	// PROTOCOL_CHECK: a hit bypasses retrieval and generation entirely
	if hit := s.protocols.Match(userText, rr.Tags, events); hit != nil {
		return s.respondProtocol(hit), nil
	}

	// RETRIEVE: diversified grounding context
	dim := rr.Dimension
	if rr.CrossDimension {
		dim = ""
	}
	results, err := s.retriever.Search(ctx, userText, retrieval.Params{
		TopK:        s.cfg.TopK,
		Dimension:   dim,
		Tags:        rr.Tags,
		MaxPerGroup: 1,
	})
	if err != nil {
		return Turn{}, fmt.Errorf("retrieve: %w", err)
	}

	// GENERATE: streamed, stop sequences block a second JSON object
	buf, err := s.generate(ctx, userText, results)
	if err != nil {
		return Turn{}, err
	}

	// PARSE: never fails, worst case the raw buffer becomes the text
	payload := llmjson.ParsePayload(buf)

	merged := strings.TrimSpace(payload.Text)
	if ask := strings.TrimSpace(payload.Ask); ask != "" {
		merged = strings.TrimSpace(merged + " " + ask)
	}
	merged = limitRunes(merged, s.cfg.MaxReplyRunes)

	// GUARD: rewrites can exceed the cap, so truncate once more after it
	gr := s.guard.Check(merged)
	metrics.GuardVerdictsTotal.WithLabelValues(string(gr.Level)).Inc()
	final := limitRunes(gr.SafeText, s.cfg.MaxReplyRunes)

	if len(payload.UsedIDs) > 0 {
		s.logger.Debug("generator cited chunks", zap.Strings("used_ids", payload.UsedIDs))
	}
	if gr.Level != domain.GuardAllow {
		s.logger.Info("guard intervened",
			zap.String("level", string(gr.Level)),
			zap.Strings("reasons", gr.Reasons),
		)
	}

	s.sink.Speak(final)
	return Turn{Reply: final, Outcome: OutcomeGenerated, UsedIDs: payload.UsedIDs}, nil
}

// respondProtocol runs every tts action through the guard, concatenates the
// safe texts and forwards led/screen actions to the sink.
func (s *Service) respondProtocol(hit *protocol.Protocol) Turn {
	var lines []string
	for _, a := range hit.Actions {
		switch a.Type {
		case protocol.ActionTTS:
			gr := s.guard.Check(a.Text)
			metrics.GuardVerdictsTotal.WithLabelValues(string(gr.Level)).Inc()
			if gr.SafeText != "" {
				lines = append(lines, gr.SafeText)
			}
			if gr.Level != domain.GuardAllow {
				s.logger.Warn("guard intervened on protocol action",
					zap.String("protocol", hit.ID),
					zap.String("level", string(gr.Level)),
					zap.Strings("reasons", gr.Reasons),
				)
			}
		case protocol.ActionLED:
			s.sink.LED(a.Pattern)
		case protocol.ActionScreen:
			s.sink.Screen(a.Text, a.MS)
		}
	}

	final := limitRunes(strings.Join(lines, "\n"), s.cfg.MaxReplyRunes)

	s.logger.Info("protocol hit", zap.String("id", hit.ID), zap.String("name", hit.Name))
	s.sink.Speak(final)

	return Turn{Reply: final, Outcome: OutcomeProtocol, Protocol: hit.ID}
}

// generate streams the completion into a buffer. Cancellation mid-stream
// keeps the tokens received so far; the parser copes with the truncation.
func (s *Service) generate(ctx context.Context, userText string, results []domain.SearchResult) (string, error) {
	stream, err := s.gen.StreamChat(ctx, systemPrompt, buildUserPrompt(userText, results), domain.GenOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		TopP:        s.cfg.TopP,
		Stop:        defaultStop,
	})
	if err != nil {
		return "", fmt.Errorf("start generation: %w", err)
	}
	defer stream.Close()

	var buf strings.Builder
	for {
		tok, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				s.logger.Warn("generation cancelled mid-stream", zap.Error(err))
				break
			}
			if buf.Len() == 0 {
				return "", fmt.Errorf("generation stream: %w", err)
			}
			s.logger.Warn("generation stream ended early", zap.Error(err))
			break
		}
		buf.WriteString(tok)
	}

	return buf.String(), nil
}
