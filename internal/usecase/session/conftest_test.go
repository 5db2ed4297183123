package session

import (
	"context"
	"io"

	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/protocol"
	"github.com/calmbox/calmbox/internal/usecase/retrieval"
)

type mockRouter struct {
	result domain.RouteResult
}

func (m *mockRouter) Route(string, int) domain.RouteResult { return m.result }

type mockProtocols struct {
	hit *protocol.Protocol
}

func (m *mockProtocols) Match(string, []string, []string) *protocol.Protocol { return m.hit }

type mockRetriever struct {
	results   []domain.SearchResult
	err       error
	calls     int
	gotParams retrieval.Params
}

func (m *mockRetriever) Search(_ context.Context, _ string, p retrieval.Params) ([]domain.SearchResult, error) {
	m.calls++
	m.gotParams = p
	return m.results, m.err
}

// allowGuard passes every text through unchanged.
type allowGuard struct{}

func (allowGuard) Check(text string) domain.GuardResult {
	return domain.GuardResult{Level: domain.GuardAllow, SafeText: text}
}

// scriptedGuard returns a fixed verdict for every check.
type scriptedGuard struct {
	result domain.GuardResult
	gotIn  []string
}

func (g *scriptedGuard) Check(text string) domain.GuardResult {
	g.gotIn = append(g.gotIn, text)
	return g.result
}

type screenCall struct {
	text string
	ms   int
}

// recorderSink captures every outbound action.
type recorderSink struct {
	spoken  []string
	leds    []domain.LEDPattern
	screens []screenCall
}

func (s *recorderSink) Speak(text string)          { s.spoken = append(s.spoken, text) }
func (s *recorderSink) LED(p domain.LEDPattern)    { s.leds = append(s.leds, p) }
func (s *recorderSink) Screen(text string, ms int) { s.screens = append(s.screens, screenCall{text, ms}) }

// mockStream replays scripted tokens, then finishes with finalErr (io.EOF by
// default).
type mockStream struct {
	tokens   []string
	finalErr error
	pos      int
	closed   bool
}

func (s *mockStream) Recv() (string, error) {
	if s.pos >= len(s.tokens) {
		if s.finalErr != nil {
			return "", s.finalErr
		}
		return "", io.EOF
	}
	tok := s.tokens[s.pos]
	s.pos++
	return tok, nil
}

func (s *mockStream) Close() { s.closed = true }

type mockGenerator struct {
	stream   *mockStream
	startErr error
	calls    int
	gotSys   string
	gotUser  string
	gotOpts  domain.GenOptions
}

func (m *mockGenerator) StreamChat(_ context.Context, system, user string, opts domain.GenOptions) (domain.TokenStream, error) {
	m.calls++
	m.gotSys = system
	m.gotUser = user
	m.gotOpts = opts
	if m.startErr != nil {
		return nil, m.startErr
	}
	return m.stream, nil
}

func (m *mockGenerator) GenerateChat(_ context.Context, _, _ string, _ domain.GenOptions) (string, error) {
	return "", nil
}
