package session

import (
	"context"

	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/protocol"
	"github.com/calmbox/calmbox/internal/usecase/retrieval"
)

// Router routes the utterance onto the taxonomy once per turn.
type Router interface {
	Route(query string, topTags int) domain.RouteResult
}

// Protocols short-circuits high-priority conditions to fixed responses.
type Protocols interface {
	Match(text string, routedTags, events []string) *protocol.Protocol
}

// Retriever builds the grounding context for generation.
type Retriever interface {
	Search(ctx context.Context, query string, p retrieval.Params) ([]domain.SearchResult, error)
}

// Guard classifies candidate outbound text.
type Guard interface {
	Check(text string) domain.GuardResult
}
