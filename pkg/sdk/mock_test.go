package calmbox

import (
	"context"

	"github.com/calmbox/calmbox/internal/domain"
	retrievaluc "github.com/calmbox/calmbox/internal/usecase/retrieval"
	sessionuc "github.com/calmbox/calmbox/internal/usecase/session"
)

// --- Embedder mock ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

// --- sessionUseCase mock ---

type mockSessionUC struct {
	handleFn func(ctx context.Context, userText string, events []string) (sessionuc.Turn, error)
}

func (m *mockSessionUC) Handle(ctx context.Context, userText string, events []string) (sessionuc.Turn, error) {
	return m.handleFn(ctx, userText, events)
}

// --- retrievalUseCase mock ---

type mockRetrievalUC struct {
	searchFn     func(ctx context.Context, query string, p retrievaluc.Params) ([]domain.SearchResult, error)
	autoSearchFn func(ctx context.Context, query string, topK, autoTopTags int) ([]domain.SearchResult, error)
	byIDsFn      func(ctx context.Context, ids []string) ([]domain.Chunk, error)
}

func (m *mockRetrievalUC) Search(
	ctx context.Context, query string, p retrievaluc.Params,
) ([]domain.SearchResult, error) {
	return m.searchFn(ctx, query, p)
}

func (m *mockRetrievalUC) AutoSearch(
	ctx context.Context, query string, topK, autoTopTags int,
) ([]domain.SearchResult, error) {
	return m.autoSearchFn(ctx, query, topK, autoTopTags)
}

func (m *mockRetrievalUC) ByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	return m.byIDsFn(ctx, ids)
}
