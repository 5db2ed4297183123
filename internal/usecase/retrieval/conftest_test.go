package retrieval

import (
	"context"

	"github.com/calmbox/calmbox/internal/domain"
)

type mockRepository struct {
	pool      []domain.SearchResult
	chunks    []domain.Chunk
	err       error
	gotK      int
	gotFilter domain.ChunkFilter
	gotIDs    []string
}

func (m *mockRepository) SearchKNN(_ context.Context, _ []float32, k int, f domain.ChunkFilter) ([]domain.SearchResult, error) {
	m.gotK = k
	m.gotFilter = f
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.SearchResult, len(m.pool))
	copy(out, m.pool)
	return out, nil
}

func (m *mockRepository) FetchByIDs(_ context.Context, ids []string) ([]domain.Chunk, error) {
	m.gotIDs = ids
	return m.chunks, m.err
}

type mockEmbedder struct {
	err   error
	calls int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}, TotalTokens: 3}, nil
}

type mockRouter struct {
	result     domain.RouteResult
	gotQuery   string
	gotTopTags int
}

func (m *mockRouter) Route(query string, topTags int) domain.RouteResult {
	m.gotQuery = query
	m.gotTopTags = topTags
	return m.result
}

func result(id, group string, distance, quality float64, status string) domain.SearchResult {
	return domain.SearchResult{
		Chunk: domain.Chunk{
			ChunkID:      id,
			GroupID:      group,
			QualityScore: quality,
			Status:       status,
		},
		Distance: distance,
	}
}
