package retrieval

import (
	"context"

	"github.com/calmbox/calmbox/internal/domain"
)

// Repository defines the storage contract for chunk retrieval.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, k int, f domain.ChunkFilter) ([]domain.SearchResult, error)
	FetchByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error)
}

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Router routes a query onto the taxonomy for auto-filtered search.
type Router interface {
	Route(query string, topTags int) domain.RouteResult
}
