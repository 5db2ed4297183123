// Package retrieval implements quality-aware, diversity-capped vector
// retrieval over the pre-vetted knowledge chunks.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/calmbox/calmbox/internal/domain"
)

// maxPool caps the candidate pool fetched from the store regardless of the
// requested multiplier.
const maxPool = 300

// Params tune one search call.
type Params struct {
	TopK     int
	PoolMult int
	// Dimension, when non-empty, restricts candidates to one topic dimension.
	Dimension string
	// Tags, when non-empty, keep only chunks carrying any of the tags.
	Tags []string
	// StatusExclude defaults to the disabled lifecycle state.
	StatusExclude string
	// MaxPerGroup caps results per provenance group; defaults to 1.
	MaxPerGroup int
}

func (p *Params) applyDefaults() {
	if p.TopK <= 0 {
		p.TopK = 5
	}
	if p.PoolMult <= 0 {
		p.PoolMult = 8
	}
	if p.StatusExclude == "" {
		p.StatusExclude = domain.StatusDisabled
	}
	if p.MaxPerGroup <= 0 {
		p.MaxPerGroup = 1
	}
}

// Service handles chunk retrieval: embed, filtered KNN, rerank, diversify.
type Service struct {
	repo   Repository
	embed  Embedder
	router Router
	policy Policy
}

// New creates a retrieval service.
func New(repo Repository, embed Embedder, router Router, policy Policy) *Service {
	return &Service{repo: repo, embed: embed, router: router, policy: policy}
}

// Search embeds the query, pulls an over-fetched candidate pool with the
// filter pushed down to the index, reranks by quality-adjusted distance and
// greedily diversifies by provenance group. When the group cap leaves the
// result short, the remaining pool backfills ignoring the cap.
func (s *Service) Search(ctx context.Context, query string, p Params) ([]domain.SearchResult, error) {
	p.applyDefaults()

	emb, err := s.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	kPool := p.TopK * p.PoolMult
	if kPool < p.TopK {
		kPool = p.TopK
	}
	if kPool > maxPool {
		kPool = maxPool
	}

	pool, err := s.repo.SearchKNN(ctx, emb.Embedding, kPool, domain.ChunkFilter{
		Dimension:     p.Dimension,
		Tags:          p.Tags,
		StatusExclude: p.StatusExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}

	for i := range pool {
		pool[i].FinalDistance = finalDistance(pool[i].Distance, pool[i].QualityScore, pool[i].Status, s.policy)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return pool[i].FinalDistance < pool[j].FinalDistance
	})

	return diversify(pool, p.TopK, p.MaxPerGroup), nil
}

// AutoSearch routes the query first and delegates to Search. A cross-
// dimension route unlocks the dimension filter and keeps only the tags.
func (s *Service) AutoSearch(ctx context.Context, query string, topK, autoTopTags int) ([]domain.SearchResult, error) {
	rr := s.router.Route(query, autoTopTags)

	dim := rr.Dimension
	if rr.CrossDimension {
		dim = ""
	}

	return s.Search(ctx, query, Params{
		TopK:      topK,
		Dimension: dim,
		Tags:      rr.Tags,
	})
}

// ByIDs loads chunk rows directly, for the scoring closed loop.
func (s *Service) ByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	return s.repo.FetchByIDs(ctx, ids)
}

// diversify greedily picks up to topK results with at most maxPerGroup per
// provenance group, then backfills from the sorted remainder ignoring the
// cap. Chunks without a group are never capped.
func diversify(pool []domain.SearchResult, topK, maxPerGroup int) []domain.SearchResult {
	picked := make([]domain.SearchResult, 0, topK)
	groupCount := make(map[string]int)

	for _, r := range pool {
		if len(picked) >= topK {
			break
		}
		gid := r.GroupID
		if gid != "" && groupCount[gid] >= maxPerGroup {
			continue
		}
		picked = append(picked, r)
		if gid != "" {
			groupCount[gid]++
		}
	}

	if len(picked) < topK {
		seen := make(map[string]struct{}, len(picked))
		for _, r := range picked {
			seen[r.ChunkID] = struct{}{}
		}
		for _, r := range pool {
			if len(picked) >= topK {
				break
			}
			if _, dup := seen[r.ChunkID]; dup {
				continue
			}
			picked = append(picked, r)
			seen[r.ChunkID] = struct{}{}
		}
	}

	return picked
}
