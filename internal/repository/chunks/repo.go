// Package chunks adapts the vector store into the chunk retrieval contract.
package chunks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/calmbox/calmbox/internal/db"
	"github.com/calmbox/calmbox/internal/domain"
)

// store is the consumer interface for chunk reads (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// tagSeparator joins the multi-value tags field in storage. The index
// declares the same separator on the TAG field, so an OR match is plain
// membership.
const tagSeparator = "|"

var returnFields = []string{
	"display_id", "group_id", "text", "dimension", "risk",
	"status", "quality_score", "tags", "fingerprint", "__vector_score",
}

// Repo reads chunk rows and runs filtered KNN over the parallel vector index.
type Repo struct {
	store     store
	keyPrefix string
	indexName string
}

// New creates a chunk repository. keyPrefix is the storage namespace, e.g.
// "calmbox:".
func New(s store, keyPrefix string) *Repo {
	return &Repo{
		store:     s,
		keyPrefix: keyPrefix + "chunks:",
		indexName: keyPrefix + "chunks:idx",
	}
}

// SearchKNN fetches the k nearest chunks by vector distance, applying the
// filter as index pushdown. Results come back ascending by raw distance;
// FinalDistance is left for the reranker.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, k int, f domain.ChunkFilter,
) ([]domain.SearchResult, error) {
	q := &db.KNNQuery{
		IndexName:    r.indexName,
		Predicate:    buildPredicate(f),
		Vector:       vector,
		K:            k,
		ReturnFields: returnFields,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]domain.SearchResult, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		chunkID := strings.TrimPrefix(entry.Key, r.keyPrefix)
		results = append(results, domain.SearchResult{
			Chunk:    parseChunk(chunkID, entry.Fields),
			Distance: entry.Distance,
		})
	}
	return results, nil
}

// FetchByIDs loads chunk rows by id. Missing ids are skipped, not errors:
// used_ids reported by the generator may reference pruned chunks.
func (r *Repo) FetchByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.keyPrefix + id
	}

	rows, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("fetch chunks: %w", err)
	}

	out := make([]domain.Chunk, 0, len(rows))
	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		out = append(out, parseChunk(ids[i], fields))
	}
	return out, nil
}

// buildPredicate maps the chunk filter onto index TAG conditions.
func buildPredicate(f domain.ChunkFilter) db.Predicate {
	var p db.Predicate

	if f.StatusExclude != "" {
		p.MustNot = append(p.MustNot, db.TagMatch{Field: "status", Values: []string{f.StatusExclude}})
	}
	if f.Dimension != "" {
		p.Must = append(p.Must, db.TagMatch{Field: "dimension", Values: []string{f.Dimension}})
	}
	if len(f.Tags) > 0 {
		p.Must = append(p.Must, db.TagMatch{Field: "tags", Values: f.Tags})
	}

	return p
}

func parseChunk(chunkID string, fields map[string]string) domain.Chunk {
	quality, _ := strconv.ParseFloat(fields["quality_score"], 64)

	var tags []string
	for _, t := range strings.Split(fields["tags"], tagSeparator) {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}

	return domain.Chunk{
		ChunkID:      chunkID,
		DisplayID:    fields["display_id"],
		GroupID:      fields["group_id"],
		Text:         fields["text"],
		Dimension:    fields["dimension"],
		Risk:         fields["risk"],
		Status:       fields["status"],
		QualityScore: quality,
		Tags:         tags,
		Fingerprint:  fields["fingerprint"],
	}
}
