package calmbox

import (
	"context"
	"fmt"
	"time"
)

// Retrieve routes the query and returns the diversified top results.
// topK <= 0 uses the default of 5.
func (c *Client) Retrieve(ctx context.Context, query string, topK int) (_ []SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("retrieve", start, err) }()

	results, err := c.retrievalSvc.AutoSearch(ctx, query, topK, 0)
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = searchResultFromDomain(r)
	}
	return out, nil
}

// ChunksByIDs loads chunk rows directly. Missing ids are skipped.
func (c *Client) ChunksByIDs(ctx context.Context, ids []string) (_ []Chunk, err error) {
	start := time.Now()
	defer func() { c.obs.observe("chunks_by_ids", start, err) }()

	chunks, err := c.retrievalSvc.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("chunks by ids: %w", err)
	}

	out := make([]Chunk, len(chunks))
	for i, ch := range chunks {
		out[i] = chunkFromDomain(ch)
	}
	return out, nil
}
