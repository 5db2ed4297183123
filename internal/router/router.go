package router

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/calmbox/calmbox/internal/domain"
	"github.com/calmbox/calmbox/internal/taxonomy"
)

// forceWeight guarantees a forced tag lands in the top selection.
const forceWeight = 99.0

// Router maps a free-text query to a topic dimension and a ranked set of
// canonical tags, with the recall/override terms that matched as evidence.
// Immutable after construction.
type Router struct {
	entries    []taxonomy.Entry
	order      map[string]int // tag_id -> declaration index, the score tie-break
	dims       map[string]string
	dimOrder   map[string]int // dimension -> first declaration index
	defaultDim string
	rules      []OverrideRule
	reg        *taxonomy.Registry
}

// New builds a router from a validated taxonomy document and override rules.
func New(doc *taxonomy.Document, rules []OverrideRule, reg *taxonomy.Registry) *Router {
	r := &Router{
		entries:    doc.Entries,
		order:      make(map[string]int, len(doc.Entries)),
		dims:       make(map[string]string, len(doc.Entries)),
		dimOrder:   make(map[string]int),
		defaultDim: doc.DefaultDimension,
		rules:      rules,
		reg:        reg,
	}
	for i, e := range doc.Entries {
		r.order[e.TagID] = i
		r.dims[e.TagID] = e.Dimension
		if _, ok := r.dimOrder[e.Dimension]; !ok {
			r.dimOrder[e.Dimension] = i
		}
	}
	return r
}

// Route scores every taxonomy tag against the query and picks the top
// topTags ids. With no signal at all it returns the default dimension with
// an empty tag list, which disables tag filtering downstream without
// disabling dimension inference.
func (r *Router) Route(query string, topTags int) domain.RouteResult {
	q := strings.TrimSpace(query)
	if q == "" {
		return r.noSignal()
	}

	scores := make(map[string]float64)
	hits := make(map[string][]string)

	// 1) recall-term matching; longer terms weigh more so one-rune terms
	// like 痛 do not dominate
	for _, e := range r.entries {
		var score float64
		var terms []string
		for _, term := range e.RecallTerms {
			if term != "" && strings.Contains(q, term) {
				terms = append(terms, term)
				n := utf8.RuneCountInString(term)
				if n > 8 {
					n = 8
				}
				score += 1.0 + float64(n)*0.08
			}
		}
		if score > 0 {
			scores[e.TagID] += score
			hits[e.TagID] = append(hits[e.TagID], terms...)
		}
	}

	// 2) override rules, in declaration order
	r.applyOverrides(q, scores, hits)

	if len(scores) == 0 {
		return r.noSignal()
	}

	// 3) top-N by descending score; taxonomy declaration order breaks ties
	if topTags < 1 {
		topTags = 1
	}
	ranked := make([]string, 0, len(scores))
	for tid := range scores {
		ranked = append(ranked, tid)
	}
	sort.Slice(ranked, func(i, j int) bool {
		si, sj := scores[ranked[i]], scores[ranked[j]]
		if si != sj {
			return si > sj
		}
		return r.order[ranked[i]] < r.order[ranked[j]]
	})
	if len(ranked) > topTags {
		ranked = ranked[:topTags]
	}

	// 4) winning dimension by aggregate score over ALL scored tags, not just
	// the picked ones
	dimScore := make(map[string]float64)
	for tid, sc := range scores {
		dimScore[r.dims[tid]] += sc
	}
	bestDim := r.defaultDim
	bestScore := -1.0
	for dim, sc := range dimScore {
		if sc > bestScore || (sc == bestScore && r.dimOrder[dim] < r.dimOrder[bestDim]) {
			bestDim = dim
			bestScore = sc
		}
	}

	// 5) cross-dimension when the picked tags span two or more dimensions
	pickedDims := make(map[string]struct{}, len(ranked))
	tagDims := make(map[string]string, len(ranked))
	evidence := make(map[string][]string, len(ranked))
	for _, tid := range ranked {
		dim := r.dims[tid]
		pickedDims[dim] = struct{}{}
		tagDims[tid] = dim
		evidence[tid] = hits[tid]
	}

	return domain.RouteResult{
		Dimension:      bestDim,
		Tags:           ranked,
		TagDims:        tagDims,
		Evidence:       evidence,
		CrossDimension: len(pickedDims) >= 2,
	}
}

// applyOverrides adds boost weights and force weights for rules whose
// literal patterns occur in the query. Tags pass through canonicalization
// and must be known to the taxonomy.
func (r *Router) applyOverrides(q string, scores map[string]float64, hits map[string][]string) {
	for _, rule := range r.rules {
		var hitTerms []string
		for _, p := range rule.Patterns {
			if p != "" && strings.Contains(q, p) {
				hitTerms = append(hitTerms, p)
			}
		}
		if len(hitTerms) == 0 {
			continue
		}

		for rawTag, w := range rule.BoostTags {
			canon := r.reg.Canonicalize(rawTag)
			if canon == "" {
				continue
			}
			if _, known := r.dims[canon]; !known {
				continue
			}
			scores[canon] += w
			hits[canon] = append(hits[canon], hitTerms...)
		}

		for _, rawTag := range rule.ForceTags {
			canon := r.reg.Canonicalize(rawTag)
			if canon == "" {
				continue
			}
			if _, known := r.dims[canon]; !known {
				continue
			}
			scores[canon] += forceWeight
			hits[canon] = append(hits[canon], hitTerms...)
		}
	}
}

func (r *Router) noSignal() domain.RouteResult {
	return domain.RouteResult{
		Dimension: r.defaultDim,
		Tags:      []string{},
		TagDims:   map[string]string{},
		Evidence:  map[string][]string{},
	}
}
