package taxonomy

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Entry is one tag of the taxonomy. Declaration order is load-bearing: it
// is the deterministic tie-break for routing scores.
type Entry struct {
	TagID       string   `json:"tag_id"`
	Name        string   `json:"name"`
	Dimension   string   `json:"dimension"`
	RecallTerms []string `json:"recall_terms"`
}

// Document is the taxonomy file produced by the offline KB pipeline.
type Document struct {
	DefaultDimension string                  `json:"default_dimension"`
	Entries          []Entry                 `json:"tags"`
	Aliases          map[string]aliasTargets `json:"aliases"`
}

// aliasTargets accepts either a single string or a list of candidates.
type aliasTargets []string

func (a *aliasTargets) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*a = aliasTargets{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("alias target must be a string or a list of strings")
	}
	*a = aliasTargets(many)
	return nil
}

// LoadDocument reads and validates a taxonomy document.
// Any schema violation is an error: the process must not serve with a
// partially loaded taxonomy.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}

	if err := doc.validate(); err != nil {
		return nil, fmt.Errorf("invalid taxonomy %s: %w", path, err)
	}

	return &doc, nil
}

func (d *Document) validate() error {
	if len(d.Entries) == 0 {
		return fmt.Errorf("tags list is empty")
	}

	seen := make(map[string]struct{}, len(d.Entries))
	for i := range d.Entries {
		e := &d.Entries[i]
		e.TagID = Slugify(e.TagID)
		e.Dimension = strings.TrimSpace(e.Dimension)
		if e.TagID == "" {
			return fmt.Errorf("tags[%d]: empty tag_id", i)
		}
		if e.Dimension == "" {
			return fmt.Errorf("tag %s: empty dimension", e.TagID)
		}
		if _, dup := seen[e.TagID]; dup {
			return fmt.Errorf("duplicate tag_id %s", e.TagID)
		}
		seen[e.TagID] = struct{}{}

		terms := e.RecallTerms[:0]
		for _, t := range e.RecallTerms {
			if t = strings.TrimSpace(t); t != "" {
				terms = append(terms, t)
			}
		}
		e.RecallTerms = terms
	}

	if d.DefaultDimension == "" {
		return fmt.Errorf("default_dimension is required")
	}

	return nil
}
