package db

// TagMatch constrains a TAG field. Multiple values form an OR within the
// field (multi-value membership).
type TagMatch struct {
	Field  string
	Values []string
}

// Predicate is the pushdown pre-filter applied before KNN scoring.
type Predicate struct {
	Must    []TagMatch
	MustNot []TagMatch
}

// IsEmpty reports whether the predicate has no conditions.
func (p Predicate) IsEmpty() bool {
	return len(p.Must) == 0 && len(p.MustNot) == 0
}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Predicate    Predicate
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit from a search, ascending by Distance.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
