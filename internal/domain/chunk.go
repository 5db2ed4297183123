package domain

// Chunk lifecycle states as stored in the knowledge base.
const (
	StatusCandidate = "candidate"
	StatusEnabled   = "enabled"
	StatusDisabled  = "disabled"
)

// Chunk is one retrievable unit of vetted knowledge text.
// Rows are written by the offline KB pipeline; the runtime only reads them.
type Chunk struct {
	ChunkID      string
	DisplayID    string
	GroupID      string
	Text         string
	Dimension    string
	Risk         string
	Status       string
	QualityScore float64
	Tags         []string
	Fingerprint  string
}

// ChunkFilter is the pushdown filter for chunk retrieval. Zero values
// disable the corresponding predicate.
type ChunkFilter struct {
	// Dimension keeps only chunks of one topic dimension.
	Dimension string
	// Tags keeps chunks carrying any of the listed canonical tags.
	Tags []string
	// StatusExclude drops chunks in the given lifecycle state.
	StatusExclude string
}

// SearchResult is a chunk scored by a vector query.
// Distance is the raw vector distance (lower = closer); FinalDistance is
// the quality/enablement-adjusted value used for ordering.
type SearchResult struct {
	Chunk
	Distance      float64
	FinalDistance float64
}
