package calmbox

import "github.com/calmbox/calmbox/internal/domain"

// Turn outcomes.
const (
	OutcomeProtocol  = "protocol"
	OutcomeGenerated = "generated"
)

// TurnResult is the outcome of one handled utterance.
type TurnResult struct {
	// Reply is the final guarded, length-capped text.
	Reply string
	// Outcome is OutcomeProtocol or OutcomeGenerated.
	Outcome string
	// Protocol is the matched protocol id for protocol outcomes.
	Protocol string
	// UsedIDs are the chunk ids the generator claims to have used.
	UsedIDs []string
}

// Chunk is one pre-vetted knowledge snippet.
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
}

// SearchResult is a chunk with its raw and quality-adjusted distances.
// Lower is better for both.
type SearchResult struct {
	Chunk
	Distance      float64
	FinalDistance float64
}

func chunkFromDomain(c domain.Chunk) Chunk {
	return Chunk{
		ChunkID:      c.ChunkID,
		DisplayID:    c.DisplayID,
		GroupID:      c.GroupID,
		Text:         c.Text,
		Dimension:    c.Dimension,
		Risk:         c.Risk,
		Status:       c.Status,
		QualityScore: c.QualityScore,
		Tags:         c.Tags,
	}
}

func searchResultFromDomain(r domain.SearchResult) SearchResult {
	return SearchResult{
		Chunk:         chunkFromDomain(r.Chunk),
		Distance:      r.Distance,
		FinalDistance: r.FinalDistance,
	}
}
