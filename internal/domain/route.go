package domain

// RouteResult is the outcome of routing a free-text query onto the taxonomy.
type RouteResult struct {
	// Dimension is the inferred topic dimension (aggregate score winner).
	Dimension string
	// Tags are the selected canonical tag ids, ranked by score.
	Tags []string
	// TagDims maps each selected tag to its dimension.
	TagDims map[string]string
	// Evidence maps each selected tag to the recall/override terms that hit.
	Evidence map[string][]string
	// CrossDimension is true when the selected tags span two or more dimensions.
	CrossDimension bool
}
