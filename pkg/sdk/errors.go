package calmbox

import "github.com/calmbox/calmbox/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrEmptyTurn              = domain.ErrEmptyTurn
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrGeneratorError         = domain.ErrGeneratorError
)
