package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrGeneratorError signals a language-model provider failure.
	ErrGeneratorError = errors.New("generator error")
	// ErrEmptyTurn signals a blank user utterance.
	ErrEmptyTurn = errors.New("empty turn")
)
