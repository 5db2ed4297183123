package domain

import "context"

// GenOptions are per-call generation parameters.
type GenOptions struct {
	MaxTokens   int
	Temperature float32
	TopP        float32
	// Stop sequences abort generation server-side. The session uses them to
	// suppress a second JSON object in the output.
	Stop []string
}

// TokenStream is a lazy, finite sequence of generated token strings.
// Recv returns io.EOF after the last token. Close releases the underlying
// connection and is safe to call more than once.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Generator is the language-model inference contract.
type Generator interface {
	// StreamChat starts a streaming completion. Cancelling ctx terminates the
	// stream early; tokens already received remain valid.
	StreamChat(ctx context.Context, system, user string, opts GenOptions) (TokenStream, error)
	// GenerateChat is the non-streaming variant with identical semantics.
	GenerateChat(ctx context.Context, system, user string, opts GenOptions) (string, error)
}
