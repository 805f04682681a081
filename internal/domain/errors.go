package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidQuery signals malformed or missing request input.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	// Callers treat it as recoverable and fall back to lexical search.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrExpansionUnavailable signals that AI query expansion is not
	// configured or the provider call failed. Always best-effort.
	ErrExpansionUnavailable = errors.New("query expansion unavailable")
)
