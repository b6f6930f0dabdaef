package domain

import "errors"

var (
	// ErrNotFound signals a missing resource (e.g. a title unknown to the metadata provider).
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a recommendation request outside the accepted bounds.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoSeedData signals that the seed title has no indexed profiles.
	ErrNoSeedData = errors.New("no seed profiles")
	// ErrStoreUnavailable signals a failed or unreachable vector store call.
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrMetadataUnavailable signals a failed metadata provider call.
	ErrMetadataUnavailable = errors.New("metadata unavailable")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
