package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrIndexNotInitialized signals a query against an index with no vectors.
	ErrIndexNotInitialized = errors.New("similarity index not initialized")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrMalformedEntry signals a catalog entry missing required fields.
	ErrMalformedEntry = errors.New("malformed catalog entry")
	// ErrInvalidRole signals an unknown chat role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSnapshotCorrupt signals an index snapshot that cannot be decoded.
	ErrSnapshotCorrupt = errors.New("index snapshot corrupt")
)
