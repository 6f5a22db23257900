package cardseer

import "github.com/cardseer/cardseer/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound               = domain.ErrNotFound
	ErrIndexNotInitialized    = domain.ErrIndexNotInitialized
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrMalformedEntry         = domain.ErrMalformedEntry
	ErrInvalidRole            = domain.ErrInvalidRole
	ErrSnapshotCorrupt        = domain.ErrSnapshotCorrupt
)
