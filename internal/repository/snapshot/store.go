// Package snapshot persists serialized similarity indexes in the key-value
// store so a restart can skip re-embedding the whole corpus.
package snapshot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/db"
	"github.com/cardseer/cardseer/internal/domain"
)

// store is the consumer interface for snapshot persistence (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Store reads and writes index snapshot blobs.
type Store struct {
	store     store
	keyPrefix string
	logger    *zap.Logger
}

// New creates a snapshot store. keyPrefix namespaces keys in the shared
// key-value store.
func New(s store, keyPrefix string, logger *zap.Logger) *Store {
	return &Store{
		store:     s,
		keyPrefix: keyPrefix + "index_snapshot:",
		logger:    logger,
	}
}

// Save persists a snapshot blob under the given index name.
func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	if err := s.store.Set(ctx, s.key(name), data); err != nil {
		return fmt.Errorf("save snapshot %q: %w", name, err)
	}
	s.logger.Info("Index snapshot saved",
		zap.String("index", name),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Load returns the snapshot blob for the given index name, or
// domain.ErrNotFound if none was saved.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	data, err := s.store.Get(ctx, s.key(name))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return nil, fmt.Errorf("snapshot %q: %w", name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load snapshot %q: %w", name, err)
	}
	return data, nil
}

func (s *Store) key(name string) string {
	return s.keyPrefix + name
}
