package snapshot

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/cardseer/cardseer/internal/db"
	"github.com/cardseer/cardseer/internal/domain"
)

type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) Set(ctx context.Context, key string, value []byte) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value)
	}
	return nil
}

func TestSave_UsesNamespacedKey(t *testing.T) {
	ms := &mockKVStore{}
	var gotKey string
	ms.setFn = func(_ context.Context, key string, _ []byte) error {
		gotKey = key
		return nil
	}

	s := New(ms, "cardseer:", zap.NewNop())
	if err := s.Save(context.Background(), "cards", []byte("blob")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotKey != "cardseer:index_snapshot:cards" {
		t.Errorf("key: got %q", gotKey)
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := New(&mockKVStore{}, "cardseer:", zap.NewNop())

	_, err := s.Load(context.Background(), "cards")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoad_Success(t *testing.T) {
	ms := &mockKVStore{}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return []byte("blob"), nil
	}

	s := New(ms, "cardseer:", zap.NewNop())
	data, err := s.Load(context.Background(), "cards")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "blob" {
		t.Errorf("got %q, want blob", data)
	}
}

func TestLoad_StoreError(t *testing.T) {
	ms := &mockKVStore{}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, &db.Error{Op: db.OpGet, Err: context.DeadlineExceeded}
	}

	s := New(ms, "cardseer:", zap.NewNop())
	_, err := s.Load(context.Background(), "cards")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatal("store error must not map to ErrNotFound")
	}
}
