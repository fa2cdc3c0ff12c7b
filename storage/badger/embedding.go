package badger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chunkline/core"
	"github.com/poiesic/chunkline/storage"
)

// EmbeddingRepository implements storage.EmbeddingCache for BadgerDB.
type EmbeddingRepository struct {
	backend *Backend
	owned   bool
}

var _ storage.EmbeddingCache = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository on an open backend.
// Closing the repository leaves the backend open.
func NewEmbeddingRepository(backend *Backend) (*EmbeddingRepository, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend required")
	}
	return &EmbeddingRepository{backend: backend}, nil
}

// OpenEmbeddingCache opens a backend at path and returns a cache that owns it.
func OpenEmbeddingCache(path string) (storage.EmbeddingCache, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return &EmbeddingRepository{backend: backend, owned: true}, nil
}

// Close closes the backend when the repository owns it.
func (r *EmbeddingRepository) Close() error {
	if r.owned && !r.backend.IsClosed() {
		return r.backend.Close()
	}
	return nil
}

// GetEmbedding returns the cached vector for key under model.
func (r *EmbeddingRepository) GetEmbedding(ctx context.Context, key core.ID, model string) ([]float32, error) {
	if r.backend.IsClosed() {
		return nil, storage.ErrStorageClosed
	}

	var entry *storage.CacheEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(model, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			entry, err = storage.UnmarshalCacheEntry(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}

	if entry.Model != model {
		return nil, fmt.Errorf("%w: want %s, found %s", storage.ErrModelMismatch, model, entry.Model)
	}
	return entry.Vector, nil
}

// PutEmbedding stores vector for key under model.
func (r *EmbeddingRepository) PutEmbedding(ctx context.Context, key core.ID, model string, vector []float32) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}

	value := storage.MarshalCacheEntry(&storage.CacheEntry{
		Model:     model,
		Vector:    slices.Clone(vector),
		CreatedAt: time.Now().UTC(),
	})
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeEmbeddingKey(model, key), value); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
