// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"context"
	"time"

	"github.com/poiesic/chunkline/core"
)

// CacheEntry is a stored embedding vector together with the model that produced it.
type CacheEntry struct {
	Model     string
	Vector    []float32
	CreatedAt time.Time
}

// EmbeddingCache stores embedding vectors keyed by content ID and model name.
// Implementations must be thread-safe and support concurrent access.
type EmbeddingCache interface {
	// GetEmbedding returns the cached vector for key under model.
	// Returns ErrNotFound if nothing is cached.
	GetEmbedding(ctx context.Context, key core.ID, model string) ([]float32, error)

	// PutEmbedding stores vector for key under model, replacing any earlier value.
	PutEmbedding(ctx context.Context, key core.ID, model string, vector []float32) error

	// Close releases resources held by the cache.
	Close() error
}
