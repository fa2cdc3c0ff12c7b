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


// Package storage provides the storage abstraction layer for chunkline.
//
// The only persisted state besides pipeline output is an optional embedding
// cache. EmbeddingCache keys vectors by the content ID of the text that was
// embedded and the name of the model that embedded it, so a corpus that is
// re-chunked or re-exported does not pay for the same text twice.
//
// # Usage
//
// Open a cache on disk:
//
//	backend, err := badger.OpenBackend("/path/to/cache", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache, err := badger.NewEmbeddingRepository(backend)
//	defer cache.Close()
//
// Use in tests with in-memory storage:
//
//	cache, err := badger.NewMemoryEmbeddingRepository()
//
// # Serialization
//
// Cache values are encoded with mus-go. See MarshalCacheEntry for the layout.
//
// # Thread Safety
//
// All cache implementations must be thread-safe. Directory runs share one
// cache across concurrently processed files.
package storage
