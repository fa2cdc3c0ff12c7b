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
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

const float32Size = 4

// MarshalCacheEntry serializes a CacheEntry to bytes.
// Layout: model, vector length, raw float32 values, creation time in unix microseconds.
func MarshalCacheEntry(entry *CacheEntry) []byte {
	buf := make([]byte, sizeCacheEntry(entry))
	n := ord.String.Marshal(entry.Model, buf)
	n += varint.Uint64.Marshal(uint64(len(entry.Vector)), buf[n:])
	for _, v := range entry.Vector {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	varint.Int64.Marshal(entry.CreatedAt.UnixMicro(), buf[n:])
	return buf
}

func sizeCacheEntry(entry *CacheEntry) int {
	size := ord.String.Size(entry.Model)
	size += varint.Uint64.Size(uint64(len(entry.Vector)))
	size += len(entry.Vector) * float32Size
	size += varint.Int64.Size(entry.CreatedAt.UnixMicro())
	return size
}

// UnmarshalCacheEntry deserializes a CacheEntry from bytes.
func UnmarshalCacheEntry(data []byte) (*CacheEntry, error) {
	model, n, err := ord.String.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: model: %w", ErrSerializationFailed, err)
	}

	length, m, err := varint.Uint64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: vector length: %w", ErrSerializationFailed, err)
	}
	n += m
	if length > uint64(len(data[n:])/float32Size) {
		return nil, fmt.Errorf("%w: vector of %d values", ErrTruncatedData, length)
	}

	vector := make([]float32, length)
	for i := range vector {
		vector[i], m, err = raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: vector[%d]: %w", ErrSerializationFailed, i, err)
		}
		n += m
	}

	micros, _, err := varint.Int64.Unmarshal(data[n:])
	if err != nil {
		return nil, fmt.Errorf("%w: created_at: %w", ErrSerializationFailed, err)
	}

	return &CacheEntry{
		Model:     model,
		Vector:    vector,
		CreatedAt: time.UnixMicro(micros).UTC(),
	}, nil
}
