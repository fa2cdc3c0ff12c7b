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


package core

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// ValidateContent checks that a record has non-blank content to embed.
func ValidateContent(record *ChunkRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidChunkRecord)
	}
	if strings.TrimSpace(record.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

// ValidateChunkIndex checks that chunk_index is present and non-negative.
func ValidateChunkIndex(record *ChunkRecord) error {
	if record.ChunkIndex == nil {
		return ErrMissingChunkIndex
	}
	if *record.ChunkIndex < 0 {
		return fmt.Errorf("%w: value %d", ErrNegativeChunkIndex, *record.ChunkIndex)
	}
	return nil
}

// ValidateEmbedding checks an embedding vector.
//
// Validation rules:
//   - vector must not be empty
//   - every value must be finite (NaN and ±Inf cannot be encoded as JSON)
//   - if dimensions > 0, the vector length must equal it
func ValidateEmbedding(vector []float32, dimensions int) error {
	if len(vector) == 0 {
		return fmt.Errorf("%w: empty vector", ErrMalformedEmbedding)
	}
	if dimensions > 0 && len(vector) != dimensions {
		return fmt.Errorf("%w: expected %d dimensions, got %d", ErrMalformedEmbedding, dimensions, len(vector))
	}
	for i, v := range vector {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: non-finite value at position %d", ErrMalformedEmbedding, i)
		}
	}
	return nil
}

// MissingMetadataField returns the first recognized metadata field absent
// from meta, or "" when all are present. A JSON null counts as present,
// matching a plain key lookup.
func MissingMetadataField(meta map[string]json.RawMessage) string {
	for _, name := range MetadataFields {
		if _, ok := meta[name]; !ok {
			return name
		}
	}
	return ""
}
