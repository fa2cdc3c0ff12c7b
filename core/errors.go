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

import "errors"

// Domain validation errors
var (
	// ErrInvalidChunkRecord indicates a ChunkRecord failed validation.
	ErrInvalidChunkRecord = errors.New("invalid chunk record")

	// ErrNotAnObject indicates a line decoded to something other than a JSON object.
	ErrNotAnObject = errors.New("record is not a JSON object")

	// ErrEmptyContent indicates the content field is missing or empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrMissingChunkIndex indicates chunk_index is absent or not an integer.
	ErrMissingChunkIndex = errors.New("chunk_index missing or not an integer")

	// ErrNegativeChunkIndex indicates chunk_index is below zero.
	ErrNegativeChunkIndex = errors.New("chunk_index cannot be negative")

	// ErrMissingField indicates a required top-level field is absent.
	ErrMissingField = errors.New("required field missing")

	// ErrMissingMetadata indicates the metadata object is absent.
	ErrMissingMetadata = errors.New("metadata missing")

	// ErrMissingMetadataField indicates a required metadata field is absent.
	ErrMissingMetadataField = errors.New("required metadata field missing")

	// ErrMissingEmbedding indicates the record has no embedding.
	ErrMissingEmbedding = errors.New("embedding missing")

	// ErrMalformedEmbedding indicates an embedding that is empty, non-numeric or non-finite.
	ErrMalformedEmbedding = errors.New("malformed embedding")
)
