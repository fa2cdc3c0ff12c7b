package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Top-level field names of a ChunkRecord.
const (
	fieldChunkIndex    = "chunk_index"
	fieldContent       = "content"
	fieldSourceTitle   = "source_title"
	fieldAuthor        = "author"
	fieldYear          = "year"
	fieldGenre         = "genre"
	fieldStructurePath = "structure_path"
	fieldEmbedding     = "embedding"
	fieldMetadata      = "metadata"
)

var nullJSON = []byte("null")

// UnmarshalJSON decodes a chunk from a JSON object.
//
// Well-typed known fields are decoded into their struct fields. A known field
// with an unexpected shape is kept verbatim in Extra, so that later stages see
// it as missing while the enrich stage still writes it back unchanged. The one
// exception is embedding: a non-null embedding that is not an array of numbers
// is rejected, because it can neither be trusted nor safely recomputed. A valid
// embedding keeps its source text.
func (r *ChunkRecord) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if fields == nil {
		return ErrNotAnObject
	}

	*r = ChunkRecord{Line: r.Line, Raw: r.Raw}
	extra := make(map[string]json.RawMessage)

	for key, value := range fields {
		switch key {
		case fieldChunkIndex:
			var idx int
			if err := json.Unmarshal(value, &idx); err != nil || isNull(value) {
				extra[key] = value
				continue
			}
			r.ChunkIndex = &idx
		case fieldContent:
			var content string
			if err := json.Unmarshal(value, &content); err != nil || isNull(value) {
				extra[key] = value
				continue
			}
			r.Content = content
		case fieldSourceTitle:
			r.SourceTitle = value
		case fieldAuthor:
			r.Author = value
		case fieldYear:
			r.Year = value
		case fieldGenre:
			r.Genre = value
		case fieldStructurePath:
			r.StructurePath = value
		case fieldEmbedding:
			if isNull(value) {
				continue
			}
			vector, err := ParseVector(value)
			if err != nil {
				return err
			}
			r.Embedding = vector
		case fieldMetadata:
			var meta map[string]json.RawMessage
			if err := json.Unmarshal(value, &meta); err != nil || meta == nil {
				extra[key] = value
				continue
			}
			r.Metadata = meta
		default:
			extra[key] = value
		}
	}

	if len(extra) > 0 {
		r.Extra = extra
	}
	return nil
}

// MarshalJSON encodes the chunk with known fields first, in schema order,
// followed by preserved unknown fields in key order.
func (r ChunkRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	written := make(map[string]bool)

	emit := func(key string, value any) error {
		encoded, err := marshalNoEscape(value)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", key, err)
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		keyBytes, _ := marshalNoEscape(key)
		buf.Write(keyBytes)
		buf.WriteByte(':')
		buf.Write(encoded)
		written[key] = true
		return nil
	}

	type field struct {
		key     string
		present bool
		value   func() any
	}
	known := []field{
		{fieldChunkIndex, r.ChunkIndex != nil, func() any { return *r.ChunkIndex }},
		{fieldContent, r.Content != "", func() any { return r.Content }},
		{fieldSourceTitle, r.SourceTitle != nil, func() any { return r.SourceTitle }},
		{fieldAuthor, r.Author != nil, func() any { return r.Author }},
		{fieldYear, r.Year != nil, func() any { return r.Year }},
		{fieldGenre, r.Genre != nil, func() any { return r.Genre }},
		{fieldStructurePath, r.StructurePath != nil, func() any { return r.StructurePath }},
		{fieldEmbedding, r.Embedding != nil, func() any { return r.Embedding }},
		{fieldMetadata, r.Metadata != nil, func() any { return r.Metadata }},
	}
	for _, f := range known {
		if !f.present {
			continue
		}
		if err := emit(f.key, f.value()); err != nil {
			return nil, err
		}
	}

	for _, key := range slices.Sorted(maps.Keys(r.Extra)) {
		if written[key] {
			continue
		}
		if err := emit(key, r.Extra[key]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape encodes v without HTML escaping and without the trailing
// newline json.Encoder appends.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), nullJSON)
}
