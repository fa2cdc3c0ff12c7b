package core

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		record  *ChunkRecord
		wantErr error
	}{
		{name: "valid content", record: &ChunkRecord{Content: "text"}},
		{name: "nil record", record: nil, wantErr: ErrInvalidChunkRecord},
		{name: "empty content", record: &ChunkRecord{}, wantErr: ErrEmptyContent},
		{name: "whitespace content", record: &ChunkRecord{Content: " \n\t"}, wantErr: ErrEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent(tt.record)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunkIndex(t *testing.T) {
	zero, negative := 0, -1

	if err := ValidateChunkIndex(&ChunkRecord{ChunkIndex: &zero}); err != nil {
		t.Errorf("unexpected error for index 0: %v", err)
	}
	if err := ValidateChunkIndex(&ChunkRecord{}); !errors.Is(err, ErrMissingChunkIndex) {
		t.Errorf("error = %v, want ErrMissingChunkIndex", err)
	}
	if err := ValidateChunkIndex(&ChunkRecord{ChunkIndex: &negative}); !errors.Is(err, ErrNegativeChunkIndex) {
		t.Errorf("error = %v, want ErrNegativeChunkIndex", err)
	}
}

func TestValidateEmbedding(t *testing.T) {
	tests := []struct {
		name       string
		vector     []float32
		dimensions int
		wantErr    bool
	}{
		{name: "valid vector", vector: []float32{0.1, 0.2, 0.3}},
		{name: "matching dimensions", vector: []float32{0.1, 0.2}, dimensions: 2},
		{name: "empty vector", vector: []float32{}, wantErr: true},
		{name: "nil vector", vector: nil, wantErr: true},
		{name: "wrong dimensions", vector: []float32{0.1}, dimensions: 3, wantErr: true},
		{name: "NaN value", vector: []float32{float32(math.NaN())}, wantErr: true},
		{name: "infinite value", vector: []float32{float32(math.Inf(1))}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbedding(tt.vector, tt.dimensions)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedEmbedding) {
					t.Fatalf("error = %v, want ErrMalformedEmbedding", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMissingMetadataField(t *testing.T) {
	complete := map[string]json.RawMessage{
		MetaSourceType:         json.RawMessage(`"community"`),
		MetaSyntopiconTags:     json.RawMessage(`[]`),
		MetaRhetoricalFunction: json.RawMessage(`[]`),
		MetaScriptureRefs:      json.RawMessage(`[]`),
		MetaTopics:             json.RawMessage(`[]`),
		MetaEntities:           json.RawMessage(`null`),
	}
	if got := MissingMetadataField(complete); got != "" {
		t.Errorf("MissingMetadataField() = %q, want empty", got)
	}

	delete(complete, MetaTopics)
	if got := MissingMetadataField(complete); got != MetaTopics {
		t.Errorf("MissingMetadataField() = %q, want %q", got, MetaTopics)
	}

	if got := MissingMetadataField(nil); got != MetaSourceType {
		t.Errorf("MissingMetadataField(nil) = %q, want %q", got, MetaSourceType)
	}
}
