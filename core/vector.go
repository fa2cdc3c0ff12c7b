package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Vector is an embedding held as its JSON number array. Values read from a
// source are written back digit for digit, whatever their precision or range.
type Vector json.RawMessage

// NewVector encodes a freshly computed embedding.
func NewVector(values []float32) (Vector, error) {
	if err := ValidateEmbedding(values, 0); err != nil {
		return nil, err
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEmbedding, err)
	}
	return Vector(data), nil
}

// ParseVector checks that data is a JSON array of numbers and returns a
// compact copy of it.
func ParseVector(data []byte) (Vector, error) {
	var values []json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEmbedding, err)
	}
	if values == nil {
		return nil, fmt.Errorf("%w: not an array", ErrMalformedEmbedding)
	}
	for i, value := range values {
		if len(value) == 0 || (value[0] != '-' && (value[0] < '0' || value[0] > '9')) {
			return nil, fmt.Errorf("%w: non-numeric value at position %d", ErrMalformedEmbedding, i)
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEmbedding, err)
	}
	return Vector(buf.Bytes()), nil
}

// Len returns the number of values.
func (v Vector) Len() int {
	if len(v) == 0 {
		return 0
	}
	var numbers []json.RawMessage
	if err := json.Unmarshal(v, &numbers); err != nil {
		return 0
	}
	return len(numbers)
}

// MarshalJSON implements json.Marshaler.
func (v Vector) MarshalJSON() ([]byte, error) {
	if v == nil {
		return nullJSON, nil
	}
	return v, nil
}

// UnmarshalJSON implements json.Unmarshaler. A JSON null leaves v nil.
func (v *Vector) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*v = nil
		return nil
	}
	parsed, err := ParseVector(data)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
