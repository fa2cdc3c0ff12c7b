package project

import (
	"errors"
	"fmt"
)

// ErrInvalidNamespace is returned for an empty namespace or one containing whitespace.
var ErrInvalidNamespace = errors.New("invalid namespace")

// ProjectionError reports a record that could not be projected.
type ProjectionError struct {
	Line  int
	Field string
	Err   error
}

func (e *ProjectionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("line %d: %s: %v", e.Line, e.Field, e.Err)
}

func (e *ProjectionError) Unwrap() error {
	return e.Err
}
