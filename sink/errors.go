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


package sink

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when writing to a closed sink.
	ErrClosed = errors.New("sink is closed")

	// ErrEmptyBatch is returned when flushing a batch with no lines.
	ErrEmptyBatch = errors.New("batch is empty")

	// ErrInvalidEndpoint is returned for an endpoint that is not an absolute http(s) URL.
	ErrInvalidEndpoint = errors.New("invalid ingestion endpoint")

	// ErrIngestionFailed is wrapped by every IngestionError.
	ErrIngestionFailed = errors.New("ingestion failed")
)

// IngestionError reports a failed upload. StatusCode is zero when the request
// never produced a response.
type IngestionError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *IngestionError) Error() string {
	switch {
	case e.StatusCode == 0:
		return fmt.Sprintf("%v: %v", ErrIngestionFailed, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%v: status %d: %v", ErrIngestionFailed, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%v: status %d: %s", ErrIngestionFailed, e.StatusCode, e.Body)
	}
}

func (e *IngestionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrIngestionFailed}
	}
	return []error{ErrIngestionFailed, e.Err}
}
