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


package pipeline

import "errors"

var (
	// ErrSinkWrite wraps a failure to write to the destination. It aborts the run.
	ErrSinkWrite = errors.New("writing output failed")

	// ErrNoInputs is returned by RunDir when a directory has no matching files.
	ErrNoInputs = errors.New("no input files found")

	// ErrUnknownMode is returned for an unrecognized mode name.
	ErrUnknownMode = errors.New("unknown mode")

	// ErrSameFile is returned when the derived output path equals the input path.
	ErrSameFile = errors.New("output would overwrite input")
)
