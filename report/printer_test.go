package report

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/poiesic/chunkline/core"
	"github.com/stretchr/testify/assert"
)

func TestPrinter_Summary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Summary(Summary{
		RunID:     "run-1",
		Stage:     "prepare",
		Input:     "in.jsonl",
		Output:    "in_qdrant.jsonl",
		Namespace: "in",
		Processed: 1,
		Skipped:   1,
		Errored:   1,
		Errors:    []LineError{{Line: 3, Detail: "invalid character 'x'"}},
		Written:   2,
	})

	out := buf.String()
	assert.Contains(t, out, "prepare complete: in.jsonl -> in_qdrant.jsonl")
	assert.Contains(t, out, "Namespace: in")
	assert.Contains(t, out, "Records:   3")
	assert.Contains(t, out, "Written:   2 lines")
	assert.Contains(t, out, "Processed: 1")
	assert.Contains(t, out, "Skipped (already had embeddings): 1")
	assert.Contains(t, out, "Errors:    1")
	assert.Contains(t, out, "line 3: invalid character 'x'")
	assert.NotContains(t, out, "\x1b[", "no escape codes without colors")
}

func TestPrinter_Upload(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Summary(Summary{
		Stage:     "upload",
		Processed: 5,
		Upload: &core.UploadReceipt{
			SourceID:       "17",
			ChunksCreated:  5,
			QdrantUploaded: true,
			Author:         "Augustine",
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Chunks created:  5")
	assert.Contains(t, out, "Source ID:       17")
	assert.Contains(t, out, "Qdrant uploaded: true")
	assert.Contains(t, out, "Author:          Augustine")
	assert.NotContains(t, out, "Source title")
	assert.NotContains(t, out, "Namespace:")
}

func TestPrinter_TruncatesErrors(t *testing.T) {
	var errs []LineError
	for i := range maxListedErrors + 5 {
		errs = append(errs, LineError{Line: i + 1, Detail: fmt.Sprintf("bad %d", i)})
	}

	var buf bytes.Buffer
	NewPrinter(&buf, false).Summary(Summary{Stage: "embed", Errored: len(errs), Errors: errs})

	assert.Contains(t, buf.String(), "... and 5 more")
	assert.NotContains(t, buf.String(), fmt.Sprintf("bad %d", maxListedErrors))
}

func TestPrinter_Colors(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf, true).Failure("upload", errors.New("status 500"))

	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "upload failed: ")
	assert.Contains(t, buf.String(), "status 500")
}
