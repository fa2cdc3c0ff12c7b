package report

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/poiesic/chunkline/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_Counts(t *testing.T) {
	r := New("embed")

	r.Record(1, core.OutcomeSkipped, nil)
	r.Record(2, core.OutcomeProcessed, nil)
	r.Record(3, core.OutcomeErrored, errors.New("invalid character"))
	r.Record(4, core.OutcomeProcessed, nil)

	s := r.Summary()
	assert.Equal(t, "embed", s.Stage)
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 1, s.Errored)
	assert.Equal(t, 4, s.Total())
	assert.Equal(t, []LineError{{Line: 3, Detail: "invalid character"}}, s.Errors)
}

func TestReporter_NamespaceAndWritten(t *testing.T) {
	r := New("convert")
	r.SetNamespace("orthodoxy")
	r.SetWritten(12)

	s := r.Summary()
	assert.Equal(t, "orthodoxy", s.Namespace)
	assert.Equal(t, 12, s.Written)
}

func TestReporter_RunID(t *testing.T) {
	a, b := New("x"), New("x")
	_, err := uuid.Parse(a.RunID())
	require.NoError(t, err)
	assert.NotEqual(t, a.RunID(), b.RunID())
	assert.Equal(t, a.RunID(), a.Summary().RunID)
}

func TestReporter_NeverPanics(t *testing.T) {
	r := New("x")
	assert.NotPanics(t, func() {
		r.Record(0, core.OutcomeErrored, nil)
		r.Record(-1, core.Outcome(0), nil)
		r.Record(5, core.Outcome(99), errors.New("odd"))
		r.RecordUpload(nil)
	})

	s := r.Summary()
	assert.Equal(t, 3, s.Errored)
	assert.Equal(t, "unknown error", s.Errors[0].Detail)
	assert.Contains(t, s.Errors[1].Detail, "unknown")
	assert.Equal(t, "odd", s.Errors[2].Detail)
	assert.Nil(t, s.Upload)
}

func TestReporter_SummaryIsSnapshot(t *testing.T) {
	r := New("x")
	r.Record(1, core.OutcomeErrored, errors.New("a"))
	receipt := &core.UploadReceipt{ChunksCreated: 5}
	r.RecordUpload(receipt)

	s := r.Summary()
	s.Errors[0].Detail = "changed"
	s.Upload.ChunksCreated = 0
	receipt.ChunksCreated = 1
	r.Record(2, core.OutcomeProcessed, nil)

	again := r.Summary()
	assert.Equal(t, "a", again.Errors[0].Detail)
	assert.Equal(t, 5, again.Upload.ChunksCreated)
	assert.Zero(t, s.Processed)
	assert.Equal(t, 1, again.Processed)
}

func TestReporter_Concurrent(t *testing.T) {
	r := New("x")
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(i, core.OutcomeProcessed, nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, r.Summary().Processed)
}
