package report

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/chunkline/core"
)

// LineError is one failed record.
type LineError struct {
	Line   int
	Detail string
}

// Summary is a snapshot of a run. It shares no state with its Reporter.
type Summary struct {
	RunID     string
	Stage     string
	Input     string
	Output    string
	Namespace string
	Processed int
	Skipped   int
	Errored   int
	Errors    []LineError
	Written   int // lines accepted by the sink
	Upload    *core.UploadReceipt
	Elapsed   time.Duration
}

// Total returns the number of records that reached a terminal outcome.
func (s Summary) Total() int {
	return s.Processed + s.Skipped + s.Errored
}

// Reporter accumulates per-record outcomes for a run.
type Reporter struct {
	mu        sync.Mutex
	runID     string
	stage     string
	input     string
	output    string
	namespace string
	written   int
	started   time.Time
	processed int
	skipped   int
	errored   int
	errors    []LineError
	upload    *core.UploadReceipt
}

// New creates a Reporter for stage with a fresh run ID.
func New(stage string) *Reporter {
	return &Reporter{
		runID:   uuid.NewString(),
		stage:   stage,
		started: time.Now(),
	}
}

// RunID returns the run's unique identifier.
func (r *Reporter) RunID() string {
	return r.runID
}

// SetPaths records where the run reads from and writes to.
func (r *Reporter) SetPaths(input, output string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.input = input
	r.output = output
}

// SetNamespace records the ID prefix of projected records.
func (r *Reporter) SetNamespace(namespace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.namespace = namespace
}

// SetWritten records how many lines the sink accepted.
func (r *Reporter) SetWritten(lines int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.written = lines
}

// Record counts one outcome. An errored outcome adds a LineError with err's
// message. Outcomes outside the known set are counted as errors.
func (r *Reporter) Record(line int, outcome core.Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch outcome {
	case core.OutcomeProcessed:
		r.processed++
	case core.OutcomeSkipped:
		r.skipped++
	default:
		r.errored++
		detail := "unknown error"
		if err != nil {
			detail = err.Error()
		} else if outcome != core.OutcomeErrored {
			detail = "unrecognized outcome " + outcome.String()
		}
		r.errors = append(r.errors, LineError{Line: line, Detail: detail})
	}
}

// RecordUpload attaches the ingestion endpoint's receipt.
func (r *Reporter) RecordUpload(receipt *core.UploadReceipt) {
	if receipt == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *receipt
	r.upload = &copied
}

// Summary returns a snapshot of the counters so far.
func (r *Reporter) Summary() Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Summary{
		RunID:     r.runID,
		Stage:     r.stage,
		Input:     r.input,
		Output:    r.output,
		Namespace: r.namespace,
		Processed: r.processed,
		Skipped:   r.skipped,
		Errored:   r.errored,
		Errors:    slices.Clone(r.errors),
		Written:   r.written,
		Elapsed:   time.Since(r.started),
	}
	if r.upload != nil {
		copied := *r.upload
		s.Upload = &copied
	}
	return s
}
