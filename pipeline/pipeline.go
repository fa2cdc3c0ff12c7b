package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/chunkline/core"
	"github.com/poiesic/chunkline/enrich"
	"github.com/poiesic/chunkline/project"
	"github.com/poiesic/chunkline/report"
	"github.com/poiesic/chunkline/sink"
	"github.com/poiesic/chunkline/stream"
)

// DefaultProgressInterval is the number of lines between progress updates.
const DefaultProgressInterval = 10

// Pipeline runs records from a source through the configured stages.
type Pipeline struct {
	enricher         *enrich.Enricher
	projector        *project.Projector
	deriveNamespace  bool
	pool             *ants.Pool
	progress         io.Writer
	progressInterval int
	sync             bool
	logger           *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithEnricher enables the embedding stage.
func WithEnricher(e *enrich.Enricher) Option {
	return func(p *Pipeline) error {
		p.enricher = e
		return nil
	}
}

// WithProjector enables the projection stage with a fixed namespace.
func WithProjector(projector *project.Projector) Option {
	return func(p *Pipeline) error {
		p.projector = projector
		return nil
	}
}

// WithDerivedNamespace enables the projection stage. Each file run projects
// with DefaultNamespace of its output path. WithProjector takes precedence.
func WithDerivedNamespace() Option {
	return func(p *Pipeline) error {
		p.deriveNamespace = true
		return nil
	}
}

// WithProgress reports file progress to w every interval lines.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		if interval < 1 {
			interval = DefaultProgressInterval
		}
		p.progress = w
		p.progressInterval = interval
		return nil
	}
}

// WithSync fsyncs output files after every line.
func WithSync() Option {
	return func(p *Pipeline) error {
		p.sync = true
		return nil
	}
}

// WithPoolSize sets the number of files RunDir processes at once.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates a pipeline. Call Release when done.
func New(opts ...Option) (*Pipeline, error) {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		pool:             pool,
		progressInterval: DefaultProgressInterval,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline", "mode", p.Mode().String())

	return p, nil
}

// Mode reports which stages are enabled.
func (p *Pipeline) Mode() Mode {
	projecting := p.projector != nil || p.deriveNamespace
	switch {
	case p.enricher != nil && projecting:
		return ModePrepare
	case p.enricher != nil:
		return ModeEmbed
	case projecting:
		return ModeConvert
	default:
		return ModePassthrough
	}
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// Run processes every record of src into dst. dst is not closed.
// The error is non-nil only when the run could not finish: the source failed,
// dst rejected a write, or ctx was cancelled. The summary is valid either way.
func (p *Pipeline) Run(ctx context.Context, src io.Reader, dst sink.Writer) (*report.Summary, error) {
	projector, err := p.projectorFor("")
	if err != nil {
		return nil, err
	}
	rep := report.New(p.Mode().String())
	err = p.run(ctx, src, dst, projector, rep, nil)
	summary := rep.Summary()
	return &summary, err
}

// RunFile processes the file at in into a newly created file at out.
func (p *Pipeline) RunFile(ctx context.Context, in, out string) (*report.Summary, error) {
	if filepath.Clean(in) == filepath.Clean(out) {
		return nil, fmt.Errorf("%w: %s", ErrSameFile, in)
	}
	projector, err := p.projectorFor(out)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var tracker *report.ProgressTracker
	if p.progress != nil {
		total, err := stream.CountLines(f)
		if err != nil {
			return nil, err
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		tracker = report.NewProgressTracker(p.progress, filepath.Base(in), total, p.progressInterval)
	}

	var fileOpts []sink.FileOption
	if p.sync {
		fileOpts = append(fileOpts, sink.WithSync())
	}
	dst, err := sink.CreateFile(out, fileOpts...)
	if err != nil {
		return nil, err
	}

	rep := report.New(p.Mode().String())
	rep.SetPaths(in, out)
	p.logger.Info("starting run", "run_id", rep.RunID(), "input", in, "output", out)

	runErr := p.run(ctx, f, dst, projector, rep, tracker)
	if err := dst.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("%w: %w", ErrSinkWrite, err)
	}

	summary := rep.Summary()
	p.logger.Info("run finished", "run_id", summary.RunID,
		"processed", summary.Processed, "skipped", summary.Skipped, "errored", summary.Errored)
	return &summary, runErr
}

// RunUpload processes the file at in into a single batch and uploads it.
// Nothing is uploaded if the run fails, and nothing is persisted locally.
func (p *Pipeline) RunUpload(ctx context.Context, in string, uploader *sink.Uploader) (*report.Summary, error) {
	projector, err := p.projectorFor(OutputPath(ModePrepare, in))
	if err != nil {
		return nil, err
	}

	f, err := os.Open(in)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	batch := sink.NewBatch(uploader)
	defer batch.Close()

	rep := report.New(p.Mode().String())
	rep.SetPaths(in, uploader.Endpoint())
	if err := p.run(ctx, f, batch, projector, rep, nil); err != nil {
		summary := rep.Summary()
		return &summary, err
	}

	receipt, err := batch.Flush(ctx)
	if err == nil {
		rep.RecordUpload(receipt)
	}
	summary := rep.Summary()
	return &summary, err
}

func (p *Pipeline) projectorFor(output string) (*project.Projector, error) {
	if p.projector != nil {
		return p.projector, nil
	}
	if !p.deriveNamespace {
		return nil, nil
	}
	if output == "" {
		return nil, fmt.Errorf("%w: namespace cannot be derived without an output path", project.ErrInvalidNamespace)
	}
	return project.New(DefaultNamespace(output))
}

func (p *Pipeline) run(
	ctx context.Context,
	src io.Reader,
	dst sink.Writer,
	projector *project.Projector,
	rep *report.Reporter,
	tracker *report.ProgressTracker,
) error {
	if tracker != nil {
		tracker.Start()
		defer tracker.Finish()
	}
	logger := p.logger.With("run_id", rep.RunID())
	if projector != nil {
		rep.SetNamespace(projector.Namespace())
	}
	defer func() { rep.SetWritten(dst.Lines()) }()

	for rec, err := range stream.NewReader(src).Records() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if tracker != nil {
			tracker.Increment(1)
		}

		if err != nil {
			var readErr *stream.ReadError
			if errors.As(err, &readErr) {
				return err
			}
			var parseErr *stream.ParseError
			line := 0
			if errors.As(err, &parseErr) {
				line = parseErr.Line
			}
			logger.Warn("skipping malformed line", "line", line, "err", err)
			rep.Record(line, core.OutcomeErrored, err)
			continue
		}

		outcome, err := p.process(ctx, rec, dst, projector)
		if errors.Is(err, ErrSinkWrite) {
			return err
		}
		if err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("record failed", "line", rec.Line, "err", err)
		} else {
			logger.Debug("record done", "line", rec.Line, "outcome", outcome.String())
		}
		rep.Record(rec.Line, outcome, err)
	}
	return nil
}

// process runs one record through the enabled stages and writes it.
func (p *Pipeline) process(ctx context.Context, rec *core.ChunkRecord, dst sink.Writer, projector *project.Projector) (core.Outcome, error) {
	outcome := core.OutcomeProcessed
	if p.enricher != nil {
		var err error
		outcome, err = p.enricher.Enrich(ctx, rec)
		if outcome == core.OutcomeErrored {
			return outcome, err
		}
	}

	var writeErr error
	switch {
	case projector != nil:
		projected, err := projector.Project(rec)
		if err != nil {
			return core.OutcomeErrored, err
		}
		writeErr = dst.Write(projected)
	case outcome == core.OutcomeSkipped, p.enricher == nil:
		writeErr = dst.WriteRaw(rec.Raw)
	default:
		writeErr = dst.Write(rec)
	}
	if writeErr != nil {
		return core.OutcomeErrored, fmt.Errorf("%w: line %d: %w", ErrSinkWrite, rec.Line, writeErr)
	}
	return outcome, nil
}
