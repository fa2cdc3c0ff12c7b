package sink

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"
)

// Writer is a destination for pipeline output.
type Writer interface {
	// Write encodes v as one JSON line.
	Write(v any) error
	// WriteRaw writes line followed by a newline. line must not contain one.
	WriteRaw(line []byte) error
	// Lines returns the number of lines accepted so far.
	Lines() int
	// Close releases the destination.
	Close() error
}

// LineWriter writes JSON lines to an io.Writer, flushing after each line.
type LineWriter struct {
	mu     sync.Mutex
	buf    *bufio.Writer
	enc    *json.Encoder
	file   *os.File
	closer io.Closer
	sync   bool
	lines  int
	closed bool
}

var _ Writer = (*LineWriter)(nil)

// FileOption configures a file sink.
type FileOption func(*LineWriter)

// WithSync fsyncs the file after every line.
func WithSync() FileOption {
	return func(w *LineWriter) {
		w.sync = true
	}
}

// NewWriter creates a sink over w. Close does not close w.
func NewWriter(w io.Writer) *LineWriter {
	buf := bufio.NewWriter(w)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &LineWriter{buf: buf, enc: enc}
}

// CreateFile creates or truncates path and returns a sink that owns it.
func CreateFile(path string, opts ...FileOption) (*LineWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := NewWriter(f)
	w.file = f
	w.closer = f
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Write encodes v as a single line. A value that fails to encode writes nothing.
func (w *LineWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	return w.commit()
}

// WriteRaw writes line unchanged.
func (w *LineWriter) WriteRaw(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if _, err := w.buf.Write(line); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	return w.commit()
}

// commit flushes the line just written. Must be called with lock held.
func (w *LineWriter) commit() error {
	if err := w.buf.Flush(); err != nil {
		return err
	}
	if w.sync && w.file != nil {
		if err := w.file.Sync(); err != nil {
			return err
		}
	}
	w.lines++
	return nil
}

// Lines returns the number of lines written.
func (w *LineWriter) Lines() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lines
}

// Close flushes and, for file sinks, closes the file.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	err := w.buf.Flush()
	if w.closer != nil {
		if cerr := w.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
