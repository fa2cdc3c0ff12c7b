package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/poiesic/chunkline/core"
)

// Batch is a Writer that collects lines for a single upload.
// Nothing leaves the process until Flush.
type Batch struct {
	mu       sync.Mutex
	uploader *Uploader
	buf      bytes.Buffer
	enc      *json.Encoder
	lines    int
	closed   bool
}

var _ Writer = (*Batch)(nil)

// NewBatch creates an empty batch bound to uploader.
func NewBatch(uploader *Uploader) *Batch {
	b := &Batch{uploader: uploader}
	b.enc = json.NewEncoder(&b.buf)
	b.enc.SetEscapeHTML(false)
	return b
}

// Write appends v as one JSON line.
func (b *Batch) Write(v any) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	mark := b.buf.Len()
	if err := b.enc.Encode(v); err != nil {
		b.buf.Truncate(mark)
		return err
	}
	b.lines++
	return nil
}

// WriteRaw appends line unchanged.
func (b *Batch) WriteRaw(line []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrClosed
	}
	b.buf.Write(line)
	b.buf.WriteByte('\n')
	b.lines++
	return nil
}

// Lines returns the number of buffered lines.
func (b *Batch) Lines() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lines
}

// Flush uploads every buffered line in one request. The buffer is kept after
// a failed upload and cleared after a successful one.
func (b *Batch) Flush(ctx context.Context) (*core.UploadReceipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrClosed
	}
	if b.lines == 0 {
		return nil, ErrEmptyBatch
	}

	receipt, err := b.uploader.Upload(ctx, b.buf.Bytes())
	if err != nil {
		return nil, err
	}
	b.buf.Reset()
	b.lines = 0
	return receipt, nil
}

// Close discards anything not yet flushed.
func (b *Batch) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.buf.Reset()
	b.lines = 0
	return nil
}
