package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"sync"

	"github.com/poiesic/chunkline/core"
)

// Reader produces chunk records from a line-delimited JSON source.
type Reader struct {
	src  *bufio.Reader
	once sync.Once
}

// NewReader wraps r. The Reader does not close r.
func NewReader(r io.Reader) *Reader {
	return &Reader{src: bufio.NewReaderSize(r, 64*1024)}
}

// Records returns the lazy record sequence. Each yielded pair carries either a
// record or an error, never both. Only the first call reads the source.
func (r *Reader) Records() iter.Seq2[*core.ChunkRecord, error] {
	first := false
	r.once.Do(func() { first = true })
	if !first {
		return func(func(*core.ChunkRecord, error) bool) {}
	}

	return func(yield func(*core.ChunkRecord, error) bool) {
		line := 0
		for {
			raw, readErr := r.src.ReadBytes('\n')
			if len(raw) > 0 {
				line++
				trimmed := bytes.TrimSpace(raw)
				if len(trimmed) > 0 {
					rec, err := decode(trimmed, line)
					if !yield(rec, err) {
						return
					}
				}
			}
			if readErr != nil {
				if !errors.Is(readErr, io.EOF) {
					yield(nil, &ReadError{Line: line, Err: readErr})
				}
				return
			}
		}
	}
}

func decode(data []byte, line int) (*core.ChunkRecord, error) {
	rec := &core.ChunkRecord{
		Line: line,
		Raw:  append([]byte(nil), data...),
	}
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, &ParseError{Line: line, Err: err}
	}
	return rec, nil
}

// CountLines returns the number of non-blank lines in r.
func CountLines(r io.Reader) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	count := 0
	for {
		raw, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(raw)) > 0 {
			count++
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, err
		}
	}
}
